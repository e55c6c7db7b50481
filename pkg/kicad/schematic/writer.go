package schematic

import (
	"strconv"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/geometry"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp/kicadsexp"
)

// node builds a (key args...) list
func node(key string, args ...kicadsexp.Sexp) *kicadsexp.List {
	l := kicadsexp.NewList(kicadsexp.Symbol(key))
	l.Append(args...)
	return l
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

// num formats a coordinate the way eeschema writes them: fixed precision
// with trailing zeros trimmed, never scientific notation.
func num(v float64) kicadsexp.Symbol {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	// Trim trailing zeros but keep at least one digit after the point,
	// then drop a bare trailing point.
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s == "-0" {
		s = "0"
	}
	return kicadsexp.Symbol(s)
}

func atNode(p Position, angle geometry.Rotation) *kicadsexp.List {
	return node("at", num(p.X), num(p.Y), kicadsexp.Symbol(itoa(int(angle))))
}

func uuidNode(id UUID) *kicadsexp.List {
	return node("uuid", kicadsexp.Str(string(id)))
}

func effectsNode(fontSize float64, hidden bool, justify string) *kicadsexp.List {
	effects := node("effects", node("font", node("size", num(fontSize), num(fontSize))))
	if justify != "" {
		effects.Append(node("justify", kicadsexp.Symbol(justify)))
	}
	if hidden {
		effects.Append(kicadsexp.Symbol("hide"))
	}
	return effects
}

func propertyNode(key, value string, p Position, angle geometry.Rotation, hidden bool) *kicadsexp.List {
	prop := node("property", kicadsexp.Str(key), kicadsexp.Str(value))
	prop.Append(atNode(p, angle))
	prop.Append(effectsNode(1.27, hidden, ""))
	return prop
}

func (p *Placement) toSexp(doc *Document) *kicadsexp.List {
	sym := node("symbol", node("lib_id", kicadsexp.Str(p.LibID)))
	sym.Append(atNode(p.Position, p.Rotation))
	if p.MirrorY {
		sym.Append(node("mirror", kicadsexp.Symbol("y")))
	}
	unit := p.Unit
	if unit == 0 {
		unit = 1
	}
	sym.Append(node("unit", kicadsexp.Symbol(itoa(unit))))
	sym.Append(uuidNode(p.UUID))

	// Power symbols hide their reference the way eeschema does
	refPos := Position{X: p.Position.X, Y: p.Position.Y - 3.81}
	sym.Append(propertyNode("Reference", p.Reference, refPos, 0, p.Power))
	valPos := Position{X: p.Position.X, Y: p.Position.Y + 3.81}
	sym.Append(propertyNode("Value", p.Value, valPos, 0, false))
	fpPos := Position{X: p.Position.X, Y: p.Position.Y + 5.08}
	sym.Append(propertyNode("Footprint", p.Footprint, fpPos, 0, true))
	for _, extra := range p.Props {
		sym.Append(propertyNode(extra.Key, extra.Value, extra.At.Position, geometry.Rotation(extra.At.Angle), extra.Hidden))
	}

	project := node("project", kicadsexp.Str(doc.Project))
	path := node("path", kicadsexp.Str("/"+string(doc.UUID)))
	path.Append(node("reference", kicadsexp.Str(p.Reference)))
	path.Append(node("unit", kicadsexp.Symbol(itoa(unit))))
	project.Append(path)
	sym.Append(node("instances", project))

	return sym
}

func (w *Wire) toSexp(doc *Document) *kicadsexp.List {
	wire := node("wire",
		node("pts",
			node("xy", num(w.Start.X), num(w.Start.Y)),
			node("xy", num(w.End.X), num(w.End.Y)),
		),
	)
	wire.Append(node("stroke", node("width", num(0)), node("type", kicadsexp.Symbol("default"))))
	wire.Append(uuidNode(w.UUID))
	return wire
}

func (l *Label) toSexp(doc *Document) *kicadsexp.List {
	label := node("label", kicadsexp.Str(l.Text))
	label.Append(atNode(l.Position, l.Angle))
	label.Append(effectsNode(1.27, false, "left"))
	label.Append(uuidNode(l.UUID))
	return label
}

func (g *GlobalLabel) toSexp(doc *Document) *kicadsexp.List {
	shape := g.Shape
	if shape == "" {
		shape = "bidirectional"
	}
	label := node("global_label", kicadsexp.Str(g.Text))
	label.Append(node("shape", kicadsexp.Symbol(shape)))
	label.Append(atNode(g.Position, g.Angle))
	label.Append(effectsNode(1.27, false, "left"))
	label.Append(uuidNode(g.UUID))
	return label
}

func (n *NoConnect) toSexp(doc *Document) *kicadsexp.List {
	nc := node("no_connect", atNode(n.Position, 0))
	nc.Append(uuidNode(n.UUID))
	return nc
}

func (j *Junction) toSexp(doc *Document) *kicadsexp.List {
	junc := node("junction", atNode(j.Position, 0))
	junc.Append(node("diameter", num(j.Diameter)))
	junc.Append(node("color", num(0), num(0), num(0), num(0)))
	junc.Append(uuidNode(j.UUID))
	return junc
}

func (t *TextNote) toSexp(doc *Document) *kicadsexp.List {
	size := t.Size
	if size == 0 {
		size = 2.54
	}
	text := node("text", kicadsexp.Str(t.Text))
	text.Append(atNode(t.Position, 0))
	text.Append(effectsNode(size, false, "left"))
	text.Append(uuidNode(t.UUID))
	return text
}
