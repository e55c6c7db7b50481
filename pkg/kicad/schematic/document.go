package schematic

import (
	"github.com/google/uuid"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/patch"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp/kicadsexp"
)

// Current file format version written by the generator (KiCad 8)
const FormatVersion = 20231120

// Document is a complete schematic file in memory. It owns an ordered
// element sequence plus the header and footer sections the file format
// requires. A Document is not safe for concurrent mutation; a repair-loop
// run owns its document exclusively.
type Document struct {
	Version          int
	Generator        string
	GeneratorVersion string
	UUID             UUID
	Paper            string
	Title            TitleBlock
	// Project is the project name written in symbol instance blocks
	Project        string
	LibSymbols     []*EmbeddedSymbol
	Elements       []Element
	SheetInstances []SheetInstance
}

// NewDocument creates an empty schematic with the required sections
// populated: fresh UUID, A4 paper, root sheet instance.
func NewDocument(project string) *Document {
	return &Document{
		Version:          FormatVersion,
		Generator:        "kicad-schematic",
		GeneratorVersion: "8.0",
		UUID:             UUID(uuid.NewString()),
		Paper:            "A4",
		Project:          project,
		SheetInstances:   []SheetInstance{{Path: "/", Page: "1"}},
	}
}

// NewID returns a fresh element identifier
func NewID() UUID {
	return UUID(uuid.NewString())
}

// Insert appends an element to the document. Embedded symbol definitions
// are routed to the lib_symbols section; everything else keeps insertion
// order in the body.
func (d *Document) Insert(e Element) {
	if emb, ok := e.(*EmbeddedSymbol); ok {
		for i, existing := range d.LibSymbols {
			if existing.Name == emb.Name {
				d.LibSymbols[i] = emb
				return
			}
		}
		d.LibSymbols = append(d.LibSymbols, emb)
		return
	}
	d.Elements = append(d.Elements, e)
}

// Remove deletes the element with the given identifier and reports whether
// anything was removed.
func (d *Document) Remove(id UUID) bool {
	for i, e := range d.Elements {
		if e.ID() == id {
			d.Elements = append(d.Elements[:i], d.Elements[i+1:]...)
			return true
		}
	}
	for i, e := range d.LibSymbols {
		if e.ID() == id {
			d.LibSymbols = append(d.LibSymbols[:i], d.LibSymbols[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the element with the given identifier
func (d *Document) Find(id UUID) (Element, bool) {
	for _, e := range d.Elements {
		if e.ID() == id {
			return e, true
		}
	}
	for _, e := range d.LibSymbols {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

// FindByKind returns all elements of the given kind in insertion order
func (d *Document) FindByKind(kind Kind) []Element {
	if kind == KindLibSymbol {
		out := make([]Element, len(d.LibSymbols))
		for i, e := range d.LibSymbols {
			out[i] = e
		}
		return out
	}
	var out []Element
	for _, e := range d.Elements {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

// Placements returns all placed symbols in insertion order
func (d *Document) Placements() []*Placement {
	var out []*Placement
	for _, e := range d.Elements {
		if p, ok := e.(*Placement); ok {
			out = append(out, p)
		}
	}
	return out
}

// Placement returns a placed symbol by reference designator
func (d *Document) Placement(ref string) (*Placement, bool) {
	for _, p := range d.Placements() {
		if p.Reference == ref {
			return p, true
		}
	}
	return nil, false
}

// Wires returns all wire segments in insertion order
func (d *Document) Wires() []*Wire {
	var out []*Wire
	for _, e := range d.Elements {
		if w, ok := e.(*Wire); ok {
			out = append(out, w)
		}
	}
	return out
}

// Labels returns all local labels in insertion order
func (d *Document) Labels() []*Label {
	var out []*Label
	for _, e := range d.Elements {
		if l, ok := e.(*Label); ok {
			out = append(out, l)
		}
	}
	return out
}

// NoConnects returns all no-connect markers in insertion order
func (d *Document) NoConnects() []*NoConnect {
	var out []*NoConnect
	for _, e := range d.Elements {
		if n, ok := e.(*NoConnect); ok {
			out = append(out, n)
		}
	}
	return out
}

// EmbeddedSymbol returns the embedded definition with the given name
func (d *Document) EmbeddedSymbol(name string) (*EmbeddedSymbol, bool) {
	for _, e := range d.LibSymbols {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// NetEndpoints returns the positions at which the given net name is
// labeled. Endpoints with identical positions and net name are electrically
// joined.
func (d *Document) NetEndpoints(net string) []Position {
	var out []Position
	for _, e := range d.Elements {
		switch v := e.(type) {
		case *Label:
			if v.Text == net {
				out = append(out, v.Position)
			}
		case *GlobalLabel:
			if v.Text == net {
				out = append(out, v.Position)
			}
		}
	}
	return out
}

// toSexp builds the complete (kicad_sch ...) tree for serialization
func (d *Document) toSexp() *kicadsexp.List {
	root := kicadsexp.NewList(kicadsexp.Symbol("kicad_sch"))

	root.Append(node("version", kicadsexp.Symbol(itoa(d.Version))))
	root.Append(node("generator", kicadsexp.Str(d.Generator)))
	if d.GeneratorVersion != "" {
		root.Append(node("generator_version", kicadsexp.Str(d.GeneratorVersion)))
	}
	root.Append(node("uuid", kicadsexp.Str(string(d.UUID))))
	root.Append(node("paper", kicadsexp.Str(d.Paper)))

	if tb := d.titleBlockSexp(); tb != nil {
		root.Append(tb)
	}

	libs := kicadsexp.NewList(kicadsexp.Symbol("lib_symbols"))
	for _, emb := range d.LibSymbols {
		libs.Append(emb.toSexp(d))
	}
	root.Append(libs)

	for _, e := range d.Elements {
		root.Append(e.toSexp(d))
	}

	instances := kicadsexp.NewList(kicadsexp.Symbol("sheet_instances"))
	for _, inst := range d.SheetInstances {
		path := node("path", kicadsexp.Str(inst.Path))
		path.Append(node("page", kicadsexp.Str(inst.Page)))
		instances.Append(path)
	}
	root.Append(instances)

	return root
}

func (d *Document) titleBlockSexp() *kicadsexp.List {
	empty := d.Title.Title == "" && d.Title.Date == "" && d.Title.Revision == "" &&
		d.Title.Company == "" && len(d.Title.Comments) == 0
	if empty {
		return nil
	}

	tb := kicadsexp.NewList(kicadsexp.Symbol("title_block"))
	if d.Title.Title != "" {
		tb.Append(node("title", kicadsexp.Str(d.Title.Title)))
	}
	if d.Title.Date != "" {
		tb.Append(node("date", kicadsexp.Str(d.Title.Date)))
	}
	if d.Title.Revision != "" {
		tb.Append(node("rev", kicadsexp.Str(d.Title.Revision)))
	}
	if d.Title.Company != "" {
		tb.Append(node("company", kicadsexp.Str(d.Title.Company)))
	}
	for i, comment := range d.Title.Comments {
		tb.Append(node("comment", kicadsexp.Symbol(itoa(i+1)), kicadsexp.Str(comment)))
	}
	return tb
}

// Serialize renders the document to schematic file text. The output is
// checked for delimiter balance before it is returned; an imbalance can
// only come from a corrupt embedded definition block and is surfaced as a
// StructuralError rather than written out.
func (d *Document) Serialize() (string, error) {
	text := kicadsexp.Format(d.toSexp())
	if err := patch.AssertBalanced(text); err != nil {
		return "", err
	}
	return text, nil
}
