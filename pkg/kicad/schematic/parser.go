package schematic

import (
	"fmt"
	"os"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/geometry"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/patch"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp/kicadsexp"
)

// ParseFile reads and parses a schematic file from disk
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schematic file: %w", err)
	}
	return Parse(data)
}

// Parse parses schematic file text into a Document. Element order in the
// file is preserved. Unbalanced input and missing required sections
// (version, generator, uuid, paper, lib_symbols, sheet_instances) are
// reported as StructuralError.
func Parse(data []byte) (*Document, error) {
	root, err := kicadsexp.ParseOne(string(data))
	if err != nil {
		if balErr := patch.AssertBalanced(string(data)); balErr != nil {
			return nil, balErr
		}
		return nil, err
	}

	list, ok := root.(*kicadsexp.List)
	if !ok {
		return nil, fmt.Errorf("expected kicad_sch document, got a bare atom")
	}
	name, err := sexp.GetNodeName(list)
	if err != nil || name != "kicad_sch" {
		return nil, fmt.Errorf("expected kicad_sch document, got %q", name)
	}

	doc := &Document{}
	seen := map[string]bool{}

	for _, item := range list.Items()[1:] {
		sub, ok := item.(*kicadsexp.List)
		if !ok {
			continue
		}
		key, err := sexp.GetNodeName(sub)
		if err != nil {
			continue
		}
		seen[key] = true

		switch key {
		case "version":
			doc.Version, err = sexp.GetInt(sub, 1)
		case "generator":
			doc.Generator, err = sexp.GetString(sub, 1)
		case "generator_version":
			doc.GeneratorVersion, err = sexp.GetString(sub, 1)
		case "uuid":
			var id sexp.UUID
			id, err = sexp.GetUUID(sub)
			doc.UUID = id
		case "paper":
			doc.Paper, err = sexp.GetString(sub, 1)
		case "title_block":
			err = parseTitleBlock(sub, &doc.Title)
		case "lib_symbols":
			err = parseLibSymbols(sub, doc)
		case "symbol":
			e, perr := parsePlacement(sub, doc)
			err = appendElement(doc, e, perr)
		case "wire":
			e, perr := parseWire(sub)
			err = appendElement(doc, e, perr)
		case "label":
			e, perr := parseLabel(sub)
			err = appendElement(doc, e, perr)
		case "global_label":
			e, perr := parseGlobalLabel(sub)
			err = appendElement(doc, e, perr)
		case "no_connect":
			e, perr := parseNoConnect(sub)
			err = appendElement(doc, e, perr)
		case "junction":
			e, perr := parseJunction(sub)
			err = appendElement(doc, e, perr)
		case "text":
			e, perr := parseText(sub)
			err = appendElement(doc, e, perr)
		case "sheet_instances":
			err = parseSheetInstances(sub, doc)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", key, err)
		}
	}

	for _, required := range []string{"version", "generator", "uuid", "paper", "lib_symbols", "sheet_instances"} {
		if !seen[required] {
			return nil, &sexp.StructuralError{Section: required}
		}
	}

	return doc, nil
}

func appendElement(doc *Document, e Element, err error) error {
	if err != nil {
		return err
	}
	doc.Elements = append(doc.Elements, e)
	return nil
}

func parseTitleBlock(node *kicadsexp.List, tb *TitleBlock) error {
	if t, ok := sexp.FindNode(node, "title"); ok {
		tb.Title, _ = sexp.GetString(t, 1)
	}
	if d, ok := sexp.FindNode(node, "date"); ok {
		tb.Date, _ = sexp.GetString(d, 1)
	}
	if r, ok := sexp.FindNode(node, "rev"); ok {
		tb.Revision, _ = sexp.GetString(r, 1)
	}
	if c, ok := sexp.FindNode(node, "company"); ok {
		tb.Company, _ = sexp.GetString(c, 1)
	}
	for _, c := range sexp.FindAllNodes(node, "comment") {
		// (comment N "text")
		text, err := sexp.GetString(c, 2)
		if err != nil {
			return err
		}
		tb.Comments = append(tb.Comments, text)
	}
	return nil
}

func parseLibSymbols(node *kicadsexp.List, doc *Document) error {
	for _, def := range sexp.FindAllNodes(node, "symbol") {
		name, err := sexp.GetString(def, 1)
		if err != nil {
			return fmt.Errorf("embedded symbol missing name: %w", err)
		}
		doc.LibSymbols = append(doc.LibSymbols, &EmbeddedSymbol{
			Name: name,
			Def:  def.Clone(),
		})
	}
	return nil
}

func parsePlacement(node *kicadsexp.List, doc *Document) (*Placement, error) {
	p := &Placement{Unit: 1}

	libID, ok := sexp.FindNode(node, "lib_id")
	if !ok {
		return nil, fmt.Errorf("symbol placement missing lib_id")
	}
	var err error
	p.LibID, err = sexp.GetString(libID, 1)
	if err != nil {
		return nil, err
	}

	at, ok := sexp.FindNode(node, "at")
	if !ok {
		return nil, fmt.Errorf("symbol placement missing position")
	}
	pa, err := sexp.GetPosition(at)
	if err != nil {
		return nil, err
	}
	p.Position = pa.Position
	p.Rotation = geometry.Rotation(pa.Angle)
	if !p.Rotation.Valid() {
		return nil, &geometry.InvalidRotationError{Rotation: p.Rotation}
	}

	if mirror, ok := sexp.FindNode(node, "mirror"); ok {
		axis, _ := sexp.GetString(mirror, 1)
		p.MirrorY = axis == "y"
	}
	if unit, ok := sexp.FindNode(node, "unit"); ok {
		p.Unit, _ = sexp.GetInt(unit, 1)
	}
	if id, ok := sexp.FindNode(node, "uuid"); ok {
		p.UUID, _ = sexp.GetUUID(id)
	}

	for _, prop := range sexp.FindAllNodes(node, "property") {
		key, err := sexp.GetString(prop, 1)
		if err != nil {
			return nil, err
		}
		value, err := sexp.GetString(prop, 2)
		if err != nil {
			return nil, err
		}
		switch key {
		case "Reference":
			p.Reference = value
			if propHidden(prop) && len(value) > 0 && value[0] == '#' {
				p.Power = true
			}
		case "Value":
			p.Value = value
		case "Footprint":
			p.Footprint = value
		default:
			extra := Property{Key: key, Value: value, Hidden: propHidden(prop)}
			if at, ok := sexp.FindNode(prop, "at"); ok {
				extra.At, _ = sexp.GetPosition(at)
			}
			p.Props = append(p.Props, extra)
		}
	}

	return p, nil
}

func propHidden(prop *kicadsexp.List) bool {
	effects, ok := sexp.FindNode(prop, "effects")
	if !ok {
		return false
	}
	return sexp.HasSymbol(effects, "hide")
}

func parseWire(node *kicadsexp.List) (*Wire, error) {
	pts, ok := sexp.FindNode(node, "pts")
	if !ok {
		return nil, fmt.Errorf("wire missing pts")
	}
	points := sexp.FindAllNodes(pts, "xy")
	if len(points) != 2 {
		return nil, fmt.Errorf("wire expects 2 points, got %d", len(points))
	}
	w := &Wire{}
	var err error
	if w.Start, err = sexp.GetPositionXY(points[0]); err != nil {
		return nil, err
	}
	if w.End, err = sexp.GetPositionXY(points[1]); err != nil {
		return nil, err
	}
	if id, ok := sexp.FindNode(node, "uuid"); ok {
		w.UUID, _ = sexp.GetUUID(id)
	}
	return w, nil
}

func parseLabel(node *kicadsexp.List) (*Label, error) {
	l := &Label{}
	var err error
	if l.Text, err = sexp.GetString(node, 1); err != nil {
		return nil, err
	}
	at, ok := sexp.FindNode(node, "at")
	if !ok {
		return nil, fmt.Errorf("label missing position")
	}
	pa, err := sexp.GetPosition(at)
	if err != nil {
		return nil, err
	}
	l.Position = pa.Position
	l.Angle = geometry.Rotation(pa.Angle)
	if id, ok := sexp.FindNode(node, "uuid"); ok {
		l.UUID, _ = sexp.GetUUID(id)
	}
	return l, nil
}

func parseGlobalLabel(node *kicadsexp.List) (*GlobalLabel, error) {
	g := &GlobalLabel{}
	var err error
	if g.Text, err = sexp.GetString(node, 1); err != nil {
		return nil, err
	}
	if shape, ok := sexp.FindNode(node, "shape"); ok {
		g.Shape, _ = sexp.GetString(shape, 1)
	}
	at, ok := sexp.FindNode(node, "at")
	if !ok {
		return nil, fmt.Errorf("global label missing position")
	}
	pa, err := sexp.GetPosition(at)
	if err != nil {
		return nil, err
	}
	g.Position = pa.Position
	g.Angle = geometry.Rotation(pa.Angle)
	if id, ok := sexp.FindNode(node, "uuid"); ok {
		g.UUID, _ = sexp.GetUUID(id)
	}
	return g, nil
}

func parseNoConnect(node *kicadsexp.List) (*NoConnect, error) {
	n := &NoConnect{}
	at, ok := sexp.FindNode(node, "at")
	if !ok {
		return nil, fmt.Errorf("no_connect missing position")
	}
	pa, err := sexp.GetPosition(at)
	if err != nil {
		return nil, err
	}
	n.Position = pa.Position
	if id, ok := sexp.FindNode(node, "uuid"); ok {
		n.UUID, _ = sexp.GetUUID(id)
	}
	return n, nil
}

func parseJunction(node *kicadsexp.List) (*Junction, error) {
	j := &Junction{}
	at, ok := sexp.FindNode(node, "at")
	if !ok {
		return nil, fmt.Errorf("junction missing position")
	}
	pa, err := sexp.GetPosition(at)
	if err != nil {
		return nil, err
	}
	j.Position = pa.Position
	if d, ok := sexp.FindNode(node, "diameter"); ok {
		j.Diameter, _ = sexp.GetFloat(d, 1)
	}
	if id, ok := sexp.FindNode(node, "uuid"); ok {
		j.UUID, _ = sexp.GetUUID(id)
	}
	return j, nil
}

func parseText(node *kicadsexp.List) (*TextNote, error) {
	t := &TextNote{}
	var err error
	if t.Text, err = sexp.GetString(node, 1); err != nil {
		return nil, err
	}
	at, ok := sexp.FindNode(node, "at")
	if !ok {
		return nil, fmt.Errorf("text missing position")
	}
	pa, err := sexp.GetPosition(at)
	if err != nil {
		return nil, err
	}
	t.Position = pa.Position
	if effects, ok := sexp.FindNode(node, "effects"); ok {
		if font, ok := sexp.FindNode(effects, "font"); ok {
			if size, ok := sexp.FindNode(font, "size"); ok {
				t.Size, _ = sexp.GetFloat(size, 1)
			}
		}
	}
	if id, ok := sexp.FindNode(node, "uuid"); ok {
		t.UUID, _ = sexp.GetUUID(id)
	}
	return t, nil
}

func parseSheetInstances(node *kicadsexp.List, doc *Document) error {
	for _, path := range sexp.FindAllNodes(node, "path") {
		p, err := sexp.GetString(path, 1)
		if err != nil {
			return err
		}
		inst := SheetInstance{Path: p}
		if page, ok := sexp.FindNode(path, "page"); ok {
			inst.Page, _ = sexp.GetString(page, 1)
		}
		doc.SheetInstances = append(doc.SheetInstances, inst)
	}
	return nil
}
