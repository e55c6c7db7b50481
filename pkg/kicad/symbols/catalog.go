// Package symbols loads KiCad symbol libraries (.kicad_sym files or the
// lib_symbols section of a schematic) into an in-memory catalog of pin
// geometry and electrical classes. The catalog is read-only after loading
// and safe to share across documents.
package symbols

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp/kicadsexp"
)

// ElectricalClass is a pin's electrical type as declared in the library
type ElectricalClass string

const (
	ClassInput         ElectricalClass = "input"
	ClassOutput        ElectricalClass = "output"
	ClassBidirectional ElectricalClass = "bidirectional"
	ClassTriState      ElectricalClass = "tri_state"
	ClassPassive       ElectricalClass = "passive"
	ClassFree          ElectricalClass = "free"
	ClassUnspecified   ElectricalClass = "unspecified"
	ClassPowerIn       ElectricalClass = "power_in"
	ClassPowerOut      ElectricalClass = "power_out"
	ClassOpenCollector ElectricalClass = "open_collector"
	ClassOpenEmitter   ElectricalClass = "open_emitter"
	ClassNoConnect     ElectricalClass = "no_connect"
)

// PinDef is a pin definition from a symbol library. Offsets are in library
// convention (Y-up); the geometry package converts them to schematic space.
type PinDef struct {
	Name   string
	Number string
	X      float64
	Y      float64
	Angle  int
	Length float64
	Class  ElectricalClass
}

// SymbolDef is a symbol definition with its pins and the raw definition
// block used when embedding the symbol into a schematic.
type SymbolDef struct {
	Name string
	Pins []PinDef
	raw  *kicadsexp.List
}

// PinByName returns the pin with the given name, if any
func (sd *SymbolDef) PinByName(name string) (*PinDef, bool) {
	for i := range sd.Pins {
		if sd.Pins[i].Name == name {
			return &sd.Pins[i], true
		}
	}
	return nil, false
}

// PinByNumber returns the pin with the given number, if any
func (sd *SymbolDef) PinByNumber(number string) (*PinDef, bool) {
	for i := range sd.Pins {
		if sd.Pins[i].Number == number {
			return &sd.Pins[i], true
		}
	}
	return nil, false
}

// Raw returns a deep copy of the symbol's definition block, suitable for
// embedding into a document without aliasing catalog state.
func (sd *SymbolDef) Raw() *kicadsexp.List {
	if sd.raw == nil {
		return nil
	}
	return sd.raw.Clone()
}

// Catalog maps symbol identifiers to their definitions
type Catalog struct {
	symbols map[string]*SymbolDef
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{symbols: make(map[string]*SymbolDef)}
}

// LoadFile loads symbol definitions from a .kicad_sym library file
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open symbol library: %w", err)
	}
	defer f.Close()

	return c.Load(f)
}

// Load parses symbol definitions from S-expression content. The root may be
// a (kicad_symbol_lib ...) file or a (lib_symbols ...) schematic section.
// Loading is idempotent: a re-loaded identifier replaces the prior entry.
func (c *Catalog) Load(r io.Reader) error {
	exprs, err := kicadsexp.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse symbol library: %w", err)
	}

	if len(exprs) == 0 {
		return &kicadsexp.ParseError{Msg: "empty symbol library"}
	}

	root := exprs[0]
	rootName, err := sexp.GetNodeName(root)
	if err != nil {
		return fmt.Errorf("failed to get root node name: %w", err)
	}

	if rootName != "kicad_symbol_lib" && rootName != "lib_symbols" {
		return &kicadsexp.ParseError{Msg: fmt.Sprintf("expected 'kicad_symbol_lib' or 'lib_symbols', got %q", rootName)}
	}

	for _, symNode := range sexp.FindAllNodes(root, "symbol") {
		def, err := parseSymbolDef(symNode)
		if err != nil {
			return err
		}
		c.symbols[def.Name] = def
	}

	return nil
}

// Get returns a symbol definition by name. Names are matched exactly
// first, then with the query's library prefix stripped, so "Device:R"
// finds a catalog entry loaded as "R". A bare "R" does not find an entry
// loaded as "Device:R".
func (c *Catalog) Get(name string) (*SymbolDef, bool) {
	if def, ok := c.symbols[name]; ok {
		return def, true
	}
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		if def, ok := c.symbols[name[idx+1:]]; ok {
			return def, true
		}
	}
	return nil, false
}

// Names returns all loaded symbol identifiers
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.symbols))
	for name := range c.symbols {
		names = append(names, name)
	}
	return names
}

// parseSymbolDef extracts a top-level symbol's pins from its nested
// sub-definition units.
func parseSymbolDef(node *kicadsexp.List) (*SymbolDef, error) {
	name, err := sexp.GetQuotedString(node, 1)
	if err != nil {
		return nil, &kicadsexp.ParseError{Msg: fmt.Sprintf("symbol definition missing name: %v", err)}
	}

	def := &SymbolDef{Name: name, raw: node.Clone()}

	for _, unitNode := range sexp.FindAllNodes(node, "symbol") {
		for _, pinNode := range sexp.FindAllNodes(unitNode, "pin") {
			pin, err := parsePinDef(pinNode)
			if err != nil {
				return nil, fmt.Errorf("symbol %q: %w", name, err)
			}
			def.Pins = append(def.Pins, pin)
		}
	}

	return def, nil
}

func parsePinDef(node *kicadsexp.List) (PinDef, error) {
	pin := PinDef{}

	class, err := sexp.GetString(node, 1)
	if err != nil {
		return pin, &kicadsexp.ParseError{Msg: fmt.Sprintf("pin missing electrical class: %v", err)}
	}
	pin.Class = ElectricalClass(class)

	atNode, found := sexp.FindNode(node, "at")
	if !found {
		return pin, &kicadsexp.ParseError{Msg: "pin missing (at ...) position"}
	}
	pos, err := sexp.GetPosition(atNode)
	if err != nil {
		return pin, &kicadsexp.ParseError{Msg: fmt.Sprintf("pin position: %v", err)}
	}
	pin.X, pin.Y, pin.Angle = pos.X, pos.Y, int(pos.Angle)

	if lenNode, found := sexp.FindNode(node, "length"); found {
		pin.Length, _ = sexp.GetFloat(lenNode, 1)
	}

	nameNode, found := sexp.FindNode(node, "name")
	if !found {
		return pin, &kicadsexp.ParseError{Msg: "pin missing (name ...)"}
	}
	pin.Name, err = sexp.GetQuotedString(nameNode, 1)
	if err != nil {
		return pin, &kicadsexp.ParseError{Msg: fmt.Sprintf("pin name: %v", err)}
	}

	numNode, found := sexp.FindNode(node, "number")
	if !found {
		return pin, &kicadsexp.ParseError{Msg: "pin missing (number ...)"}
	}
	pin.Number, err = sexp.GetQuotedString(numNode, 1)
	if err != nil {
		return pin, &kicadsexp.ParseError{Msg: fmt.Sprintf("pin number: %v", err)}
	}

	return pin, nil
}
