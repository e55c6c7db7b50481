// Package schematic provides the in-memory document model for KiCad
// schematic files (.kicad_sch): a parse/serialize round-trippable tree of
// placed symbols, wires, labels and no-connect markers, plus a builder that
// derives pin-exact wiring from a symbol catalog.
package schematic

import (
	"github.com/kenchangh/kicad-schematic/pkg/kicad/geometry"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp/kicadsexp"
)

// Re-export shared types for convenience
type Position = sexp.Position
type Angle = sexp.Angle
type UUID = sexp.UUID

// Kind identifies an element's node type in the document
type Kind string

const (
	KindPlacement Kind = "symbol"
	KindWire      Kind = "wire"
	KindLabel     Kind = "label"
	KindGlobal    Kind = "global_label"
	KindNoConnect Kind = "no_connect"
	KindJunction  Kind = "junction"
	KindText      Kind = "text"
	KindLibSymbol Kind = "lib_symbol"
)

// Element is a node owned by a Document. Elements serialize to whole
// balanced S-expression blocks, so inserting or removing one can never
// unbalance the document.
type Element interface {
	Kind() Kind
	ID() UUID
	toSexp(doc *Document) *kicadsexp.List
}

// TitleBlock contains schematic title block information
type TitleBlock struct {
	Title    string
	Date     string
	Revision string
	Company  string
	Comments []string
}

// SheetInstance represents a sheet instance path
type SheetInstance struct {
	Path string
	Page string
}

// Property is an instance property on a placed symbol (Reference, Value,
// Footprint and any extras such as part numbers).
type Property struct {
	Key    string
	Value  string
	At     sexp.PositionAngle
	Hidden bool
}

// Placement is a symbol instance placed on the schematic
type Placement struct {
	LibID     string
	Reference string
	Value     string
	Position  Position
	Rotation  geometry.Rotation
	MirrorY   bool
	Footprint string
	Unit      int
	// Power marks auto-referenced power symbols (#PWRnnn); their single
	// hidden pin joins by position, so completeness checks skip them.
	Power bool
	UUID  UUID
	// Props carries additional instance properties beyond the
	// Reference/Value/Footprint trio.
	Props []Property
}

func (p *Placement) Kind() Kind { return KindPlacement }
func (p *Placement) ID() UUID   { return p.UUID }

// Wire is a two-point wire segment
type Wire struct {
	Start Position
	End   Position
	UUID  UUID
}

func (w *Wire) Kind() Kind { return KindWire }
func (w *Wire) ID() UUID   { return w.UUID }

// Label is a local net label. It is electrically meaningful only when its
// position coincides exactly with a wire endpoint or a resolved pin.
type Label struct {
	Text     string
	Position Position
	Angle    geometry.Rotation
	UUID     UUID
}

func (l *Label) Kind() Kind { return KindLabel }
func (l *Label) ID() UUID   { return l.UUID }

// GlobalLabel is a net label visible across sheets
type GlobalLabel struct {
	Text     string
	Shape    string
	Position Position
	Angle    geometry.Rotation
	UUID     UUID
}

func (g *GlobalLabel) Kind() Kind { return KindGlobal }
func (g *GlobalLabel) ID() UUID   { return g.UUID }

// NoConnect marks a pin as intentionally unconnected
type NoConnect struct {
	Position Position
	UUID     UUID
}

func (n *NoConnect) Kind() Kind { return KindNoConnect }
func (n *NoConnect) ID() UUID   { return n.UUID }

// Junction is an explicit wire junction dot
type Junction struct {
	Position Position
	Diameter float64
	UUID     UUID
}

func (j *Junction) Kind() Kind { return KindJunction }
func (j *Junction) ID() UUID   { return j.UUID }

// TextNote is a free-text annotation
type TextNote struct {
	Text     string
	Position Position
	Size     float64
	UUID     UUID
}

func (t *TextNote) Kind() Kind { return KindText }
func (t *TextNote) ID() UUID   { return t.UUID }

// EmbeddedSymbol is a library symbol definition duplicated into the
// document's lib_symbols section for portability. The top-level name keeps
// its library qualifier ("Device:R"); nested sub-definitions must not.
type EmbeddedSymbol struct {
	Name string
	Def  *kicadsexp.List
}

func (e *EmbeddedSymbol) Kind() Kind { return KindLibSymbol }

// ID returns the symbol name; embedded definitions have no UUID in the
// file format, the name is their identity.
func (e *EmbeddedSymbol) ID() UUID { return UUID(e.Name) }

func (e *EmbeddedSymbol) toSexp(doc *Document) *kicadsexp.List {
	return e.Def.Clone()
}
