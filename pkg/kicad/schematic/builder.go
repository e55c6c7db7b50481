package schematic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/geometry"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp/kicadsexp"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/symbols"
)

// Stub describes the short wire drawn from a pin to its net label: the
// grid-aligned offset from the pin endpoint, and the label's rotation.
type Stub struct {
	DX         float64
	DY         float64
	LabelAngle geometry.Rotation
}

type pinAddr struct {
	ref    string
	number string
}

// Builder constructs a schematic incrementally against a symbol catalog.
// It tracks per-pin connection state so that duplicate connections and
// connect/no-connect conflicts are rejected at build time instead of
// surfacing as ERC violations later.
type Builder struct {
	doc      *Document
	catalog  *symbols.Catalog
	pwrCount int
	// connected maps a resolved pin to the net it is labeled with
	connected  map[pinAddr]string
	noConnects map[pinAddr]bool
}

// NewBuilder creates a builder producing a fresh document for the given
// project name.
func NewBuilder(project string, catalog *symbols.Catalog) *Builder {
	return &Builder{
		doc:        NewDocument(project),
		catalog:    catalog,
		connected:  make(map[pinAddr]string),
		noConnects: make(map[pinAddr]bool),
	}
}

// Document returns the document under construction
func (b *Builder) Document() *Document {
	return b.doc
}

// Place puts a symbol on the schematic at a grid-snapped position and
// embeds its library definition into the document. The symbol must exist
// in the catalog.
func (b *Builder) Place(libID, reference, value string, pos Position, rot geometry.Rotation, mirrorY bool) (*Placement, error) {
	if !rot.Valid() {
		return nil, &geometry.InvalidRotationError{Rotation: rot}
	}
	if _, ok := b.catalog.Get(libID); !ok {
		return nil, &UnknownSymbolError{LibID: libID}
	}
	if err := b.EmbedSymbol(libID); err != nil {
		return nil, err
	}

	p := &Placement{
		LibID:     libID,
		Reference: reference,
		Value:     value,
		Position:  geometry.SnapPos(pos),
		Rotation:  rot,
		MirrorY:   mirrorY,
		Unit:      1,
		UUID:      NewID(),
	}
	b.doc.Insert(p)
	return p, nil
}

// PlacePower places a power symbol (GND, +3V3, PWR_FLAG, ...) with an
// auto-generated #PWRnnn reference. Power pins join the net at their
// position, so the placement is excluded from pin completeness checks.
func (b *Builder) PlacePower(libID string, pos Position, rot geometry.Rotation) (*Placement, error) {
	value := libID
	if idx := strings.IndexByte(libID, ':'); idx >= 0 {
		value = libID[idx+1:]
	}
	b.pwrCount++
	ref := fmt.Sprintf("#PWR%03d", b.pwrCount)

	p, err := b.Place(libID, ref, value, pos, rot, false)
	if err != nil {
		b.pwrCount--
		return nil, err
	}
	p.Power = true
	return p, nil
}

// EmbedSymbol copies a catalog definition into the document's lib_symbols
// section. The top-level name keeps its library qualifier; nested
// sub-definition names must not carry it, so the copied tree is rewritten
// before insertion. Embedding the same symbol twice is a no-op.
func (b *Builder) EmbedSymbol(libID string) error {
	def, ok := b.catalog.Get(libID)
	if !ok {
		return &UnknownSymbolError{LibID: libID}
	}
	if _, ok := b.doc.EmbeddedSymbol(libID); ok {
		return nil
	}

	raw := def.Raw()
	if raw == nil {
		return &UnknownSymbolError{LibID: libID}
	}
	raw.ReplaceAt(1, kicadsexp.Str(libID))
	stripNestedQualifiers(raw)

	b.doc.Insert(&EmbeddedSymbol{Name: libID, Def: raw})
	return nil
}

// stripNestedQualifiers removes the "Lib:" prefix from sub-definition
// names nested under a top-level symbol definition. Only the nested
// (symbol "...") blocks change; the root name is left alone.
func stripNestedQualifiers(root *kicadsexp.List) {
	for _, sub := range sexp.FindAllNodes(root, "symbol") {
		name, err := sexp.GetString(sub, 1)
		if err != nil {
			continue
		}
		if idx := strings.IndexByte(name, ':'); idx >= 0 {
			sub.ReplaceAt(1, kicadsexp.Str(name[idx+1:]))
		}
		stripNestedQualifiers(sub)
	}
}

// resolvePin finds a pin on a placed symbol by key, matching the pin name
// first and falling back to the pin number.
func (b *Builder) resolvePin(p *Placement, pinKey string) (*symbols.PinDef, error) {
	def, ok := b.catalog.Get(p.LibID)
	if !ok {
		return nil, &UnknownSymbolError{LibID: p.LibID}
	}
	if pin, ok := def.PinByName(pinKey); ok {
		return pin, nil
	}
	if pin, ok := def.PinByNumber(pinKey); ok {
		return pin, nil
	}
	return nil, &UnknownPinError{Reference: p.Reference, Pin: pinKey, LibID: p.LibID}
}

// PinPosition computes the absolute schematic position of a pin endpoint
// on a placed symbol, applying mirror, rotation and the Y-axis flip from
// library to schematic space.
func (b *Builder) PinPosition(reference, pinKey string) (Position, error) {
	p, ok := b.doc.Placement(reference)
	if !ok {
		return Position{}, fmt.Errorf("no placement with reference %q", reference)
	}
	pin, err := b.resolvePin(p, pinKey)
	if err != nil {
		return Position{}, err
	}
	return geometry.PinAbsolute(p.Position, pin.X, pin.Y, p.Rotation, p.MirrorY)
}

// ConnectPin attaches a pin to a named net: a stub wire from the pin
// endpoint plus a local label at the far end. A pin takes exactly one
// connection; a second attempt is a DuplicateConnectionError even for the
// same net, and a connection on a no-connect pin is a PinConflictError.
func (b *Builder) ConnectPin(reference, pinKey, net string, stub Stub) error {
	p, ok := b.doc.Placement(reference)
	if !ok {
		return fmt.Errorf("no placement with reference %q", reference)
	}
	pin, err := b.resolvePin(p, pinKey)
	if err != nil {
		return err
	}

	addr := pinAddr{ref: reference, number: pin.Number}
	if b.noConnects[addr] {
		return &PinConflictError{Reference: reference, Pin: pinKey}
	}
	if _, dup := b.connected[addr]; dup {
		return &DuplicateConnectionError{Reference: reference, Pin: pinKey, Net: net}
	}

	start, err := geometry.PinAbsolute(p.Position, pin.X, pin.Y, p.Rotation, p.MirrorY)
	if err != nil {
		return err
	}
	// Snap the resolved endpoint so the wire start coincides exactly with
	// the pin on the grid; the raw transform result can be off by an ulp.
	start = geometry.SnapPos(start)
	end := geometry.SnapPos(Position{X: start.X + stub.DX, Y: start.Y + stub.DY})

	// A zero-offset stub still gets its wire: the zero-length segment pins
	// the label to the pin endpoint.
	b.doc.Insert(&Wire{Start: start, End: end, UUID: NewID()})
	b.doc.Insert(&Label{Text: net, Position: end, Angle: stub.LabelAngle, UUID: NewID()})

	b.connected[addr] = net
	return nil
}

// MarkNoConnect flags a pin as intentionally unconnected. Mutually
// exclusive with ConnectPin on the same pin.
func (b *Builder) MarkNoConnect(reference, pinKey string) error {
	p, ok := b.doc.Placement(reference)
	if !ok {
		return fmt.Errorf("no placement with reference %q", reference)
	}
	pin, err := b.resolvePin(p, pinKey)
	if err != nil {
		return err
	}

	addr := pinAddr{ref: reference, number: pin.Number}
	if _, connected := b.connected[addr]; connected {
		return &PinConflictError{Reference: reference, Pin: pinKey}
	}
	if b.noConnects[addr] {
		return nil
	}

	pos, err := geometry.PinAbsolute(p.Position, pin.X, pin.Y, p.Rotation, p.MirrorY)
	if err != nil {
		return err
	}
	b.doc.Insert(&NoConnect{Position: geometry.SnapPos(pos), UUID: NewID()})
	b.noConnects[addr] = true
	return nil
}

// Wire adds a free wire segment with grid-snapped endpoints
func (b *Builder) Wire(start, end Position) *Wire {
	w := &Wire{
		Start: geometry.SnapPos(start),
		End:   geometry.SnapPos(end),
		UUID:  NewID(),
	}
	b.doc.Insert(w)
	return w
}

// Label adds a free local net label
func (b *Builder) Label(text string, pos Position, angle geometry.Rotation) *Label {
	l := &Label{Text: text, Position: geometry.SnapPos(pos), Angle: angle, UUID: NewID()}
	b.doc.Insert(l)
	return l
}

// GlobalLabel adds a global net label
func (b *Builder) GlobalLabel(text, shape string, pos Position, angle geometry.Rotation) *GlobalLabel {
	g := &GlobalLabel{Text: text, Shape: shape, Position: geometry.SnapPos(pos), Angle: angle, UUID: NewID()}
	b.doc.Insert(g)
	return g
}

// Text adds a free-text annotation
func (b *Builder) Text(text string, pos Position) *TextNote {
	t := &TextNote{Text: text, Position: geometry.SnapPos(pos), UUID: NewID()}
	b.doc.Insert(t)
	return t
}

// Place2PinVertical places a two-pin part vertically and connects pin 1
// (top) and pin 2 (bottom) to the given nets with short stubs. This is the
// common pattern for resistors, capacitors and LEDs in a vertical run.
func (b *Builder) Place2PinVertical(libID, reference, value string, pos Position, topNet, bottomNet string) (*Placement, error) {
	p, err := b.Place(libID, reference, value, pos, 0, false)
	if err != nil {
		return nil, err
	}
	if err := b.ConnectPin(reference, "1", topNet, Stub{DY: -geometry.Grid}); err != nil {
		return nil, err
	}
	if err := b.ConnectPin(reference, "2", bottomNet, Stub{DY: geometry.Grid}); err != nil {
		return nil, err
	}
	return p, nil
}

// Place2PinHorizontal places a two-pin part rotated to horizontal and
// connects pin 1 (left) and pin 2 (right) to the given nets.
func (b *Builder) Place2PinHorizontal(libID, reference, value string, pos Position, leftNet, rightNet string) (*Placement, error) {
	p, err := b.Place(libID, reference, value, pos, geometry.R90, false)
	if err != nil {
		return nil, err
	}
	if err := b.ConnectPin(reference, "1", leftNet, Stub{DX: -geometry.Grid}); err != nil {
		return nil, err
	}
	if err := b.ConnectPin(reference, "2", rightNet, Stub{DX: geometry.Grid}); err != nil {
		return nil, err
	}
	return p, nil
}

// CompletenessCheck reports every pin on a placed symbol that has neither
// a connection nor a no-connect marker. Power placements are skipped:
// their hidden pin joins its net by position. An empty result means the
// schematic is pin-complete.
func (b *Builder) CompletenessCheck() []UnresolvedPin {
	var out []UnresolvedPin
	for _, p := range b.doc.Placements() {
		if p.Power {
			continue
		}
		def, ok := b.catalog.Get(p.LibID)
		if !ok {
			continue
		}
		for _, pin := range def.Pins {
			addr := pinAddr{ref: p.Reference, number: pin.Number}
			if _, connected := b.connected[addr]; connected {
				continue
			}
			if b.noConnects[addr] {
				continue
			}
			out = append(out, UnresolvedPin{
				Reference: p.Reference,
				Pin:       pin.Name,
				Number:    pin.Number,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reference != out[j].Reference {
			return out[i].Reference < out[j].Reference
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// NetClasses returns the electrical classes of every pin connected to the
// given net, for power-flag policy evaluation. Order follows placement
// insertion order, then the library's pin order.
func (b *Builder) NetClasses(net string) []symbols.ElectricalClass {
	var out []symbols.ElectricalClass
	for _, p := range b.doc.Placements() {
		def, ok := b.catalog.Get(p.LibID)
		if !ok {
			continue
		}
		for _, pin := range def.Pins {
			addr := pinAddr{ref: p.Reference, number: pin.Number}
			if n, ok := b.connected[addr]; ok && n == net {
				out = append(out, pin.Class)
			}
		}
	}
	return out
}
