package schematic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/geometry"
	"github.com/kenchangh/kicad-schematic/pkg/kicad/symbols"
)

const testLibrary = `(kicad_symbol_lib
	(version 20231120)
	(symbol "Device:R"
		(pin_numbers hide)
		(property "Reference" "R" (at 2.032 0 90))
		(symbol "Device:R_0_1"
			(rectangle (start -1.016 -2.54) (end 1.016 2.54))
		)
		(symbol "Device:R_1_1"
			(pin passive line (at 0 2.54 270) (length 0) (name "~") (number "1"))
			(pin passive line (at 0 -2.54 90) (length 0) (name "~") (number "2"))
		)
	)
	(symbol "Conn:J"
		(symbol "Conn:J_1_1"
			(pin input line (at -17.78 25.4 0) (length 2.54) (name "IN") (number "1"))
			(pin output line (at -17.78 -25.4 0) (length 2.54) (name "OUT") (number "2"))
		)
	)
	(symbol "power:GND"
		(power)
		(symbol "power:GND_1_1"
			(pin power_in line (at 0 0 270) (length 0) (name "GND") (number "1") hide)
		)
	)
)`

func testCatalog(t *testing.T) *symbols.Catalog {
	t.Helper()
	c := symbols.NewCatalog()
	require.NoError(t, c.Load(strings.NewReader(testLibrary)))
	return c
}

func assertPos(t *testing.T, want, got Position) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
}

func TestPlaceTwoPinEndToEnd(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))

	// 127 is on the 1.27 grid, so Place does not move the anchor
	_, err := b.Place("Device:R", "R1", "10k", Position{X: 127, Y: 127}, 0, false)
	require.NoError(t, err)
	require.NoError(t, b.ConnectPin("R1", "1", "VCC", Stub{}))
	require.NoError(t, b.ConnectPin("R1", "2", "GND", Stub{}))

	doc := b.Document()
	wires := doc.Wires()
	require.Len(t, wires, 2)
	for _, w := range wires {
		assert.Equal(t, w.Start, w.End, "zero-offset stub wires have zero length")
	}

	labels := doc.Labels()
	require.Len(t, labels, 2)
	// Local pin (0, 2.54) lands above the anchor in schematic space
	assertPos(t, Position{X: 127, Y: 124.46}, labels[0].Position)
	assert.Equal(t, "VCC", labels[0].Text)
	assertPos(t, Position{X: 127, Y: 129.54}, labels[1].Position)
	assert.Equal(t, "GND", labels[1].Text)
}

func TestPinPositionYNegation(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))
	// On-grid anchor: 317.5 = 250 * 1.27, 203.2 = 160 * 1.27
	_, err := b.Place("Conn:J", "J1", "conn", Position{X: 317.5, Y: 203.2}, 0, false)
	require.NoError(t, err)

	// Pin IN sits at local (-17.78, 25.4); the positive library Y maps
	// upward on the sheet, so the absolute Y is anchor minus offset.
	pos, err := b.PinPosition("J1", "IN")
	require.NoError(t, err)
	assert.InDelta(t, 299.72, pos.X, 1e-9)
	assert.InDelta(t, 177.80, pos.Y, 1e-9)
}

func TestPlaceErrors(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))

	_, err := b.Place("Device:Nonexistent", "U1", "x", Position{}, 0, false)
	var unknownSym *UnknownSymbolError
	require.ErrorAs(t, err, &unknownSym)
	assert.Equal(t, "Device:Nonexistent", unknownSym.LibID)

	_, err = b.Place("Device:R", "R1", "1k", Position{}, 45, false)
	var rotErr *geometry.InvalidRotationError
	require.ErrorAs(t, err, &rotErr)
}

func TestConnectPinErrors(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))
	_, err := b.Place("Device:R", "R1", "1k", Position{X: 50, Y: 50}, 0, false)
	require.NoError(t, err)

	t.Run("unknown pin", func(t *testing.T) {
		err := b.ConnectPin("R1", "99", "NET", Stub{})
		var unknownPin *UnknownPinError
		require.ErrorAs(t, err, &unknownPin)
		assert.Equal(t, "99", unknownPin.Pin)
	})

	t.Run("duplicate connection same net", func(t *testing.T) {
		require.NoError(t, b.ConnectPin("R1", "1", "VCC", Stub{}))
		err := b.ConnectPin("R1", "1", "VCC", Stub{})
		var dup *DuplicateConnectionError
		require.ErrorAs(t, err, &dup)
	})

	t.Run("no-connect then connect conflicts", func(t *testing.T) {
		require.NoError(t, b.MarkNoConnect("R1", "2"))
		err := b.ConnectPin("R1", "2", "GND", Stub{})
		var conflict *PinConflictError
		require.ErrorAs(t, err, &conflict)
	})
}

func TestConnectThenNoConnectConflicts(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))
	_, err := b.Place("Device:R", "R1", "1k", Position{X: 50, Y: 50}, 0, false)
	require.NoError(t, err)
	require.NoError(t, b.ConnectPin("R1", "1", "VCC", Stub{}))

	err = b.MarkNoConnect("R1", "1")
	var conflict *PinConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestConnectPinByName(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))
	_, err := b.Place("Conn:J", "J1", "conn", Position{X: 100, Y: 100}, 0, false)
	require.NoError(t, err)

	require.NoError(t, b.ConnectPin("J1", "IN", "SIG", Stub{DX: -geometry.Grid}))
	// Name resolution and number resolution address the same pin
	err = b.ConnectPin("J1", "1", "SIG", Stub{})
	var dup *DuplicateConnectionError
	require.ErrorAs(t, err, &dup)
}

func TestConnectPinStubGeometry(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))
	_, err := b.Place("Device:R", "R1", "1k", Position{X: 127, Y: 127}, 0, false)
	require.NoError(t, err)

	require.NoError(t, b.ConnectPin("R1", "1", "VCC", Stub{DY: -2.54, LabelAngle: geometry.R90}))

	doc := b.Document()
	wires := doc.Wires()
	require.Len(t, wires, 1)
	assertPos(t, Position{X: 127, Y: 124.46}, wires[0].Start)
	assertPos(t, Position{X: 127, Y: 121.92}, wires[0].End)

	labels := doc.Labels()
	require.Len(t, labels, 1)
	assert.Equal(t, wires[0].End, labels[0].Position, "label sits at the stub's far end")
	assert.Equal(t, geometry.R90, labels[0].Angle)
}

func TestPlacePower(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))

	p1, err := b.PlacePower("power:GND", Position{X: 100, Y: 110}, 0)
	require.NoError(t, err)
	p2, err := b.PlacePower("power:GND", Position{X: 200, Y: 110}, 0)
	require.NoError(t, err)

	assert.Equal(t, "#PWR001", p1.Reference)
	assert.Equal(t, "#PWR002", p2.Reference)
	assert.Equal(t, "GND", p1.Value)
	assert.True(t, p1.Power)

	// Power pins join by position, not by explicit connection
	assert.Empty(t, b.CompletenessCheck())
}

func TestCompletenessCheck(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))
	_, err := b.Place("Device:R", "R1", "1k", Position{X: 50, Y: 50}, 0, false)
	require.NoError(t, err)
	_, err = b.Place("Device:R", "R2", "2k", Position{X: 70, Y: 50}, 0, false)
	require.NoError(t, err)

	require.NoError(t, b.ConnectPin("R1", "1", "A", Stub{}))
	require.NoError(t, b.ConnectPin("R1", "2", "B", Stub{}))
	require.NoError(t, b.MarkNoConnect("R2", "1"))

	unresolved := b.CompletenessCheck()
	require.Len(t, unresolved, 1)
	assert.Equal(t, "R2", unresolved[0].Reference)
	assert.Equal(t, "2", unresolved[0].Number)
}

func TestNetClassesOrder(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))
	_, err := b.Place("Device:R", "R1", "1k", Position{X: 127, Y: 127}, 0, false)
	require.NoError(t, err)
	_, err = b.Place("Conn:J", "J1", "conn", Position{X: 254, Y: 127}, 0, false)
	require.NoError(t, err)

	require.NoError(t, b.ConnectPin("J1", "OUT", "SIG", Stub{DX: -geometry.Grid}))
	require.NoError(t, b.ConnectPin("R1", "1", "SIG", Stub{}))
	require.NoError(t, b.ConnectPin("R1", "2", "GND", Stub{}))

	// Placement insertion order, then library pin order, regardless of
	// the order the connections were made in.
	want := []symbols.ElectricalClass{symbols.ClassPassive, symbols.ClassOutput}
	assert.Equal(t, want, b.NetClasses("SIG"))
	assert.Equal(t, want, b.NetClasses("SIG"), "repeat calls agree")
	assert.Empty(t, b.NetClasses("MISSING"))
}

func TestEmbedSymbolStripsNestedQualifiers(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))
	require.NoError(t, b.EmbedSymbol("Device:R"))
	// Embedding twice is a no-op
	require.NoError(t, b.EmbedSymbol("Device:R"))
	require.Len(t, b.Document().LibSymbols, 1)

	text, err := b.Document().Serialize()
	require.NoError(t, err)

	assert.Contains(t, text, `(symbol "Device:R"`, "top-level name keeps its qualifier")
	assert.Contains(t, text, `(symbol "R_0_1"`)
	assert.Contains(t, text, `(symbol "R_1_1"`)
	assert.NotContains(t, text, `"Device:R_0_1"`)
	assert.NotContains(t, text, `"Device:R_1_1"`)
}

func TestGridSnappingOnPlace(t *testing.T) {
	b := NewBuilder("test", testCatalog(t))
	p, err := b.Place("Device:R", "R1", "1k", Position{X: 100.1, Y: 99.9}, 0, false)
	require.NoError(t, err)
	assert.InDelta(t, 100.33, p.Position.X, 1e-9)
	assert.InDelta(t, 100.33, p.Position.Y, 1e-9)
}
