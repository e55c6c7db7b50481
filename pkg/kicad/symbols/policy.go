package symbols

// Driver policy: whether a net needs an explicit power-driver marker (a
// PWR_FLAG symbol) to satisfy ERC. A power-input pin must see something
// that sources power on its net; regulators and outputs count, plain
// passives and labels do not. Kept as a single decision table so the
// heuristic is testable on its own instead of being scattered through the
// builder.

// classTraits is the electrical-class row of the decision table.
type classTraits struct {
	// needsDriver: a net touching this class must be driven
	needsDriver bool
	// drives: this class satisfies power-input pins on its net
	drives bool
}

var driverTable = map[ElectricalClass]classTraits{
	ClassInput:         {},
	ClassOutput:        {drives: true},
	ClassBidirectional: {drives: true},
	ClassTriState:      {},
	ClassPassive:       {},
	ClassFree:          {},
	ClassUnspecified:   {},
	ClassPowerIn:       {needsDriver: true},
	ClassPowerOut:      {drives: true},
	ClassOpenCollector: {},
	ClassOpenEmitter:   {},
	ClassNoConnect:     {},
}

// Marker is the structural addition a net requires
type Marker int

const (
	MarkerNone Marker = iota
	// MarkerPowerFlag: net needs an explicit PWR_FLAG symbol
	MarkerPowerFlag
)

// RequiredMarker evaluates the decision table for a net touched by pins of
// the given classes. Unknown classes are treated as unspecified.
func RequiredMarker(classes []ElectricalClass) Marker {
	needsDriver := false
	driven := false
	for _, class := range classes {
		traits := driverTable[class]
		needsDriver = needsDriver || traits.needsDriver
		driven = driven || traits.drives
	}
	if needsDriver && !driven {
		return MarkerPowerFlag
	}
	return MarkerNone
}
