// Package sexp provides shared types and typed navigation helpers over the
// raw S-expression trees produced by the kicadsexp parser. It is the common
// layer under the symbol-catalog and schematic packages.
package sexp

import "fmt"

// Position represents a 2D coordinate in schematic space (millimeters,
// Y grows downward).
type Position struct {
	X float64
	Y float64
}

func (p Position) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y)
}

// Angle represents rotation in degrees
type Angle float64

// PositionAngle combines position with rotation
type PositionAngle struct {
	Position
	Angle Angle
}

// UUID represents a unique identifier (used in KiCad v6+ files)
type UUID string

// StructuralError reports a violated structural invariant of a document:
// unbalanced grouping delimiters or a missing required section.
type StructuralError struct {
	// Delta is the nesting-depth imbalance: opening minus closing
	// delimiters. Zero when the failure is a missing section instead.
	Delta   int
	Section string
	Msg     string
}

func (e *StructuralError) Error() string {
	switch {
	case e.Delta != 0:
		return fmt.Sprintf("structural error: unbalanced parentheses (depth delta %+d)", e.Delta)
	case e.Section != "":
		return fmt.Sprintf("structural error: missing required section %q", e.Section)
	default:
		return "structural error: " + e.Msg
	}
}
