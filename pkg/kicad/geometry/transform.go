// Package geometry maps component-local pin offsets into absolute schematic
// coordinates. Symbol libraries use Y-up (math convention) while schematic
// files use Y-down (screen convention), so the 0 and 180 degree cases must
// negate the local Y; a transform without that negation is wrong even though
// it looks plausible on symmetric symbols.
package geometry

import (
	"fmt"
	"math"

	"github.com/kenchangh/kicad-schematic/pkg/kicad/sexp"
)

// Grid is the KiCad default schematic grid in mm (50 mil). Every generated
// coordinate must land on a multiple of it or ERC sees phantom misses.
const Grid = 1.27

// Rotation is a symbol rotation in degrees, restricted to quarter turns.
type Rotation int

const (
	R0   Rotation = 0
	R90  Rotation = 90
	R180 Rotation = 180
	R270 Rotation = 270
)

// Valid reports whether r is one of the four supported quarter turns
func (r Rotation) Valid() bool {
	switch r {
	case R0, R90, R180, R270:
		return true
	}
	return false
}

// InvalidRotationError indicates a rotation outside {0, 90, 180, 270}.
// It signals a construction bug in the caller, not recoverable input.
type InvalidRotationError struct {
	Rotation Rotation
}

func (e *InvalidRotationError) Error() string {
	return fmt.Sprintf("rotation must be 0, 90, 180, or 270, got %d", int(e.Rotation))
}

// Snap rounds a coordinate to the nearest grid point
func Snap(v float64) float64 {
	return math.Round(v/Grid) * Grid
}

// SnapPos snaps both components of a position to the grid
func SnapPos(p sexp.Position) sexp.Position {
	return sexp.Position{X: Snap(p.X), Y: Snap(p.Y)}
}

// PinOffset transforms a pin position from library space into a schematic
// offset relative to the symbol anchor:
//
//	Rotation 0:   ( lx, -ly)
//	Rotation 90:  ( ly,  lx)
//	Rotation 180: (-lx,  ly)
//	Rotation 270: (-ly, -lx)
func PinOffset(lx, ly float64, rot Rotation) (float64, float64, error) {
	switch rot {
	case R0:
		return lx, -ly, nil
	case R90:
		return ly, lx, nil
	case R180:
		return -lx, ly, nil
	case R270:
		return -ly, -lx, nil
	default:
		return 0, 0, &InvalidRotationError{Rotation: rot}
	}
}

// PinAbsolute computes the absolute schematic position of a pin given the
// symbol placement. mirrorY flips the local X before the rotation is
// applied, matching eeschema's (mirror y) semantics. No snapping happens
// here: with an on-grid anchor and on-grid pin offsets the result is on
// grid already, and snapping would silently move pins of an off-grid
// anchor instead of surfacing the fault.
func PinAbsolute(anchor sexp.Position, lx, ly float64, rot Rotation, mirrorY bool) (sexp.Position, error) {
	if mirrorY {
		lx = -lx
	}
	dx, dy, err := PinOffset(lx, ly, rot)
	if err != nil {
		return sexp.Position{}, err
	}
	return sexp.Position{X: anchor.X + dx, Y: anchor.Y + dy}, nil
}
