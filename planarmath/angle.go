// Package planarmath implements the 2D pose math underlying planar mechanism
// solving: angle units, poses, and local-to-world transforms.
package planarmath

import (
	"math"

	"github.com/pkg/errors"
)

// AngleUnit is the unit every angle in a linkage document is expressed in.
type AngleUnit string

// The angle units a linkage document may declare.
const (
	Degrees = AngleUnit("deg")
	Radians = AngleUnit("rad")
)

// ParseAngleUnit validates a document's declared angle unit. An empty
// declaration means degrees.
func ParseAngleUnit(unit string) (AngleUnit, error) {
	switch unit {
	case "", string(Degrees):
		return Degrees, nil
	case string(Radians):
		return Radians, nil
	default:
		return "", errors.Errorf("unknown angle unit %q (expected %q or %q)", unit, Degrees, Radians)
	}
}

// ToRadians converts an angle in this unit to radians.
func (u AngleUnit) ToRadians(angle float64) float64 {
	if u == Degrees {
		return DegToRad(angle)
	}
	return angle
}

// FromRadians converts an angle in radians to this unit.
func (u AngleUnit) FromRadians(angle float64) float64 {
	if u == Degrees {
		return RadToDeg(angle)
	}
	return angle
}

// FullTurn returns one complete revolution in this unit.
func (u AngleUnit) FullTurn() float64 {
	if u == Degrees {
		return 360
	}
	return 2 * math.Pi
}
