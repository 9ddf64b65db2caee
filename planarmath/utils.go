package planarmath

import (
	"math"

	"github.com/golang/geo/r2"
)

func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Float64AlmostEqual compares two float64s and returns whether the
// difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// R2VectorAlmostEqual compares two vectors componentwise against epsilon.
func R2VectorAlmostEqual(a, b r2.Point, epsilon float64) bool {
	return Float64AlmostEqual(a.X, b.X, epsilon) && Float64AlmostEqual(a.Y, b.Y, epsilon)
}
