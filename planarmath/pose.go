package planarmath

import (
	"math"

	"github.com/golang/geo/r2"
)

// Pose places a rigid body in the plane: a 2D position plus a rotation
// angle, CCW positive. The angle is stored in the owning document's
// declared unit, so methods that need trigonometry take the unit
// explicitly rather than assuming one.
type Pose struct {
	Position r2.Point
	Angle    float64
}

// NewPose returns a pose at the given position and angle.
func NewPose(x, y, angle float64) Pose {
	return Pose{Position: r2.Point{X: x, Y: y}, Angle: angle}
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return Pose{}
}

// TransformPoint maps a point in the pose's local frame to world
// coordinates, world = Rotate(angle)·local + position.
func (p Pose) TransformPoint(local r2.Point, unit AngleUnit) r2.Point {
	rad := unit.ToRadians(p.Angle)
	cosA := math.Cos(rad)
	sinA := math.Sin(rad)
	return r2.Point{
		X: cosA*local.X - sinA*local.Y + p.Position.X,
		Y: sinA*local.X + cosA*local.Y + p.Position.Y,
	}
}

// TransformDirection maps a direction fixed in the pose's local frame,
// given as an angle from the local x axis, to a world unit vector.
// Directions rotate with the pose but do not translate.
func (p Pose) TransformDirection(localAngle float64, unit AngleUnit) r2.Point {
	rad := unit.ToRadians(p.Angle + localAngle)
	return r2.Point{X: math.Cos(rad), Y: math.Sin(rad)}
}

// PoseAlmostEqual compares both position components and the angle of two
// poses against epsilon.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	return R2VectorAlmostEqual(a.Position, b.Position, epsilon) &&
		Float64AlmostEqual(a.Angle, b.Angle, epsilon)
}
