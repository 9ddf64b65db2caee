package kinematics

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoFreeLinks is returned when a mechanism has nothing to solve for:
// every link is grounded.
var ErrNoFreeLinks = errors.New("mechanism has no free links to solve for")

// ErrNoDrivingJoint is returned when no revolute joint with a grounded
// parent and a free child exists to drive a sweep with.
var ErrNoDrivingJoint = errors.New("mechanism has no revolute joint on a grounded link to drive")

// DivergenceError reports a solve that failed to bring the residual norm
// under tolerance. The mechanism's poses are left untouched.
type DivergenceError struct {
	// Iterations is how many solver iterations ran before giving up.
	Iterations int
	// Residual is the best residual norm reached.
	Residual float64
	// Reason describes which limit stopped the solve.
	Reason string
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("did not converge after %d iterations: residual norm %.6g (%s)", e.Iterations, e.Residual, e.Reason)
}

// ConstraintCountError reports a mechanism whose constraint rows do not
// match its free pose parameters, so a solve would be under- or
// overconstrained.
type ConstraintCountError struct {
	// Constraints is the number of residual rows, driving rows included.
	Constraints int
	// DoF is the number of free pose parameters.
	DoF int
}

func (e *ConstraintCountError) Error() string {
	kind := "overconstrained"
	if e.Constraints < e.DoF {
		kind = "underconstrained"
	}
	return fmt.Sprintf("mechanism is %s: %d constraint rows for %d free pose parameters", kind, e.Constraints, e.DoF)
}

// LimitError reports a prismatic joint whose travel sits outside its
// declared limits.
type LimitError struct {
	// Joint is the offending joint's id.
	Joint string
	// Travel is the signed travel along the parent axis.
	Travel float64
	// Min and Max are the declared bounds.
	Min float64
	Max float64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("joint %q travel %.6g is outside limits [%g, %g]", e.Joint, e.Travel, e.Min, e.Max)
}

// NewSeedLengthError returns an error for a seed vector whose length does
// not match the mechanism's free pose parameters.
func NewSeedLengthError(got, want int) error {
	return errors.Errorf("seed vector has %d values; mechanism has %d free pose parameters", got, want)
}
