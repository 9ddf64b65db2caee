package kinematics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/planarmech/linkage2d/linkage"
)

// DrivingConstraint pins the relative rotation between two links to a
// target angle in the document's angle unit, the way a motor or input
// crank holds a joint during one step of a motion.
type DrivingConstraint struct {
	// Child is the id of the driven link.
	Child string
	// Parent is the id of the link the angle is measured against.
	Parent string
	// Angle is the target for child angle minus parent angle, as a raw
	// difference with no wraparound.
	Angle float64
}

// constraintSystem flattens a mechanism into a residual function over the
// free pose vector. Row order is stable: every joint's rows in joint
// declaration order, then one row per driving constraint.
type constraintSystem struct {
	state   *linkage.PoseState
	joints  []linkage.Joint
	driving []DrivingConstraint
	rows    int
}

func newConstraintSystem(lk *linkage.Linkage, driving []DrivingConstraint) (*constraintSystem, error) {
	for _, d := range driving {
		if _, ok := lk.Link(d.Child); !ok {
			return nil, linkage.NewLinkReferenceError("", d.Child)
		}
		if _, ok := lk.Link(d.Parent); !ok {
			return nil, linkage.NewLinkReferenceError("", d.Parent)
		}
	}
	return &constraintSystem{
		state:   linkage.NewPoseState(lk),
		joints:  lk.Joints(),
		driving: driving,
		rows:    lk.ConstraintCount() + len(driving),
	}, nil
}

// residuals evaluates every row at the candidate pose vector x, reusing
// dst's backing array.
func (cs *constraintSystem) residuals(dst, x []float64) ([]float64, error) {
	if err := cs.state.SetFreeVector(x); err != nil {
		return nil, err
	}
	dst = dst[:0]
	var err error
	for _, j := range cs.joints {
		dst, err = j.AppendResiduals(dst, cs.state)
		if err != nil {
			return nil, err
		}
	}
	for _, d := range cs.driving {
		childPose, err := cs.state.Pose(d.Child)
		if err != nil {
			return nil, err
		}
		parentPose, err := cs.state.Pose(d.Parent)
		if err != nil {
			return nil, err
		}
		dst = append(dst, (childPose.Angle-parentPose.Angle)-d.Angle)
	}
	return dst, nil
}

// jacobian fills dst with forward-difference estimates of the residual
// derivatives at x, given the residuals r0 already evaluated there.
func (cs *constraintSystem) jacobian(dst *mat.Dense, x, r0 []float64, step float64) error {
	scratch := append([]float64(nil), x...)
	row := make([]float64, 0, cs.rows)
	for jcol := range x {
		h := step * math.Max(1, math.Abs(x[jcol]))
		scratch[jcol] = x[jcol] + h
		r1, err := cs.residuals(row, scratch)
		if err != nil {
			return err
		}
		for i := range r1 {
			dst.Set(i, jcol, (r1[i]-r0[i])/h)
		}
		scratch[jcol] = x[jcol]
		row = r1
	}
	return nil
}

// Residuals evaluates the mechanism's constraint rows at its current
// poses: every joint's rows in declaration order, then one row per
// driving constraint. A zero vector means the current poses satisfy every
// constraint.
func Residuals(lk *linkage.Linkage, driving ...DrivingConstraint) ([]float64, error) {
	cs, err := newConstraintSystem(lk, driving)
	if err != nil {
		return nil, err
	}
	return cs.residuals(nil, cs.state.FreeVector())
}
