package kinematics

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/planarmech/linkage2d/linkage"
)

// FindDrivingJoint returns the mechanism's natural input: the first
// revolute joint, in declaration order, whose parent link is grounded and
// whose child link is free.
func FindDrivingJoint(lk *linkage.Linkage) (*linkage.RevoluteJoint, error) {
	for _, j := range lk.Joints() {
		revolute, ok := j.(*linkage.RevoluteJoint)
		if !ok {
			continue
		}
		parent, ok := lk.Link(revolute.Parent())
		if !ok || !parent.Grounded() {
			continue
		}
		child, ok := lk.Link(revolute.Child())
		if !ok || child.Grounded() {
			continue
		}
		return revolute, nil
	}
	return nil, ErrNoDrivingJoint
}

// SweepRange returns count driving angles evenly spaced from start to end,
// both endpoints included.
func SweepRange(start, end float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []float64{start}
	}
	targets := make([]float64, count)
	floats.Span(targets, start, end)
	return targets
}

// SweepConfig describes a motion sweep: which joint to drive and through
// which targets.
type SweepConfig struct {
	// DrivingJointID names the revolute joint whose child link angle is
	// driven relative to its parent. Empty selects FindDrivingJoint's
	// choice.
	DrivingJointID string
	// Targets are the driving angles to solve, in the document's angle
	// unit.
	Targets []float64
	// SkipUnreachable records a frame's divergence and carries on from the
	// last solved poses instead of aborting the sweep.
	SkipUnreachable bool
}

// Frame is one step of a sweep: the driving angle asked for and either
// the solution found or the error that frame hit.
type Frame struct {
	Target   float64
	Solution *Solution
	Err      error
}

// Sweep solves the mechanism through a sequence of driving angles,
// warm-starting each frame from the previous frame's solution. The input
// mechanism is never mutated; frames carry the solved pose maps. On an
// aborted sweep the frames solved so far are returned along with the
// error.
func Sweep(ctx context.Context, solver Solver, lk *linkage.Linkage, cfg SweepConfig) ([]Frame, error) {
	var driving *linkage.RevoluteJoint
	if cfg.DrivingJointID == "" {
		var err error
		if driving, err = FindDrivingJoint(lk); err != nil {
			return nil, err
		}
	} else {
		j, ok := lk.Joint(cfg.DrivingJointID)
		if !ok {
			return nil, linkage.NewJointReferenceError(cfg.DrivingJointID)
		}
		if driving, ok = j.(*linkage.RevoluteJoint); !ok {
			return nil, errors.Errorf("driving joint %q is not a revolute joint", cfg.DrivingJointID)
		}
	}

	work := lk.Clone()
	frames := make([]Frame, 0, len(cfg.Targets))
	for i, target := range cfg.Targets {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		sol, err := solver.Solve(ctx, work, nil, DrivingConstraint{
			Child:  driving.Child(),
			Parent: driving.Parent(),
			Angle:  target,
		})
		if err != nil {
			var divErr *DivergenceError
			if cfg.SkipUnreachable && errors.As(err, &divErr) {
				frames = append(frames, Frame{Target: target, Err: err})
				continue
			}
			return frames, errors.Wrapf(err, "sweep frame %d (target %v)", i, target)
		}
		frames = append(frames, Frame{Target: target, Solution: sol})
	}
	return frames, nil
}
