package kinematics

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/planarmech/linkage2d/linkage"
)

func TestFindDrivingJoint(t *testing.T) {
	j, err := FindDrivingJoint(fourBar(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, j.ID(), test.ShouldEqual, "R1")

	// A mechanism with no grounded-parent revolute has no natural input.
	welded := mustParse(t, &linkage.LinkageConfig{
		ID:        "welded",
		AngleUnit: "deg",
		Links: []linkage.LinkConfig{
			{ID: "base", Grounded: true},
			{ID: "bracket"},
		},
		Joints: []linkage.JointConfig{{
			ID:           "W1",
			Type:         linkage.JointTypeWeld,
			Parent:       "base",
			Child:        "bracket",
			RelativePose: &linkage.PoseConfig{},
		}},
	})
	_, err = FindDrivingJoint(welded)
	test.That(t, errors.Is(err, ErrNoDrivingJoint), test.ShouldBeTrue)
}

func TestSweepRange(t *testing.T) {
	test.That(t, SweepRange(0, 360, 5), test.ShouldResemble, []float64{0, 90, 180, 270, 360})
	test.That(t, SweepRange(30, 60, 1), test.ShouldResemble, []float64{30})
	test.That(t, SweepRange(0, 360, 0), test.ShouldBeNil)
}

func TestSweepFourBar(t *testing.T) {
	lk := fourBar(t)
	baseline := linkage.NewPoseState(lk).FreeVector()
	solver := newTestSolver(t)

	frames, err := Sweep(context.Background(), solver, lk, SweepConfig{
		Targets: SweepRange(0, 360, 90),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(frames), test.ShouldEqual, 90)

	// Warm starting holds each frame near its neighbor, keeping the sweep
	// on one assembly branch for the whole revolution.
	for i, frame := range frames {
		test.That(t, frame.Err, test.ShouldBeNil)
		test.That(t, frame.Solution, test.ShouldNotBeNil)
		test.That(t, frame.Solution.Poses["crank"].Angle, test.ShouldAlmostEqual, frame.Target, 1e-6)
		if i > 0 {
			prev := frames[i-1].Solution.Poses["coupler"].Angle
			cur := frame.Solution.Poses["coupler"].Angle
			test.That(t, math.Abs(cur-prev), test.ShouldBeLessThan, 15)
		}
	}
	first := frames[0].Solution.Poses["coupler"]
	last := frames[len(frames)-1].Solution.Poses["coupler"]
	test.That(t, last.Angle, test.ShouldAlmostEqual, first.Angle, 1e-4)
	test.That(t, last.Position.X, test.ShouldAlmostEqual, first.Position.X, 1e-4)

	// The swept mechanism itself is untouched.
	test.That(t, linkage.NewPoseState(lk).FreeVector(), test.ShouldResemble, baseline)
}

func TestSweepSkipUnreachable(t *testing.T) {
	solver := newTestSolver(t)
	targets := []float64{0, 30, 90, 35, 10}

	// Without skipping, the sweep aborts at the first unreachable frame
	// and returns the frames solved so far.
	frames, err := Sweep(context.Background(), solver, crankSlider(t, 80, 50), SweepConfig{Targets: targets})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sweep frame 2")
	test.That(t, len(frames), test.ShouldEqual, 2)

	// With skipping, the bad frame carries its error and the sweep resumes
	// from the last solved poses.
	frames, err = Sweep(context.Background(), solver, crankSlider(t, 80, 50), SweepConfig{
		Targets:         targets,
		SkipUnreachable: true,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(frames), test.ShouldEqual, 5)
	for i, frame := range frames {
		if i == 2 {
			var divErr *DivergenceError
			test.That(t, errors.As(frame.Err, &divErr), test.ShouldBeTrue)
			test.That(t, frame.Solution, test.ShouldBeNil)
			continue
		}
		test.That(t, frame.Err, test.ShouldBeNil)
		test.That(t, frame.Solution.Poses["crank"].Angle, test.ShouldAlmostEqual, frame.Target, 1e-6)
	}
}

func TestSweepDrivingJointSelection(t *testing.T) {
	solver := newTestSolver(t)

	frames, err := Sweep(context.Background(), solver, fourBar(t), SweepConfig{
		DrivingJointID: "R1",
		Targets:        []float64{15},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frames[0].Solution.Poses["crank"].Angle, test.ShouldAlmostEqual, 15, 1e-6)

	_, err = Sweep(context.Background(), solver, fourBar(t), SweepConfig{
		DrivingJointID: "R9",
		Targets:        []float64{15},
	})
	var refErr *linkage.ReferenceError
	test.That(t, errors.As(err, &refErr), test.ShouldBeTrue)

	_, err = Sweep(context.Background(), solver, crankSlider(t, 30, 100), SweepConfig{
		DrivingJointID: "P1",
		Targets:        []float64{15},
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not a revolute")
}

func TestSweepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frames, err := Sweep(ctx, newTestSolver(t), fourBar(t), SweepConfig{Targets: SweepRange(0, 90, 10)})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, len(frames), test.ShouldEqual, 0)
}
