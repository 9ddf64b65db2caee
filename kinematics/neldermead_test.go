package kinematics

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNelderMeadSolveDrivenArm(t *testing.T) {
	cfg := DefaultSolverConfig()
	cfg.ResidualTol = 1e-6
	solver := NewNelderMeadSolver(cfg, golog.NewTestLogger(t))

	lk := pivotArm(t)
	sol, err := solver.Solve(context.Background(), lk, nil, DrivingConstraint{Child: "arm", Parent: "base", Angle: 90})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol.Residual, test.ShouldBeLessThan, 1e-6)
	test.That(t, sol.Poses["arm"].Angle, test.ShouldAlmostEqual, 90, 1e-3)
	test.That(t, sol.Poses["arm"].Position.X, test.ShouldAlmostEqual, 0, 1e-3)
	test.That(t, sol.Poses["arm"].Position.Y, test.ShouldAlmostEqual, 50, 1e-3)

	// Committed, like the least-squares solver.
	arm, ok := lk.Link("arm")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, arm.Pose(), test.ShouldResemble, sol.Poses["arm"])
}

func TestNelderMeadDivergence(t *testing.T) {
	cfg := DefaultSolverConfig()
	cfg.ResidualTol = 1e-6
	solver := NewNelderMeadSolver(cfg, golog.NewTestLogger(t))

	lk := crankSlider(t, 80, 50)
	_, err := solver.Solve(context.Background(), lk, nil, DrivingConstraint{Child: "crank", Parent: "ground", Angle: 90})
	var divErr *DivergenceError
	test.That(t, errors.As(err, &divErr), test.ShouldBeTrue)
	test.That(t, divErr.Residual, test.ShouldBeGreaterThan, 1)
}

func TestNelderMeadConstraintBalance(t *testing.T) {
	solver := NewNelderMeadSolver(nil, golog.NewTestLogger(t))
	_, err := solver.Solve(context.Background(), fourBar(t), nil)
	var countErr *ConstraintCountError
	test.That(t, errors.As(err, &countErr), test.ShouldBeTrue)
}
