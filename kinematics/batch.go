package kinematics

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/planarmech/linkage2d/linkage"
)

// SolveAll solves a batch of mechanisms concurrently, at most maxParallel
// at a time (unlimited when maxParallel <= 0). driving may be nil, or one
// constraint set per mechanism. Each mechanism is solved in place, the way
// Solver.Solve does; one mechanism's failure never cancels the others.
// The returned slice is indexed like lks with nil entries where a solve
// failed, and the error aggregates every failure.
func SolveAll(
	ctx context.Context,
	solver Solver,
	lks []*linkage.Linkage,
	driving [][]DrivingConstraint,
	maxParallel int,
) ([]*Solution, error) {
	if driving != nil && len(driving) != len(lks) {
		return nil, errors.Errorf("have %d driving constraint sets for %d mechanisms", len(driving), len(lks))
	}
	solutions := make([]*Solution, len(lks))
	solveErrs := make([]error, len(lks))
	var group errgroup.Group
	if maxParallel > 0 {
		group.SetLimit(maxParallel)
	}
	for i, lk := range lks {
		group.Go(func() error {
			var d []DrivingConstraint
			if driving != nil {
				d = driving[i]
			}
			sol, err := solver.Solve(ctx, lk, nil, d...)
			if err != nil {
				solveErrs[i] = errors.Wrapf(err, "mechanism %q", lk.ID())
				return nil
			}
			solutions[i] = sol
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return solutions, multierr.Combine(solveErrs...)
}
