// Package kinematics assembles a planar mechanism's joint constraints into
// a residual system over the free link poses and solves it numerically.
// The damped least-squares solver is the workhorse; a derivative-free
// fallback, a sweep driver for motion sequences, and batch solving build
// on the same residual assembly.
package kinematics

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/planarmech/linkage2d/linkage"
	"github.com/planarmech/linkage2d/planarmath"
)

// Damping escalation bounds for the least-squares solver.
const (
	minDamping    = 1e-12
	maxDamping    = 1e12
	diagonalFloor = 1e-12
)

// Solution is a converged solve: the full pose map to adopt, the raw free
// pose vector, and how hard the solver worked for it.
type Solution struct {
	// Poses holds every link's pose keyed by link id, grounded links
	// included.
	Poses map[string]planarmath.Pose
	// Vector is the free pose vector in PoseState packing order.
	Vector []float64
	// Residual is the final residual norm.
	Residual float64
	// Iterations is how many solver iterations ran.
	Iterations int
}

// Solver finds link poses satisfying a mechanism's constraints plus any
// driving constraints. On success the poses are committed to the
// mechanism; on failure the mechanism is left untouched. A non-nil seed
// overrides the mechanism's current poses as the starting point.
type Solver interface {
	Solve(ctx context.Context, lk *linkage.Linkage, seed []float64, driving ...DrivingConstraint) (*Solution, error)
}

// LeastSquaresSolver solves the constraint system with Levenberg-Marquardt
// iteration on the damped normal equations, estimating the Jacobian by
// forward differences.
type LeastSquaresSolver struct {
	cfg    SolverConfig
	logger golog.Logger
}

// NewLeastSquaresSolver returns a solver with the given tuning; a nil cfg
// selects defaults.
func NewLeastSquaresSolver(cfg *SolverConfig, logger golog.Logger) *LeastSquaresSolver {
	if cfg == nil {
		cfg = DefaultSolverConfig()
	}
	return &LeastSquaresSolver{cfg: cfg.normalized(), logger: logger}
}

// Solve iterates from the mechanism's current poses (or seed, if given)
// until the residual norm drops under ResidualTol. It fails with a
// ConstraintCountError when the system is not square, unless
// AllowUnbalanced is set, and with a DivergenceError when iteration,
// damping, or the time budget runs out first.
func (s *LeastSquaresSolver) Solve(
	ctx context.Context,
	lk *linkage.Linkage,
	seed []float64,
	driving ...DrivingConstraint,
) (*Solution, error) {
	cfg := s.cfg
	if lk.DoF() == 0 {
		return nil, ErrNoFreeLinks
	}
	cs, err := newConstraintSystem(lk, driving)
	if err != nil {
		return nil, err
	}
	dof := cs.state.DoF()
	if cs.rows != dof && !cfg.AllowUnbalanced {
		return nil, &ConstraintCountError{Constraints: cs.rows, DoF: dof}
	}
	x := cs.state.FreeVector()
	if seed != nil {
		if len(seed) != dof {
			return nil, NewSeedLengthError(len(seed), dof)
		}
		x = append([]float64(nil), seed...)
	}
	start := cfg.Clock.Now()

	r, err := cs.residuals(make([]float64, 0, cs.rows), x)
	if err != nil {
		return nil, err
	}
	norm := floats.Norm(r, 2)

	jac := mat.NewDense(cs.rows, dof, nil)
	jtj := mat.NewSymDense(dof, nil)
	damped := mat.NewSymDense(dof, nil)
	jtr := mat.NewVecDense(dof, nil)
	delta := mat.NewVecDense(dof, nil)
	trial := make([]float64, dof)
	rTrial := make([]float64, 0, cs.rows)

	lambda := cfg.InitialDamping
	iterations := 0
	reason := "iteration limit reached"
	for iterations < cfg.MaxIterations && norm >= cfg.ResidualTol {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cfg.Budget > 0 && cfg.Clock.Since(start) > cfg.Budget {
			return nil, &DivergenceError{Iterations: iterations, Residual: norm, Reason: "time budget exhausted"}
		}
		iterations++

		if err := cs.jacobian(jac, x, r, cfg.JacobianStep); err != nil {
			return nil, err
		}
		jtj.SymOuterK(1, jac.T())
		jtr.MulVec(jac.T(), mat.NewVecDense(len(r), r))

		accepted := false
		for !accepted {
			damped.CopySym(jtj)
			for i := 0; i < dof; i++ {
				aii := jtj.At(i, i)
				damped.SetSym(i, i, aii+lambda*(aii+diagonalFloor))
			}
			var chol mat.Cholesky
			if !chol.Factorize(damped) {
				lambda *= 10
				if lambda > maxDamping {
					return nil, &DivergenceError{Iterations: iterations, Residual: norm, Reason: "normal equations are singular"}
				}
				continue
			}
			if err := chol.SolveVecTo(delta, jtr); err != nil {
				lambda *= 10
				if lambda > maxDamping {
					return nil, &DivergenceError{Iterations: iterations, Residual: norm, Reason: "normal equations are singular"}
				}
				continue
			}
			for i := range trial {
				trial[i] = x[i] - delta.AtVec(i)
			}
			rTrial, err = cs.residuals(rTrial, trial)
			if err != nil {
				return nil, err
			}
			trialNorm := floats.Norm(rTrial, 2)
			if trialNorm < norm {
				copy(x, trial)
				r, rTrial = rTrial, r
				norm = trialNorm
				lambda = math.Max(lambda/10, minDamping)
				accepted = true
			} else {
				lambda *= 10
				if lambda > maxDamping {
					return nil, &DivergenceError{Iterations: iterations, Residual: norm, Reason: "no descent step found"}
				}
			}
		}
		if mat.Norm(delta, 2) < cfg.StepTol*(1+floats.Norm(x, 2)) {
			reason = "step size underflow"
			break
		}
	}

	if norm >= cfg.ResidualTol {
		return nil, &DivergenceError{Iterations: iterations, Residual: norm, Reason: reason}
	}
	if err := cs.state.SetFreeVector(x); err != nil {
		return nil, err
	}
	cs.state.Commit()
	s.logger.Debugf("solved %q in %d iterations, residual %.3g", lk.ID(), iterations, norm)
	return &Solution{
		Poses:      cs.state.Poses(),
		Vector:     append([]float64(nil), x...),
		Residual:   norm,
		Iterations: iterations,
	}, nil
}
