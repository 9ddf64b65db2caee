package kinematics

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize"

	"github.com/planarmech/linkage2d/linkage"
)

// NelderMeadSolver minimizes the squared residual norm with a downhill
// simplex search. It needs far more residual evaluations than the
// least-squares solver but no Jacobian, which keeps it usable on systems
// whose finite differences misbehave.
type NelderMeadSolver struct {
	cfg    SolverConfig
	logger golog.Logger
}

// NewNelderMeadSolver returns a solver with the given tuning; a nil cfg
// selects defaults.
func NewNelderMeadSolver(cfg *SolverConfig, logger golog.Logger) *NelderMeadSolver {
	if cfg == nil {
		cfg = DefaultSolverConfig()
	}
	return &NelderMeadSolver{cfg: cfg.normalized(), logger: logger}
}

// Solve runs the simplex search from the mechanism's current poses (or
// seed, if given). Success is judged the same way as the least-squares
// solver: by the final residual norm, not the optimizer's own stopping
// status.
func (s *NelderMeadSolver) Solve(
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
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var evalErr error
	buf := make([]float64, 0, cs.rows)
	problem := optimize.Problem{
		Func: func(candidate []float64) float64 {
			r, err := cs.residuals(buf, candidate)
			if err != nil {
				if evalErr == nil {
					evalErr = err
				}
				return math.Inf(1)
			}
			buf = r
			sum := 0.0
			for _, v := range r {
				sum += v * v
			}
			return sum
		},
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   cfg.ResidualTol * cfg.ResidualTol,
			Iterations: 100,
		},
	}
	if cfg.Budget > 0 {
		settings.Runtime = cfg.Budget
	}

	result, optErr := optimize.Minimize(problem, x, settings, &optimize.NelderMead{})
	if evalErr != nil {
		return nil, evalErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.Wrap(optErr, "simplex search failed")
	}

	norm := math.Sqrt(result.F)
	iterations := result.Stats.MajorIterations
	if norm >= cfg.ResidualTol {
		return nil, &DivergenceError{Iterations: iterations, Residual: norm, Reason: "simplex stalled above tolerance"}
	}
	if err := cs.state.SetFreeVector(result.X); err != nil {
		return nil, err
	}
	cs.state.Commit()
	s.logger.Debugf("solved %q in %d simplex iterations, residual %.3g", lk.ID(), iterations, norm)
	return &Solution{
		Poses:      cs.state.Poses(),
		Vector:     append([]float64(nil), result.X...),
		Residual:   norm,
		Iterations: iterations,
	}, nil
}
