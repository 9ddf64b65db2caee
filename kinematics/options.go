package kinematics

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Default solver tuning.
const (
	defaultMaxIterations  = 200
	defaultResidualTol    = 1e-8
	defaultStepTol        = 1e-12
	defaultInitialDamping = 1e-3
	defaultJacobianStep   = 1e-6
)

// SolverConfig tunes a solve. The zero value of any numeric field selects
// its default.
type SolverConfig struct {
	// MaxIterations caps the outer solver iterations.
	MaxIterations int
	// ResidualTol is the residual norm below which a pose vector counts as
	// a solution.
	ResidualTol float64
	// StepTol stops the solve once accepted steps shrink below this
	// relative size; the final residual norm still decides success.
	StepTol float64
	// InitialDamping seeds the Levenberg-Marquardt damping parameter.
	InitialDamping float64
	// JacobianStep scales the forward-difference step used to estimate the
	// Jacobian.
	JacobianStep float64
	// AllowUnbalanced skips the constraint-count check, attempting a solve
	// even when the system is not square.
	AllowUnbalanced bool
	// Budget bounds the wall-clock time of a single solve; zero means no
	// bound.
	Budget time.Duration
	// Clock measures the budget and is swappable for tests.
	Clock clock.Clock
}

// DefaultSolverConfig returns the solver tuning used when none is given.
func DefaultSolverConfig() *SolverConfig {
	return &SolverConfig{
		MaxIterations:  defaultMaxIterations,
		ResidualTol:    defaultResidualTol,
		StepTol:        defaultStepTol,
		InitialDamping: defaultInitialDamping,
		JacobianStep:   defaultJacobianStep,
		Clock:          clock.New(),
	}
}

func (cfg *SolverConfig) normalized() SolverConfig {
	out := *cfg
	if out.MaxIterations <= 0 {
		out.MaxIterations = defaultMaxIterations
	}
	if out.ResidualTol <= 0 {
		out.ResidualTol = defaultResidualTol
	}
	if out.StepTol <= 0 {
		out.StepTol = defaultStepTol
	}
	if out.InitialDamping <= 0 {
		out.InitialDamping = defaultInitialDamping
	}
	if out.JacobianStep <= 0 {
		out.JacobianStep = defaultJacobianStep
	}
	if out.Clock == nil {
		out.Clock = clock.New()
	}
	return out
}
