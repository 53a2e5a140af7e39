package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates the adaptive step stayed at its minimum for
	// too many consecutive steps.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrStepRejected is returned by an adaptive integrator when the local
	// error estimate exceeds the tolerance. The returned step size is the
	// suggested retry size.
	ErrStepRejected = errors.New("dynamo: step rejected by error estimate")

	// ErrDimensionMismatch indicates mismatched state dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// SimulationError wraps an integration error with the last valid state.
type SimulationError struct {
	Step    int
	Time    float64
	Dt      float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f, dt=%.3g): %v", e.Step, e.Time, e.Dt, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
