// Package dynamo provides the numerical primitives shared by the flight engine.
//
// The package defines the flat vector and interfaces used to integrate an
// ordinary differential equation dX/dt = f(X, t):
//
//   - [State]: flat vector representing the integrated state
//   - [System]: interface for ODE systems
//   - [Integrator]: fixed-step numerical integrator
//   - [AdaptiveIntegrator]: integrator with an embedded error estimate
//
// Integration failures are reported as [*SimulationError] values wrapping one
// of the sentinel errors in this package.
//
// # Example
//
//	integ := integrators.NewRK45()
//	x1, dtNext, err := integ.StepAdaptive(sys, x0, 0, 0.01, 1e-6)
//	if errors.Is(err, dynamo.ErrStepRejected) {
//	    // retry with dtNext
//	}
package dynamo
