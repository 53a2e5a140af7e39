package integrators

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/flightsim/internal/dynamo"
)

// StepControl bounds the adaptive step size.
type StepControl struct {
	Tolerance   float64
	MinDt       float64
	MaxDt       float64
	MaxMinSteps int
}

func DefaultStepControl() StepControl {
	return StepControl{
		Tolerance:   1e-7,
		MinDt:       1e-6,
		MaxDt:       0.05,
		MaxMinSteps: 200,
	}
}

// Step is one accepted integration step.
type Step struct {
	X      dynamo.State
	T      float64
	Dt     float64
	NextDt float64
}

// Stepper drives an integrator with error control. Adaptive integrators use
// their embedded estimate; fixed-step ones are checked by step halving. A
// Stepper holds a consecutive-minimum-step counter and must not be shared
// between runs.
type Stepper struct {
	integ  dynamo.Integrator
	ctl    StepControl
	minRun int
	steps  int
}

func NewStepper(integ dynamo.Integrator, ctl StepControl) *Stepper {
	return &Stepper{integ: integ, ctl: ctl}
}

func (s *Stepper) Integrator() dynamo.Integrator { return s.integ }

// Advance integrates x from t by at most dt without passing limit.
func (s *Stepper) Advance(sys dynamo.System, x dynamo.State, t, dt, limit float64) (Step, error) {
	span := limit - t
	if !(span > 0) {
		return Step{}, fmt.Errorf("integrators: limit %.9g is not after t=%.9g", limit, t)
	}

	requested := math.Min(math.Max(dt, s.ctl.MinDt), s.ctl.MaxDt)
	dt = requested
	clipped := false
	if dt >= span {
		dt = span
		clipped = true
	}

	for {
		xNew, next, rejected := s.try(sys, x, t, dt)
		if !xNew.IsValid() {
			return Step{}, &dynamo.SimulationError{
				Step:    s.steps,
				Time:    t,
				Dt:      dt,
				State:   x.Clone(),
				Wrapped: dynamo.ErrInvalidState,
			}
		}

		if rejected && dt > s.ctl.MinDt {
			dt = math.Max(next, s.ctl.MinDt)
			clipped = false
			continue
		}

		if rejected {
			s.minRun++
			if s.minRun > s.ctl.MaxMinSteps {
				return Step{}, &dynamo.SimulationError{
					Step:    s.steps,
					Time:    t,
					Dt:      dt,
					State:   x.Clone(),
					Wrapped: dynamo.ErrStepTooSmall,
				}
			}
		} else {
			s.minRun = 0
		}

		if clipped {
			next = math.Max(next, requested)
		}
		s.steps++

		end := t + dt
		if clipped {
			end = limit
		}
		return Step{
			X:      xNew,
			T:      end,
			Dt:     dt,
			NextDt: math.Min(math.Max(next, s.ctl.MinDt), s.ctl.MaxDt),
		}, nil
	}
}

func (s *Stepper) try(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, float64, bool) {
	if adaptive, ok := s.integ.(dynamo.AdaptiveIntegrator); ok {
		xNew, next, err := adaptive.StepAdaptive(sys, x, t, dt, s.ctl.Tolerance)
		return xNew, next, errors.Is(err, dynamo.ErrStepRejected)
	}

	x1 := s.integ.Step(sys, x, t, dt)
	xHalf := s.integ.Step(sys, x, t, dt/2)
	x2 := s.integ.Step(sys, xHalf, t+dt/2, dt/2)
	if !x2.IsValid() {
		return x2, dt / 2, true
	}

	err := x1.Sub(x2).Norm() / (1 + x2.Norm())
	switch {
	case err > s.ctl.Tolerance:
		return x2, dt / 2, true
	case err < s.ctl.Tolerance/10:
		return x2, dt * 2, false
	default:
		return x2, dt, false
	}
}
