package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/flightsim/internal/dynamo"
)

type harmonicOscillator struct {
	omega float64
}

func (h *harmonicOscillator) StateDim() int { return 2 }

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	w := h.omega
	if w == 0 {
		w = 1
	}
	return dynamo.State{x[1], -w * w * x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

type freeFall struct {
	g float64
}

func (f *freeFall) StateDim() int { return 2 }
func (f *freeFall) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -f.g}
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	finalEnergy := dyn.Energy(x)
	drift := math.Abs(finalEnergy-initialEnergy) / initialEnergy

	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, err := integrator.StepAdaptive(dyn, x0, 0, 0.1, 1e-6)
	if err != nil && !errors.Is(err, dynamo.ErrStepRejected) {
		t.Errorf("StepAdaptive returned error: %v", err)
	}

	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}

	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
}

func TestRK45_RejectsLargeStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{omega: 40}

	_, newDt, err := integrator.StepAdaptive(dyn, dynamo.State{1, 0}, 0, 0.2, 1e-9)
	if !errors.Is(err, dynamo.ErrStepRejected) {
		t.Fatalf("expected ErrStepRejected, got %v", err)
	}
	if newDt >= 0.2 {
		t.Errorf("suggested dt %f should shrink below 0.2", newDt)
	}
}

func TestRK45_ExactForPolynomial(t *testing.T) {
	integrator := NewRK45()
	sys := &freeFall{g: 9.81}

	x := integrator.Step(sys, dynamo.State{0, 20}, 0, 1.5)
	wantPos := 20*1.5 - 0.5*9.81*1.5*1.5
	if math.Abs(x[0]-wantPos) > 1e-9 {
		t.Errorf("position = %.12f, want %.12f", x[0], wantPos)
	}
}
