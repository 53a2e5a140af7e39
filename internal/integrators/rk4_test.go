package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/flightsim/internal/dynamo"
)

type simpleDynamics struct{}

func (s *simpleDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (s *simpleDynamics) StateDim() int { return 2 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewRK4()

	x0 := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	x := x0
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestEulerConstantAcceleration(t *testing.T) {
	// x' = v, v' = -g; Euler is exact for velocity.
	sys := &freeFall{g: 9.81}
	integ := NewEuler()

	x := dynamo.State{0, 10}
	for i := 0; i < 100; i++ {
		x = integ.Step(sys, x, float64(i)*0.01, 0.01)
	}

	if math.Abs(x[1]-(10-9.81)) > 1e-9 {
		t.Errorf("velocity = %.9f, want %.9f", x[1], 10-9.81)
	}
}
