package sim

import (
	"math"
	"testing"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
)

// vacuumConfig disables drag so flights have a closed form.
func vacuumConfig() Config {
	cfg := DefaultConfig()
	cfg.Environment.AirDensity = 0
	cfg.MaxTime = 60
	return cfg
}

func mustMotor(t testing.TB, name string, thrust, burn, prop, casing float64) *motor.Model {
	t.Helper()
	m, err := motor.ConstantThrust(name, thrust, burn, prop, casing)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// singleStage is a 1 kg rocket with a 30 N motor burning for 2 s and no
// propellant mass.
func singleStage(t testing.TB) *rocket.Rocket {
	return rocket.New("single", []rocket.Stage{
		{Name: "body", DryMass: 0.9, Diameter: 0.04, Length: 0.6},
	}, []motor.Configuration{
		{ID: "m", Model: mustMotor(t, "C30", 30, 2, 0, 0.1), Stage: 0},
	})
}

func twoStage(t testing.TB) *rocket.Rocket {
	return rocket.New("two", []rocket.Stage{
		{Name: "sustainer", DryMass: 0.6, Diameter: 0.04, Length: 0.5, DragCoefficient: 0.5,
			Recovery: []rocket.RecoveryDevice{{Name: "chute", Trigger: rocket.DeployAtApogee, CdA: 0.2}}},
		{Name: "booster", DryMass: 0.4, Diameter: 0.04, Length: 0.3, DragCoefficient: 0.6,
			Separation: rocket.Separation{Trigger: rocket.SeparateAtBurnout}},
	}, []motor.Configuration{
		{ID: "b", Model: mustMotor(t, "B40", 40, 1.5, 0.06, 0.04), Stage: 1},
		{ID: "s", Model: mustMotor(t, "S20", 20, 2, 0.04, 0.03), Stage: 0, Ignition: motor.IgniteAtBurnout, Ref: "b", Delay: 0.3},
	})
}

func eventTimes(b *flight.Branch, typ flight.EventType) []float64 {
	var out []float64
	for _, e := range b.Events() {
		if e.Type == typ {
			out = append(out, e.Time)
		}
	}
	return out
}

func eventTypes(b *flight.Branch) []flight.EventType {
	var out []flight.EventType
	for _, e := range b.Events() {
		out = append(out, e.Type)
	}
	return out
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
