package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/stage"
)

// vehicle derives mass and loads from the rocket and the stage machine of one
// branch.
type vehicle struct {
	rocket  *rocket.Rocket
	machine *stage.Machine
}

func (v *vehicle) MassProperties(t float64) (flight.MassProperties, error) {
	var total, ixx, izz float64
	for _, si := range v.machine.AttachedStages() {
		s := v.rocket.Stage(si)
		m := s.DryMass
		for _, mi := range v.rocket.MotorsOn(si) {
			m += v.motorMass(mi, t)
		}
		r := s.Diameter / 2
		ixx += m * (3*r*r + s.Length*s.Length) / 12
		izz += m * r * r / 2
		total += m
	}
	return flight.MassProperties{
		Mass:    total,
		Inertia: mgl64.Diag3(mgl64.Vec3{ixx, ixx, izz}),
	}, nil
}

func (v *vehicle) motorMass(i int, t float64) float64 {
	model := v.rocket.Motor(i).Model
	switch v.machine.MotorState(i) {
	case stage.Burning, stage.BurnedOut:
		return model.MassAt(t - v.machine.IgnitedAt(i))
	default:
		return model.MassAt(0)
	}
}

func (v *vehicle) Load(t float64) Load {
	var l Load
	for _, i := range v.machine.Burning() {
		l.Thrust += v.rocket.Motor(i).Model.Thrust(t - v.machine.IgnitedAt(i))
	}

	// The stack presents the largest stage drag area; recovery devices add.
	var body, chutes float64
	for _, si := range v.machine.AttachedStages() {
		s := v.rocket.Stage(si)
		body = math.Max(body, s.DragCoefficient*s.ReferenceArea())
		for _, d := range s.Recovery {
			if v.machine.Deployed(stage.DeviceKey(s.Name, d.Name)) {
				chutes += d.CdA
			}
		}
	}
	l.DragArea = body + chutes
	return l
}
