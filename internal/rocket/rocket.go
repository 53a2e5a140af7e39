// Package rocket describes the immutable vehicle handed to the flight engine:
// stages ordered from the nose down, their recovery devices and separation
// rules, and the active motor configurations.
package rocket

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/flightsim/internal/motor"
)

var ErrInvalid = errors.New("rocket: invalid configuration")

type SeparationTrigger int

const (
	SeparateNever SeparationTrigger = iota
	SeparateAtBurnout
	SeparateAtApogee
	SeparateAtTime
)

func (t SeparationTrigger) String() string {
	switch t {
	case SeparateNever:
		return "never"
	case SeparateAtBurnout:
		return "burnout"
	case SeparateAtApogee:
		return "apogee"
	case SeparateAtTime:
		return "time"
	}
	return fmt.Sprintf("SeparationTrigger(%d)", int(t))
}

func ParseSeparationTrigger(s string) (SeparationTrigger, error) {
	for t := SeparateNever; t <= SeparateAtTime; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	if s == "" {
		return SeparateNever, nil
	}
	return 0, fmt.Errorf("rocket: unknown separation trigger %q", s)
}

// Separation detaches a stage, and everything below it, from the stages
// above. Delay is added to the trigger; for SeparateAtTime it is the time
// since launch.
type Separation struct {
	Trigger SeparationTrigger
	Delay   float64
}

type DeployTrigger int

const (
	DeployAtApogee DeployTrigger = iota
	DeployAtAltitude
	DeployAtTime
	DeployAtVelocity
)

func (t DeployTrigger) String() string {
	switch t {
	case DeployAtApogee:
		return "apogee"
	case DeployAtAltitude:
		return "altitude"
	case DeployAtTime:
		return "time"
	case DeployAtVelocity:
		return "velocity"
	}
	return fmt.Sprintf("DeployTrigger(%d)", int(t))
}

func ParseDeployTrigger(s string) (DeployTrigger, error) {
	for t := DeployAtApogee; t <= DeployAtVelocity; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	if s == "" {
		return DeployAtApogee, nil
	}
	return 0, fmt.Errorf("rocket: unknown deploy trigger %q", s)
}

// RecoveryDevice adds drag area when deployed. Altitude triggers fire while
// descending through Altitude after apogee; velocity triggers fire once the
// descent rate exceeds Velocity; apogee and time triggers add Delay to apogee
// or launch respectively.
type RecoveryDevice struct {
	Name     string
	Trigger  DeployTrigger
	Delay    float64
	Altitude float64
	Velocity float64
	CdA      float64
}

type Stage struct {
	Name            string
	DryMass         float64
	Length          float64
	Diameter        float64
	DragCoefficient float64
	Area            float64
	Separation      Separation
	Recovery        []RecoveryDevice
}

// ReferenceArea returns Area, or the frontal area of the body tube when Area
// is zero.
func (s Stage) ReferenceArea() float64 {
	if s.Area > 0 {
		return s.Area
	}
	r := s.Diameter / 2
	return math.Pi * r * r
}

type Rocket struct {
	name   string
	stages []Stage
	motors []motor.Configuration
}

// New copies its inputs; later changes to the slices do not affect the rocket.
func New(name string, stages []Stage, motors []motor.Configuration) *Rocket {
	r := &Rocket{
		name:   name,
		stages: make([]Stage, len(stages)),
		motors: make([]motor.Configuration, len(motors)),
	}
	for i, s := range stages {
		s.Recovery = append([]RecoveryDevice(nil), s.Recovery...)
		r.stages[i] = s
	}
	copy(r.motors, motors)
	return r
}

func (r *Rocket) Name() string   { return r.name }
func (r *Rocket) NumStages() int { return len(r.stages) }
func (r *Rocket) NumMotors() int { return len(r.motors) }

func (r *Rocket) Stage(i int) Stage {
	s := r.stages[i]
	s.Recovery = append([]RecoveryDevice(nil), s.Recovery...)
	return s
}

func (r *Rocket) Stages() []Stage {
	out := make([]Stage, len(r.stages))
	for i := range r.stages {
		out[i] = r.Stage(i)
	}
	return out
}

func (r *Rocket) Motors() []motor.Configuration {
	return append([]motor.Configuration(nil), r.motors...)
}

func (r *Rocket) Motor(i int) motor.Configuration { return r.motors[i] }

// MotorIndex returns the index of the motor with the given id, or -1.
func (r *Rocket) MotorIndex(id string) int {
	for i, m := range r.motors {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// StageIndex returns the index of the named stage, or -1.
func (r *Rocket) StageIndex(name string) int {
	for i, s := range r.stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// MotorsOn returns the indices of motors mounted on stage i.
func (r *Rocket) MotorsOn(stage int) []int {
	var out []int
	for i, m := range r.motors {
		if m.Stage == stage {
			out = append(out, i)
		}
	}
	return out
}
