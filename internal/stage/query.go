package stage

import (
	"fmt"
	"maps"

	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
)

func (m *Machine) Rocket() *rocket.Rocket { return m.rocket }

func (m *Machine) MotorState(i int) MotorState { return m.motors[i].state }
func (m *Machine) StageState(i int) StageState { return m.stages[i] }
func (m *Machine) Attached(stage int) bool     { return m.stages[stage] == Attached }

// ArmedAt is the time the motor's ignition trigger fired.
func (m *Machine) ArmedAt(i int) float64   { return m.motors[i].armedAt }
func (m *Machine) IgnitedAt(i int) float64 { return m.motors[i].ignitedAt }

func (m *Machine) Launched() bool { return m.launched }
func (m *Machine) Liftoff() bool  { return m.liftoff }
func (m *Machine) Cleared() bool  { return m.cleared }
func (m *Machine) Apogee() bool   { return m.apogee }
func (m *Machine) Landed() bool   { return m.landed }

func (m *Machine) Deployed(key string) bool { return m.deployed[key] }

// Top is the uppermost attached stage, or -1 when nothing is attached.
func (m *Machine) Top() int {
	for i, s := range m.stages {
		if s == Attached {
			return i
		}
	}
	return -1
}

// AttachedStages lists attached stage indices from the top down.
func (m *Machine) AttachedStages() []int {
	var out []int
	for i, s := range m.stages {
		if s == Attached {
			out = append(out, i)
		}
	}
	return out
}

// Burning lists motors currently producing thrust on attached stages.
func (m *Machine) Burning() []int {
	var out []int
	for i, slot := range m.motors {
		if slot.state == Burning && m.Attached(m.rocket.Motor(i).Stage) {
			out = append(out, i)
		}
	}
	return out
}

// StageBurnedOut reports whether every motor on the stage that can ignite has
// burned out. A stage without such motors never burns out.
func (m *Machine) StageBurnedOut(stage int) bool {
	n := 0
	for _, i := range m.rocket.MotorsOn(stage) {
		if m.rocket.Motor(i).Ignition == motor.IgniteNever {
			continue
		}
		if m.motors[i].state != BurnedOut {
			return false
		}
		n++
	}
	return n > 0
}

// Clone returns an independent copy.
func (m *Machine) Clone() *Machine {
	c := *m
	c.motors = append([]motorSlot(nil), m.motors...)
	c.stages = append([]StageState(nil), m.stages...)
	c.deployed = maps.Clone(m.deployed)
	return &c
}

// Fork returns the machine of the part that falls away when stage separates:
// the separating stage and everything below it stay attached, the stages
// above are gone. The receiver is not modified; apply the separation event to
// it afterwards.
func (m *Machine) Fork(stage int) (*Machine, error) {
	if stage <= 0 || stage >= len(m.stages) {
		return nil, fmt.Errorf("%w: cannot fork at stage %d", ErrInvalidTransition, stage)
	}
	if m.stages[stage] != Attached {
		return nil, fmt.Errorf("%w: stage %d already separated", ErrInvalidTransition, stage)
	}
	c := m.Clone()
	for i := 0; i < stage; i++ {
		c.stages[i] = Separated
	}
	return c, nil
}
