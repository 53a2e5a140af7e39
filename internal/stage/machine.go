// Package stage tracks motor and stage lifecycles during a flight. The
// machine only moves when a flight event is applied to it.
package stage

import (
	"errors"
	"fmt"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
)

var (
	ErrInvalidTransition = errors.New("stage: invalid transition")
	ErrUnknownSource     = errors.New("stage: unknown event source")
)

type MotorState int

const (
	Unignited MotorState = iota
	Ignited
	Burning
	BurnedOut
)

func (s MotorState) String() string {
	switch s {
	case Unignited:
		return "UNIGNITED"
	case Ignited:
		return "IGNITED"
	case Burning:
		return "BURNING"
	case BurnedOut:
		return "BURNED_OUT"
	}
	return fmt.Sprintf("MotorState(%d)", int(s))
}

type StageState int

const (
	Attached StageState = iota
	Separated
)

func (s StageState) String() string {
	if s == Separated {
		return "SEPARATED"
	}
	return "ATTACHED"
}

// Transition records one state change caused by an applied event. Motor is
// -1 for stage transitions and Stage is -1 for motor transitions.
type Transition struct {
	Motor int
	Stage int
	From  string
	To    string
	Time  float64
}

func (t Transition) String() string {
	if t.Motor >= 0 {
		return fmt.Sprintf("motor %d: %s -> %s @%.4f", t.Motor, t.From, t.To, t.Time)
	}
	return fmt.Sprintf("stage %d: %s -> %s @%.4f", t.Stage, t.From, t.To, t.Time)
}

type motorSlot struct {
	state     MotorState
	armedAt   float64
	ignitedAt float64
}

// Machine is the stage state machine of one branch.
type Machine struct {
	rocket *rocket.Rocket
	motors []motorSlot
	stages []StageState

	deployed map[string]bool

	launched bool
	liftoff  bool
	cleared  bool
	apogee   bool
	landed   bool
}

func New(r *rocket.Rocket) *Machine {
	return &Machine{
		rocket:   r,
		motors:   make([]motorSlot, r.NumMotors()),
		stages:   make([]StageState, r.NumStages()),
		deployed: make(map[string]bool),
	}
}

// DeviceKey names a recovery device uniquely across stages. Deployment
// events carry it as their source.
func DeviceKey(stageName, device string) string {
	return stageName + "/" + device
}

// Apply moves the machine according to e and returns the transitions taken.
// A rejected event leaves the machine unchanged.
func (m *Machine) Apply(e flight.Event) ([]Transition, error) {
	switch e.Type {
	case flight.Launch:
		if m.launched {
			return nil, fmt.Errorf("%w: second launch at t=%.4f", ErrInvalidTransition, e.Time)
		}
		m.launched = true
		return m.arm(e.Time, func(c motor.Configuration) bool {
			return c.Ignition == motor.IgniteAtLaunch
		}), nil

	case flight.Ignition:
		return m.ignite(e)

	case flight.Burnout:
		i, err := m.motorIndex(e.Source)
		if err != nil {
			return nil, err
		}
		if m.motors[i].state != Burning {
			return nil, m.invalid(i, m.motors[i].state, BurnedOut)
		}
		m.motors[i].state = BurnedOut
		ts := []Transition{m.motorTransition(i, Burning, BurnedOut, e.Time)}
		return append(ts, m.arm(e.Time, func(c motor.Configuration) bool {
			return c.Ignition == motor.IgniteAtBurnout && c.Ref == e.Source
		})...), nil

	case flight.Apogee:
		m.apogee = true
		return m.arm(e.Time, func(c motor.Configuration) bool {
			return c.Ignition == motor.IgniteAtApogee
		}), nil

	case flight.StageSeparation:
		idx := m.rocket.StageIndex(e.Source)
		if idx < 0 {
			return nil, fmt.Errorf("%w: stage %q", ErrUnknownSource, e.Source)
		}
		if m.stages[idx] != Attached {
			return nil, fmt.Errorf("%w: stage %q already separated", ErrInvalidTransition, e.Source)
		}
		var ts []Transition
		for i := idx; i < len(m.stages); i++ {
			if m.stages[i] == Attached {
				m.stages[i] = Separated
				ts = append(ts, Transition{Motor: -1, Stage: i, From: Attached.String(), To: Separated.String(), Time: e.Time})
			}
		}
		return append(ts, m.arm(e.Time, func(c motor.Configuration) bool {
			return c.Ignition == motor.IgniteAtSeparation && c.Ref == e.Source
		})...), nil

	case flight.Deployment:
		if m.deployed[e.Source] {
			return nil, fmt.Errorf("%w: device %q already deployed", ErrInvalidTransition, e.Source)
		}
		m.deployed[e.Source] = true
	case flight.Liftoff:
		m.liftoff = true
	case flight.LaunchRodClearance:
		m.cleared = true
	case flight.GroundHit:
		m.landed = true
	}
	return nil, nil
}

func (m *Machine) ignite(e flight.Event) ([]Transition, error) {
	i, err := m.motorIndex(e.Source)
	if err != nil {
		return nil, err
	}
	slot := &m.motors[i]
	if !m.Attached(m.rocket.Motor(i).Stage) {
		return nil, fmt.Errorf("%w: motor %q is on a separated stage", ErrInvalidTransition, e.Source)
	}

	var ts []Transition
	switch slot.state {
	case Ignited:
	case Unignited:
		// Altitude triggers have no event of their own; the ignition event
		// both arms and lights the motor.
		if m.rocket.Motor(i).Ignition != motor.IgniteAtAltitude {
			return nil, m.invalid(i, Unignited, Burning)
		}
		slot.armedAt = e.Time - m.rocket.Motor(i).Delay
		ts = append(ts, m.motorTransition(i, Unignited, Ignited, e.Time))
	default:
		return nil, m.invalid(i, slot.state, Burning)
	}
	slot.state = Burning
	slot.ignitedAt = e.Time
	return append(ts, m.motorTransition(i, Ignited, Burning, e.Time)), nil
}

// arm moves every matching unignited motor on an attached stage to Ignited.
func (m *Machine) arm(t float64, match func(motor.Configuration) bool) []Transition {
	var ts []Transition
	for i, c := range m.rocket.Motors() {
		if m.motors[i].state != Unignited || !m.Attached(c.Stage) || !match(c) {
			continue
		}
		m.motors[i].state = Ignited
		m.motors[i].armedAt = t
		ts = append(ts, m.motorTransition(i, Unignited, Ignited, t))
	}
	return ts
}

func (m *Machine) motorIndex(id string) (int, error) {
	i := m.rocket.MotorIndex(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: motor %q", ErrUnknownSource, id)
	}
	return i, nil
}

func (m *Machine) motorTransition(i int, from, to MotorState, t float64) Transition {
	return Transition{Motor: i, Stage: -1, From: from.String(), To: to.String(), Time: t}
}

func (m *Machine) invalid(i int, from, to MotorState) error {
	return fmt.Errorf("%w: motor %q %s -> %s", ErrInvalidTransition, m.rocket.Motor(i).ID, from, to)
}
