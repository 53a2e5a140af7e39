package flight

import (
	"cmp"
	"fmt"
	"slices"
)

type EventType int

const (
	Launch EventType = iota
	Ignition
	Liftoff
	LaunchRodClearance
	Burnout
	Apogee
	Deployment
	StageSeparation
	GroundHit
	SimulationEnd
	Exception
)

var eventNames = [...]string{
	Launch:             "LAUNCH",
	Ignition:           "IGNITION",
	Liftoff:            "LIFTOFF",
	LaunchRodClearance: "LAUNCH_ROD_CLEARANCE",
	Burnout:            "BURNOUT",
	Apogee:             "APOGEE",
	Deployment:         "DEPLOYMENT",
	StageSeparation:    "STAGE_SEPARATION",
	GroundHit:          "GROUND_HIT",
	SimulationEnd:      "SIMULATION_END",
	Exception:          "EXCEPTION",
}

func (t EventType) String() string {
	if t >= 0 && int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// ParseEventType is the inverse of String.
func ParseEventType(s string) (EventType, error) {
	for i, name := range eventNames {
		if name == s {
			return EventType(i), nil
		}
	}
	return 0, fmt.Errorf("flight: unknown event type %q", s)
}

// Priority orders events detected at the same instant; lower fires first.
// Separation and deployment come before everything else, the rest keep their
// declaration order.
func (t EventType) Priority() int {
	switch t {
	case StageSeparation:
		return 0
	case Deployment:
		return 1
	default:
		return 2 + int(t)
	}
}

// Event is an immutable record of a discrete occurrence. Source names the
// motor, stage or recovery device involved, if any.
type Event struct {
	Type   EventType
	Time   float64
	State  RigidBodyState
	Source string
}

func (e Event) String() string {
	if e.Source == "" {
		return fmt.Sprintf("%s@%.4f", e.Type, e.Time)
	}
	return fmt.Sprintf("%s(%s)@%.4f", e.Type, e.Source, e.Time)
}

// SortEvents orders events by time, then priority, then source. The sort is
// stable so equal events keep their detection order.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Type.Priority(), b.Type.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(a.Source, b.Source)
	})
}
