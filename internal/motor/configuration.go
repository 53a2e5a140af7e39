package motor

import (
	"fmt"
	"strings"
)

// IgnitionTrigger is the event that arms a motor.
type IgnitionTrigger int

const (
	IgniteAtLaunch IgnitionTrigger = iota
	IgniteAtBurnout
	IgniteAtApogee
	IgniteAtSeparation
	IgniteAtAltitude
	IgniteNever
)

var triggerNames = map[IgnitionTrigger]string{
	IgniteAtLaunch:     "launch",
	IgniteAtBurnout:    "burnout",
	IgniteAtApogee:     "apogee",
	IgniteAtSeparation: "separation",
	IgniteAtAltitude:   "altitude",
	IgniteNever:        "never",
}

func (t IgnitionTrigger) String() string {
	if s, ok := triggerNames[t]; ok {
		return s
	}
	return fmt.Sprintf("IgnitionTrigger(%d)", int(t))
}

func ParseTrigger(s string) (IgnitionTrigger, error) {
	if s == "" {
		return IgniteAtLaunch, nil
	}
	for k, v := range triggerNames {
		if strings.EqualFold(v, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("motor: unknown ignition trigger %q", s)
}

// Configuration binds a motor to a stage with an ignition trigger. Ref names
// the motor (burnout) or stage (separation) the trigger refers to; Altitude is
// used by the altitude trigger. Configurations are immutable once a run starts.
type Configuration struct {
	ID       string
	Model    *Model
	Stage    int
	Ignition IgnitionTrigger
	Ref      string
	Altitude float64
	Delay    float64
}

func (c Configuration) String() string {
	name := "<nil>"
	if c.Model != nil {
		name = c.Model.Designation()
	}
	return fmt.Sprintf("%s(%s, stage %d, %s+%.2fs)", c.ID, name, c.Stage, c.Ignition, c.Delay)
}
