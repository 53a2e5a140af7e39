package rocket

import (
	"errors"
	"fmt"

	"github.com/san-kum/flightsim/internal/motor"
)

// Validate reports every structural problem found, joined into one error
// wrapping ErrInvalid.
func (r *Rocket) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if len(r.stages) == 0 {
		add("rocket %q has no stages", r.name)
	}
	if len(r.motors) == 0 {
		add("rocket %q has no motors configured", r.name)
	}

	names := make(map[string]bool, len(r.stages))
	for i, s := range r.stages {
		if names[s.Name] {
			add("duplicate stage name %q", s.Name)
		}
		names[s.Name] = true
		if s.DryMass < 0 {
			add("stage %q has negative dry mass", s.Name)
		}
		if s.DragCoefficient < 0 || s.Area < 0 || s.Diameter < 0 || s.Length < 0 {
			add("stage %q has negative geometry", s.Name)
		}
		if s.Separation.Delay < 0 {
			add("stage %q has negative separation delay", s.Name)
		}
		if i == 0 && s.Separation.Trigger != SeparateNever {
			add("top stage %q cannot separate", s.Name)
		}
		if s.Separation.Trigger == SeparateAtBurnout && len(r.MotorsOn(i)) == 0 {
			add("stage %q separates at burnout but carries no motors", s.Name)
		}
		devices := make(map[string]bool, len(s.Recovery))
		for _, d := range s.Recovery {
			if devices[d.Name] {
				add("duplicate recovery device %q in stage %q", d.Name, s.Name)
			}
			devices[d.Name] = true
			switch {
			case d.CdA < 0:
				add("recovery device %q has negative drag area", d.Name)
			case d.Delay < 0:
				add("recovery device %q has negative delay", d.Name)
			case d.Trigger == DeployAtAltitude && d.Altitude <= 0:
				add("recovery device %q deploys at non-positive altitude", d.Name)
			case d.Trigger == DeployAtVelocity && d.Velocity <= 0:
				add("recovery device %q deploys at non-positive velocity", d.Name)
			}
		}
	}

	ids := make(map[string]bool, len(r.motors))
	atLaunch := 0
	for _, m := range r.motors {
		if ids[m.ID] {
			add("duplicate motor id %q", m.ID)
		}
		ids[m.ID] = true

		if m.Model == nil {
			add("motor %q has no model", m.ID)
		}
		if m.Stage < 0 || m.Stage >= len(r.stages) {
			add("motor %q is mounted on nonexistent stage %d", m.ID, m.Stage)
		}
		if m.Delay < 0 {
			add("motor %q has negative ignition delay", m.ID)
		}

		switch m.Ignition {
		case motor.IgniteAtLaunch:
			atLaunch++
		case motor.IgniteAtBurnout:
			if m.Ref == m.ID {
				add("motor %q ignites on its own burnout", m.ID)
			} else if r.MotorIndex(m.Ref) < 0 {
				add("motor %q ignites on burnout of unknown motor %q", m.ID, m.Ref)
			}
		case motor.IgniteAtSeparation:
			idx := r.StageIndex(m.Ref)
			if idx < 0 {
				add("motor %q ignites on separation of unknown stage %q", m.ID, m.Ref)
			} else if r.stages[idx].Separation.Trigger == SeparateNever {
				add("motor %q ignites on separation of stage %q which never separates", m.ID, m.Ref)
			}
		case motor.IgniteAtAltitude:
			if m.Altitude <= 0 {
				add("motor %q ignites at non-positive altitude", m.ID)
			}
		}
	}
	if len(r.motors) > 0 && atLaunch == 0 {
		add("no motor ignites at launch")
	}

	if cycle := r.burnoutCycle(); cycle != "" {
		add("ignition cycle through motor %q", cycle)
	}

	return errors.Join(errs...)
}

// burnoutCycle returns a motor id on a burnout-ignition cycle, or "".
func (r *Rocket) burnoutCycle() string {
	for start := range r.motors {
		seen := map[int]bool{}
		i := start
		for {
			m := r.motors[i]
			if m.Ignition != motor.IgniteAtBurnout {
				break
			}
			next := r.MotorIndex(m.Ref)
			if next < 0 {
				break
			}
			if next == start {
				return r.motors[start].ID
			}
			if seen[next] {
				break
			}
			seen[next] = true
			i = next
		}
	}
	return ""
}
