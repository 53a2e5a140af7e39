package automation

import (
	"context"
	"fmt"
	"strings"

	"github.com/san-kum/flightsim/internal/config"
)

// ParameterSweep varies one parameter of Base linearly from Min to Max.
//
// Param is one of launch_angle, heading, rail_length, wind.x, wind.y,
// stage.<name>.dry_mass, stage.<name>.cd or motor.<id>.scale.
type ParameterSweep struct {
	Base     *config.File
	Param    string
	Min      float64
	Max      float64
	NumSteps int
}

type SweepResult struct {
	ParamValue float64
	Trial      Trial
}

// SetParam writes value into the parameter of f named by param.
func SetParam(f *config.File, param string, value float64) error {
	env := &f.Simulation.Environment
	switch param {
	case "launch_angle":
		env.LaunchAngle = value
		return nil
	case "heading":
		env.Heading = value
		return nil
	case "rail_length":
		env.RailLength = value
		return nil
	case "wind.x":
		env.Wind[0] = value
		return nil
	case "wind.y":
		env.Wind[1] = value
		return nil
	}

	parts := strings.Split(param, ".")
	if len(parts) != 3 {
		return fmt.Errorf("unknown parameter %q", param)
	}
	kind, name, field := parts[0], parts[1], parts[2]
	switch kind {
	case "stage":
		for i := range f.Stages {
			if f.Stages[i].Name != name {
				continue
			}
			switch field {
			case "dry_mass":
				f.Stages[i].DryMass = value
			case "cd":
				f.Stages[i].DragCoefficient = value
			default:
				return fmt.Errorf("unknown stage parameter %q", field)
			}
			return nil
		}
		return fmt.Errorf("unknown stage %q", name)
	case "motor":
		for i := range f.Motors {
			if f.Motors[i].ID != name {
				continue
			}
			if field != "scale" {
				return fmt.Errorf("unknown motor parameter %q", field)
			}
			f.Motors[i].Scale = value
			return nil
		}
		return fmt.Errorf("unknown motor %q", name)
	}
	return fmt.Errorf("unknown parameter %q", param)
}

// RunSweep executes a parameter sweep.
func (r *Runner) RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)
	}

	files := make([]*config.File, sweep.NumSteps)
	values := make([]float64, sweep.NumSteps)
	for i := range files {
		values[i] = sweep.Min + float64(i)*paramStep
		files[i] = sweep.Base.Clone()
		if err := SetParam(files[i], sweep.Param, values[i]); err != nil {
			return nil, err
		}
	}

	r.Log.Info().Str("param", sweep.Param).Int("steps", sweep.NumSteps).Msg("running sweep")
	trials, err := r.runAll(ctx, files, make([]int64, len(files)))
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(trials))
	for i, t := range trials {
		results[i] = SweepResult{ParamValue: values[i], Trial: t}
	}
	return results, nil
}
