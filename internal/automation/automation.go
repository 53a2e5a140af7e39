// Package automation runs batches of flights on the driver: scripted
// scenarios, parameter sweeps and Monte-Carlo dispersions.
package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/flightsim/internal/config"
	"github.com/san-kum/flightsim/internal/driver"
	"github.com/san-kum/flightsim/internal/experiment"
	"github.com/san-kum/flightsim/internal/flight"
)

// Runner submits flights to a driver and collects their outcomes in
// submission order.
type Runner struct {
	Registry *experiment.Registry
	Driver   *driver.Driver
	Log      zerolog.Logger
}

// Trial is one finished flight of a batch.
type Trial struct {
	ID      int
	Name    string
	Seed    int64
	Outcome driver.Outcome
	Summary flight.Summary
}

func (t Trial) OK() bool { return t.Outcome.Status == driver.Completed }

// limit caps the trials waiting on the driver at its worker count.
func (r *Runner) limit() int {
	return max(r.Driver.Workers(), 1)
}

// runAll runs every file, at most limit() at a time. A file that cannot be built fails the
// batch; a flight that fails only marks its trial.
func (r *Runner) runAll(ctx context.Context, files []*config.File, seeds []int64) ([]Trial, error) {
	exps := make([]*experiment.Experiment, len(files))
	for i, f := range files {
		exp, err := r.Registry.Build(f)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		exps[i] = exp
	}

	trials := make([]Trial, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit())
	for i, exp := range exps {
		g.Go(func() error {
			h, err := r.Driver.Submit(ctx, exp.Job(seeds[i]))
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			out := h.Wait()
			t := Trial{ID: i, Name: files[i].Name, Seed: seeds[i], Outcome: out}
			if main := out.Result.Main(); main != nil {
				t.Summary = main.Summary()
			}
			trials[i] = t
			r.Log.Debug().Int("trial", i).Stringer("outcome", out.Status).
				Float64("apogee", t.Summary.Apogee).Msg("trial finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return trials, err
	}
	return trials, nil
}

// Scenario is a scripted list of flights.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep names a preset or a flight file, with optional overrides.
type ScenarioStep struct {
	Preset     string  `yaml:"preset"`
	File       string  `yaml:"file"`
	Integrator string  `yaml:"integrator"`
	MaxTime    float64 `yaml:"max_time"`
	Seed       int64   `yaml:"seed"`
	SaveAs     string  `yaml:"save_as"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

// Resolve loads the flight file of every step and applies its overrides.
func (s *Scenario) Resolve() ([]*config.File, error) {
	files := make([]*config.File, 0, len(s.Steps))
	for i, step := range s.Steps {
		var (
			f   *config.File
			err error
		)
		switch {
		case step.File != "":
			f, err = config.Load(step.File)
		case step.Preset != "":
			if f = config.GetPreset(step.Preset); f == nil {
				err = fmt.Errorf("unknown preset %q", step.Preset)
			}
		default:
			err = fmt.Errorf("neither preset nor file given")
		}
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Integrator != "" {
			f.Integrator = step.Integrator
		}
		if step.MaxTime > 0 {
			f.Simulation.MaxTime = step.MaxTime
		}
		if step.SaveAs != "" {
			f.Name = step.SaveAs
		}
		files = append(files, f)
	}
	return files, nil
}

// RunScenario executes all steps of a scenario concurrently.
func (r *Runner) RunScenario(ctx context.Context, s *Scenario) ([]Trial, error) {
	files, err := s.Resolve()
	if err != nil {
		return nil, err
	}
	seeds := make([]int64, len(s.Steps))
	for i, step := range s.Steps {
		seeds[i] = step.Seed
	}
	r.Log.Info().Str("scenario", s.Name).Int("steps", len(files)).Msg("running scenario")
	return r.runAll(ctx, files, seeds)
}
