// Package experiment turns a flight file into something runnable: a
// resolved rocket, an integrator and the default listeners.
package experiment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/san-kum/flightsim/internal/config"
	"github.com/san-kum/flightsim/internal/driver"
	"github.com/san-kum/flightsim/internal/dynamo"
	"github.com/san-kum/flightsim/internal/metrics"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/sim"
)

type Experiment struct {
	File       *config.File
	Rocket     *rocket.Rocket
	Integrator string
	Listeners  []sim.Listener

	newInteg func() dynamo.Integrator
}

// Build resolves f through the registry. extra listeners run after the
// metrics listener.
func (r *Registry) Build(f *config.File, extra ...sim.Listener) (*Experiment, error) {
	if f == nil {
		return nil, fmt.Errorf("experiment: no flight file")
	}
	name := f.Integrator
	if name == "" {
		name = config.DefaultIntegrator
	}
	newInteg, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	rk, err := f.Rocket(r.motors)
	if err != nil {
		return nil, fmt.Errorf("rocket %q: %w", f.Name, err)
	}

	ls := []sim.Listener{metrics.Listener(r.DefaultMetrics()...)}
	ls = append(ls, extra...)
	return &Experiment{
		File:       f,
		Rocket:     rk,
		Integrator: name,
		Listeners:  ls,
		newInteg:   newInteg,
	}, nil
}

// Engine builds an engine with a fresh integrator. Integrators are not safe
// for concurrent use.
func (e *Experiment) Engine(log zerolog.Logger) *sim.Engine {
	eng := sim.New(e.Rocket, e.File.Simulation, sim.WithIntegrator(e.newInteg()), sim.WithLogger(log))
	for _, l := range e.Listeners {
		eng.AddListener(l)
	}
	return eng
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.Engine(zerolog.Nop()).Run(ctx)
}

// Job packages the experiment for the driver. seed replaces the file's seed
// when non-zero.
func (e *Experiment) Job(seed int64) driver.Job {
	return driver.Job{
		Name:      e.Rocket.Name(),
		Rocket:    e.Rocket,
		Config:    e.File.Simulation,
		Seed:      seed,
		Listeners: e.Listeners,
		Options:   []sim.Option{sim.WithIntegrator(e.newInteg())},
	}
}
