package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/flightsim/internal/dynamo"
	"github.com/san-kum/flightsim/internal/integrators"
	"github.com/san-kum/flightsim/internal/listeners"
	"github.com/san-kum/flightsim/internal/metrics"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/sim"
)

// Registry resolves the names used in flight files and on the command line.
type Registry struct {
	motors      *motor.Catalog
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry(motors *motor.Catalog) *Registry {
	if motors == nil {
		motors = motor.DefaultCatalog()
	}
	r := &Registry{
		motors:      motors,
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	return r
}

func (r *Registry) Motors() *motor.Catalog { return r.motors }

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expressions resolves built-in expression names into one listener.
func (r *Registry) Expressions(names []string) (sim.Listener, error) {
	exprs := make([]listeners.Expression, 0, len(names))
	for _, name := range names {
		e, err := listeners.Lookup(name)
		if err != nil {
			return sim.Listener{}, err
		}
		exprs = append(exprs, e)
	}
	return listeners.Expressions(exprs...), nil
}

// DefaultMetrics are recorded for every run built by the registry.
func (r *Registry) DefaultMetrics() []metrics.Metric {
	return append(metrics.Standard(),
		metrics.NewEnergy(),
		metrics.NewEnergyDrift(),
		metrics.NewStability(10.0),
		metrics.NewGLoad(),
	)
}
