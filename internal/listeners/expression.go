// Package listeners holds ready-made sim.Listeners: derived-value
// expressions and stop conditions.
package listeners

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/flightsim/internal/sim"
)

var ErrUnknownExpression = errors.New("listeners: unknown expression")

// Expression derives one value from the live status.
type Expression struct {
	Name string
	Eval func(st *sim.Status) (float64, error)
}

var builtins = map[string]func(st *sim.Status) float64{
	"altitude":          func(st *sim.Status) float64 { return st.State.Altitude() },
	"vertical_velocity": func(st *sim.Status) float64 { return st.State.VerticalVelocity() },
	"speed":             func(st *sim.Status) float64 { return st.State.Speed() },
	"acceleration":      func(st *sim.Status) float64 { return st.State.Acceleration.Len() },
	"mass":              func(st *sim.Status) float64 { return st.State.Mass() },
	"downrange": func(st *sim.Status) float64 {
		p := st.State.Position
		return math.Hypot(p.X(), p.Y())
	},
	"dynamic_pressure": func(st *sim.Status) float64 {
		env := st.Config.Environment
		v := st.State.Velocity.Sub(env.Wind).Len()
		return 0.5 * env.Density(st.State.Altitude()) * v * v
	},
}

// Lookup returns the built-in expression called name.
func Lookup(name string) (Expression, error) {
	f, ok := builtins[name]
	if !ok {
		return Expression{}, fmt.Errorf("%w: %s", ErrUnknownExpression, name)
	}
	return Expression{
		Name: name,
		Eval: func(st *sim.Status) (float64, error) { return f(st), nil },
	}, nil
}

// Builtins lists the built-in expression names.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expressions evaluates exprs after every step and stores each value in the
// status extension store under its name. A non-finite value is an error.
func Expressions(exprs ...Expression) sim.Listener {
	return sim.Listener{
		Name: "expressions",
		PostStep: func(st *sim.Status) error {
			for _, e := range exprs {
				v, err := e.Eval(st)
				if err != nil {
					return fmt.Errorf("expression %s: %w", e.Name, err)
				}
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("expression %s: non-finite value at t=%.4f", e.Name, st.State.Time)
				}
				st.Set(e.Name, v)
			}
			return nil
		},
	}
}
