// Package metrics reduces a flight branch to scalar figures such as peak
// altitude or energy drift, observed through a sim.Listener.
package metrics

import (
	"github.com/elliotchance/orderedmap/v2"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/sim"
)

// Metric folds the states of one branch into a single value.
type Metric interface {
	Name() string
	Observe(st *sim.Status)
	Value() float64
	Reset()
	Clone() Metric
}

// EventObserver is implemented by metrics that also need flight events.
type EventObserver interface {
	ObserveEvent(e flight.Event)
}

const keyPrefix = "metric."

// slot wraps a metric in the extension store so forks get their own copy.
type slot struct{ m Metric }

func (s slot) Clone() any { return slot{s.m.Clone()} }

// Listener observes every step and every event with a per-branch copy of
// each prototype in ms.
func Listener(ms ...Metric) sim.Listener {
	get := func(st *sim.Status, proto Metric) Metric {
		key := keyPrefix + proto.Name()
		if v, ok := st.Get(key); ok {
			if s, ok := v.(slot); ok {
				return s.m
			}
		}
		m := proto.Clone()
		m.Reset()
		st.Set(key, slot{m})
		return m
	}

	return sim.Listener{
		Name: "metrics",
		PostStep: func(st *sim.Status) error {
			for _, proto := range ms {
				get(st, proto).Observe(st)
			}
			return nil
		},
		OnEvent: func(st *sim.Status, e flight.Event) (bool, error) {
			for _, proto := range ms {
				m := get(st, proto)
				if eo, ok := m.(EventObserver); ok {
					eo.ObserveEvent(e)
				}
				m.Observe(st)
			}
			return true, nil
		},
	}
}

// Values extracts the metric values from an extension store in the order the
// metrics were first observed.
func Values(extra *orderedmap.OrderedMap[string, any]) *orderedmap.OrderedMap[string, float64] {
	out := orderedmap.NewOrderedMap[string, float64]()
	if extra == nil {
		return out
	}
	for el := extra.Front(); el != nil; el = el.Next() {
		s, ok := el.Value.(slot)
		if !ok {
			continue
		}
		out.Set(s.m.Name(), s.m.Value())
	}
	return out
}

// Standard returns the metrics recorded for every stored run.
func Standard() []Metric {
	return []Metric{
		NewMaxAltitude(),
		NewMaxSpeed(),
		NewMaxAcceleration(),
		NewMaxVerticalVelocity(),
		NewFlightTime(),
	}
}
