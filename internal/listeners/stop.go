package listeners

import (
	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/sim"
)

// StopAtAltitude ends the run once any branch climbs to h metres.
func StopAtAltitude(h float64) sim.Listener {
	return sim.Listener{
		Name: "stop-at-altitude",
		PostStep: func(st *sim.Status) error {
			if st.State.Altitude() >= h {
				return sim.ErrStop
			}
			return nil
		},
	}
}

// StopAtTime ends the run at the first step starting at or after t.
func StopAtTime(t float64) sim.Listener {
	return sim.Listener{
		Name: "stop-at-time",
		PreStep: func(st *sim.Status) error {
			if st.State.Time >= t {
				return sim.ErrStop
			}
			return nil
		},
	}
}

// StopOnEvent ends the run at the end of the step in which typ is recorded.
func StopOnEvent(typ flight.EventType) sim.Listener {
	key := "stop." + typ.String()
	return sim.Listener{
		Name: "stop-on-" + typ.String(),
		OnEvent: func(st *sim.Status, e flight.Event) (bool, error) {
			if e.Type == typ {
				st.Set(key, true)
			}
			return true, nil
		},
		PostStep: func(st *sim.Status) error {
			if v, _ := st.Get(key); v != nil {
				return sim.ErrStop
			}
			return nil
		},
	}
}
