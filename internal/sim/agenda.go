package sim

import (
	"cmp"
	"slices"

	"github.com/san-kum/flightsim/internal/flight"
)

// scheduled is an event due at a known time. Steps are bounded by the
// earliest one so it fires exactly on time.
type scheduled struct {
	Time   float64
	Type   flight.EventType
	Source string
}

func (s scheduled) compare(o scheduled) int {
	if c := cmp.Compare(s.Time, o.Time); c != 0 {
		return c
	}
	if c := cmp.Compare(s.Type.Priority(), o.Type.Priority()); c != 0 {
		return c
	}
	return cmp.Compare(s.Source, o.Source)
}

// agenda is a time-ordered queue of scheduled events.
type agenda []scheduled

func (a *agenda) push(s scheduled) {
	i, _ := slices.BinarySearchFunc(*a, s, scheduled.compare)
	*a = slices.Insert(*a, i, s)
}

func (a agenda) next() (float64, bool) {
	if len(a) == 0 {
		return 0, false
	}
	return a[0].Time, true
}

// pop removes and returns the first event due at or before t. Events pushed
// while firing take their place in the order immediately.
func (a *agenda) pop(t float64) (scheduled, bool) {
	if len(*a) == 0 || (*a)[0].Time > t {
		return scheduled{}, false
	}
	s := (*a)[0]
	*a = slices.Delete(*a, 0, 1)
	return s, true
}

func (a agenda) clone() agenda {
	return slices.Clone(a)
}
