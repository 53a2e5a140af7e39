package sim

import (
	"math/rand"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/stage"
)

// Cloner is implemented by extension values that need a deep copy when a
// status is snapshotted.
type Cloner interface {
	Clone() any
}

// Status is the live working state of one branch. It is owned by the engine;
// observers get copies from Snapshot.
type Status struct {
	State      flight.RigidBodyState
	Machine    *stage.Machine
	Branch     flight.BranchID
	BranchName string
	Config     Config
	Step       int

	// Extra carries listener values in insertion order.
	Extra *orderedmap.OrderedMap[string, any]

	// Rand is seeded from Config.Seed and the branch id. Snapshots leave it
	// nil.
	Rand *rand.Rand
}

func newStatus(cfg Config, id flight.BranchID, name string, m *stage.Machine) *Status {
	return &Status{
		Machine:    m,
		Branch:     id,
		BranchName: name,
		Config:     cfg,
		Extra:      orderedmap.NewOrderedMap[string, any](),
		Rand:       rand.New(rand.NewSource(cfg.Seed + int64(id))),
	}
}

func (s *Status) Set(key string, v any) {
	s.Extra.Set(key, v)
}

func (s *Status) Get(key string) (any, bool) {
	return s.Extra.Get(key)
}

// Float returns a numeric extension value.
func (s *Status) Float(key string) (float64, bool) {
	v, ok := s.Extra.Get(key)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Snapshot returns a deep copy safe to hand to another goroutine.
func (s *Status) Snapshot() *Status {
	c := *s
	c.Rand = nil
	if s.Machine != nil {
		c.Machine = s.Machine.Clone()
	}
	c.Extra = cloneExtra(s.Extra)
	return &c
}

func cloneExtra(m *orderedmap.OrderedMap[string, any]) *orderedmap.OrderedMap[string, any] {
	out := orderedmap.NewOrderedMap[string, any]()
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if c, ok := v.(Cloner); ok {
			v = c.Clone()
		}
		out.Set(k, v)
	}
	return out
}
