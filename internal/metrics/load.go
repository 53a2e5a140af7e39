package metrics

import (
	"github.com/san-kum/flightsim/internal/sim"
)

// GLoad is the mean acceleration, in multiples of gravity, over the steps
// where a motor is burning.
type GLoad struct {
	sum     float64
	samples int
}

func NewGLoad() *GLoad { return &GLoad{} }

func (g *GLoad) Name() string { return "mean_g_load" }

func (g *GLoad) Observe(st *sim.Status) {
	if st.Machine == nil || len(st.Machine.Burning()) == 0 {
		return
	}
	gravity := st.Config.Environment.Gravity
	if gravity == 0 {
		return
	}
	g.sum += st.State.Acceleration.Len() / gravity
	g.samples++
}

func (g *GLoad) Value() float64 {
	if g.samples == 0 {
		return 0
	}
	return g.sum / float64(g.samples)
}

func (g *GLoad) Reset() {
	g.sum = 0
	g.samples = 0
}

func (g *GLoad) Clone() Metric {
	c := *g
	return &c
}
