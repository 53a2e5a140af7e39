package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/flightsim/internal/sim"
)

// Stability is the fraction of airborne steps whose body axis stays within
// threshold degrees of the launch axis.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(thresholdDeg float64) *Stability {
	return &Stability{threshold: thresholdDeg}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(st *sim.Status) {
	if st.Machine == nil || !st.Machine.Liftoff() || st.Machine.Landed() {
		return
	}
	s.samples++
	rail := st.Config.Environment.RailAxis()
	cos := mgl64.Clamp(st.State.Axis().Dot(rail), -1, 1)
	if mgl64.RadToDeg(math.Acos(cos)) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

func (s *Stability) Clone() Metric {
	c := *s
	return &c
}
