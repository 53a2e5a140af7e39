package metrics

import (
	"math"

	"github.com/san-kum/flightsim/internal/sim"
)

func specificEnergy(st *sim.Status) float64 {
	v := st.State.Speed()
	return 0.5*v*v + st.Config.Environment.Gravity*st.State.Altitude()
}

// Energy is the peak mechanical energy of the vehicle in joules.
type Energy struct {
	max float64
}

func NewEnergy() *Energy { return &Energy{} }

func (e *Energy) Name() string { return "max_energy" }

func (e *Energy) Observe(st *sim.Status) {
	e.max = math.Max(e.max, st.State.Mass()*specificEnergy(st))
}

func (e *Energy) Value() float64 { return e.max }

func (e *Energy) Reset() { e.max = 0 }

func (e *Energy) Clone() Metric {
	c := *e
	return &c
}

// EnergyDrift is the largest relative change in specific mechanical energy
// while the vehicle coasts with no motor burning. In vacuum it measures the
// integration error; in air it also includes what drag took away. The
// baseline restarts whenever a motor burns.
type EnergyDrift struct {
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift { return &EnergyDrift{} }

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(st *sim.Status) {
	m := st.Machine
	if m == nil || !m.Liftoff() || m.Landed() || len(m.Burning()) > 0 {
		e.samples = 0
		return
	}

	energy := specificEnergy(st)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

func (e *EnergyDrift) Clone() Metric {
	c := *e
	return &c
}
