package metrics

import (
	"math"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/sim"
)

// Peak tracks the largest value of a state quantity.
type Peak struct {
	name    string
	of      func(x flight.RigidBodyState) float64
	max     float64
	samples int
}

func NewPeak(name string, of func(x flight.RigidBodyState) float64) *Peak {
	return &Peak{name: name, of: of}
}

func NewMaxAltitude() *Peak {
	return NewPeak("max_altitude", flight.RigidBodyState.Altitude)
}

func NewMaxSpeed() *Peak {
	return NewPeak("max_speed", flight.RigidBodyState.Speed)
}

func NewMaxVerticalVelocity() *Peak {
	return NewPeak("max_vertical_velocity", flight.RigidBodyState.VerticalVelocity)
}

func NewMaxAcceleration() *Peak {
	return NewPeak("max_acceleration", func(x flight.RigidBodyState) float64 {
		return x.Acceleration.Len()
	})
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(st *sim.Status) {
	v := p.of(st.State)
	if p.samples == 0 {
		p.max = v
	} else {
		p.max = math.Max(p.max, v)
	}
	p.samples++
}

func (p *Peak) Value() float64 { return p.max }

func (p *Peak) Reset() {
	p.max = 0
	p.samples = 0
}

func (p *Peak) Clone() Metric {
	c := *p
	return &c
}

// FlightTime is the time from liftoff to ground hit, or to the last observed
// state when the branch never lands.
type FlightTime struct {
	liftoff float64
	end     float64
	flying  bool
	landed  bool
}

func NewFlightTime() *FlightTime { return &FlightTime{} }

func (f *FlightTime) Name() string { return "flight_time" }

func (f *FlightTime) ObserveEvent(e flight.Event) {
	switch e.Type {
	case flight.Liftoff:
		f.liftoff = e.Time
		f.flying = true
	case flight.GroundHit:
		f.end = e.Time
		f.landed = true
	}
}

func (f *FlightTime) Observe(st *sim.Status) {
	if f.flying && !f.landed {
		f.end = st.State.Time
	}
}

func (f *FlightTime) Value() float64 {
	if !f.flying {
		return 0
	}
	return f.end - f.liftoff
}

func (f *FlightTime) Reset() { *f = FlightTime{} }

func (f *FlightTime) Clone() Metric {
	c := *f
	return &c
}
