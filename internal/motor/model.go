// Package motor models rocket motors as immutable thrust and mass curves.
package motor

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrUnknownMotor = errors.New("motor: unknown designation")
	ErrInvalidCurve = errors.New("motor: invalid thrust curve")
)

// Sample is one point of a thrust curve.
type Sample struct {
	Time   float64 `yaml:"t" json:"t"`
	Thrust float64 `yaml:"f" json:"f"`
}

// Model is a motor's thrust-vs-time and mass-vs-time behaviour. It holds no
// mutable state and may be shared between concurrent runs.
type Model struct {
	designation    string
	diameter       float64
	length         float64
	propellantMass float64
	casingMass     float64

	times   []float64
	thrusts []float64
	impulse []float64
}

// NewModel validates the curve and precomputes cumulative impulse. The curve
// must start at t=0 with strictly increasing times and non-negative thrust.
func NewModel(designation string, curve []Sample, propellantMass, casingMass float64) (*Model, error) {
	if len(curve) < 2 {
		return nil, fmt.Errorf("%w: %s needs at least two samples", ErrInvalidCurve, designation)
	}
	if curve[0].Time != 0 {
		return nil, fmt.Errorf("%w: %s must start at t=0", ErrInvalidCurve, designation)
	}
	if propellantMass < 0 || casingMass < 0 {
		return nil, fmt.Errorf("%w: %s has negative mass", ErrInvalidCurve, designation)
	}

	m := &Model{
		designation:    designation,
		propellantMass: propellantMass,
		casingMass:     casingMass,
		times:          make([]float64, len(curve)),
		thrusts:        make([]float64, len(curve)),
		impulse:        make([]float64, len(curve)),
	}
	for i, s := range curve {
		if s.Thrust < 0 || math.IsNaN(s.Thrust) || math.IsInf(s.Thrust, 0) {
			return nil, fmt.Errorf("%w: %s sample %d has thrust %v", ErrInvalidCurve, designation, i, s.Thrust)
		}
		if i > 0 && !(s.Time > curve[i-1].Time) {
			return nil, fmt.Errorf("%w: %s sample %d is not after sample %d", ErrInvalidCurve, designation, i, i-1)
		}
		m.times[i] = s.Time
		m.thrusts[i] = s.Thrust
		if i > 0 {
			dt := s.Time - curve[i-1].Time
			m.impulse[i] = m.impulse[i-1] + dt*(s.Thrust+curve[i-1].Thrust)/2
		}
	}
	if m.TotalImpulse() <= 0 {
		return nil, fmt.Errorf("%w: %s delivers no impulse", ErrInvalidCurve, designation)
	}
	return m, nil
}

// ConstantThrust builds a flat thrust curve lasting burnTime seconds.
func ConstantThrust(designation string, thrust, burnTime, propellantMass, casingMass float64) (*Model, error) {
	return NewModel(designation, []Sample{{0, thrust}, {burnTime, thrust}}, propellantMass, casingMass)
}

// WithDimensions returns a copy of m with casing dimensions set, used for
// inertia estimates.
func (m *Model) WithDimensions(diameter, length float64) *Model {
	c := *m
	c.diameter = diameter
	c.length = length
	return &c
}

// Scaled returns a copy of m with every thrust sample multiplied by factor.
func (m *Model) Scaled(factor float64) (*Model, error) {
	curve := m.Curve()
	for i := range curve {
		curve[i].Thrust *= factor
	}
	s, err := NewModel(m.designation, curve, m.propellantMass, m.casingMass)
	if err != nil {
		return nil, err
	}
	return s.WithDimensions(m.diameter, m.length), nil
}

func (m *Model) Designation() string     { return m.designation }
func (m *Model) BurnTime() float64       { return m.times[len(m.times)-1] }
func (m *Model) TotalImpulse() float64   { return m.impulse[len(m.impulse)-1] }
func (m *Model) PropellantMass() float64 { return m.propellantMass }
func (m *Model) CasingMass() float64     { return m.casingMass }
func (m *Model) Diameter() float64       { return m.diameter }
func (m *Model) Length() float64         { return m.length }

func (m *Model) AverageThrust() float64 {
	return m.TotalImpulse() / m.BurnTime()
}

// Curve returns a copy of the thrust curve samples.
func (m *Model) Curve() []Sample {
	out := make([]Sample, len(m.times))
	for i := range m.times {
		out[i] = Sample{Time: m.times[i], Thrust: m.thrusts[i]}
	}
	return out
}

// Thrust returns the thrust t seconds after ignition. It is zero outside the
// burn.
func (m *Model) Thrust(t float64) float64 {
	if t < 0 || t > m.BurnTime() {
		return 0
	}
	i := m.segment(t)
	if i == len(m.times)-1 {
		return m.thrusts[i]
	}
	frac := (t - m.times[i]) / (m.times[i+1] - m.times[i])
	return m.thrusts[i] + frac*(m.thrusts[i+1]-m.thrusts[i])
}

// Impulse returns the impulse delivered t seconds after ignition.
func (m *Model) Impulse(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= m.BurnTime() {
		return m.TotalImpulse()
	}
	i := m.segment(t)
	return m.impulse[i] + (t-m.times[i])*(m.thrusts[i]+m.Thrust(t))/2
}

// PropellantAt returns the propellant remaining t seconds after ignition.
// Propellant is consumed in proportion to impulse delivered.
func (m *Model) PropellantAt(t float64) float64 {
	if t <= 0 {
		return m.propellantMass
	}
	if t >= m.BurnTime() {
		return 0
	}
	remaining := m.propellantMass * (1 - m.Impulse(t)/m.TotalImpulse())
	return math.Max(0, remaining)
}

// MassAt returns the motor mass t seconds after ignition.
func (m *Model) MassAt(t float64) float64 {
	return m.casingMass + m.PropellantAt(t)
}

func (m *Model) segment(t float64) int {
	i := sort.SearchFloat64s(m.times, t)
	if i < len(m.times) && m.times[i] == t {
		return i
	}
	return i - 1
}
