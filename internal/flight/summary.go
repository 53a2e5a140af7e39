package flight

import "math"

// Summary condenses a branch into the figures reported for a run.
type Summary struct {
	Name       string  `json:"name"`
	Samples    int     `json:"samples"`
	Events     int     `json:"events"`
	Apogee     float64 `json:"apogee"`
	ApogeeTime float64 `json:"apogee_time"`
	MaxSpeed   float64 `json:"max_speed"`
	MaxAccel   float64 `json:"max_acceleration"`
	FlightTime float64 `json:"flight_time"`
	LandingX   float64 `json:"landing_x"`
	LandingY   float64 `json:"landing_y"`
	Landed     bool    `json:"landed"`
	Truncated  bool    `json:"truncated"`
	Partial    bool    `json:"partial"`
}

// Downrange is the horizontal distance from the pad to the landing point.
func (s Summary) Downrange() float64 { return math.Hypot(s.LandingX, s.LandingY) }

// Summary scans the samples and events of b. Apogee comes from the APOGEE
// event when there is one, otherwise from the highest sample.
func (b *Branch) Summary() Summary {
	s := Summary{
		Name:      b.name,
		Samples:   len(b.samples),
		Events:    len(b.events),
		Truncated: b.truncated,
		Partial:   b.partial,
	}
	for _, x := range b.samples {
		if x.Altitude() > s.Apogee {
			s.Apogee, s.ApogeeTime = x.Altitude(), x.Time
		}
		s.MaxSpeed = math.Max(s.MaxSpeed, x.Speed())
		s.MaxAccel = math.Max(s.MaxAccel, x.Acceleration.Len())
	}
	if e, ok := b.FirstEvent(Apogee); ok {
		s.Apogee, s.ApogeeTime = e.State.Altitude(), e.Time
	}

	start := 0.0
	if e, ok := b.FirstEvent(Liftoff); ok {
		start = e.Time
	}
	end, ok := b.Last()
	if e, hit := b.FirstEvent(GroundHit); hit {
		end, ok = e.State, true
		s.Landed = true
	}
	if ok {
		s.FlightTime = end.Time - start
		s.LandingX, s.LandingY = end.Position.X(), end.Position.Y()
	}
	return s
}
