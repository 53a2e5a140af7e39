package storage

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/flightsim/internal/flight"
)

var header = []string{
	"time", "x", "y", "z", "vx", "vy", "vz", "ax", "ay", "az",
	"qw", "qx", "qy", "qz", "wx", "wy", "wz", "mass", "stage",
}

// Sample is one stored row of a branch.
type Sample struct {
	Time            float64    `json:"time"`
	Position        mgl64.Vec3 `json:"position"`
	Velocity        mgl64.Vec3 `json:"velocity"`
	Acceleration    mgl64.Vec3 `json:"acceleration"`
	Orientation     mgl64.Quat `json:"orientation"`
	AngularVelocity mgl64.Vec3 `json:"angular_velocity"`
	Mass            float64    `json:"mass"`
	Stage           int        `json:"stage"`
}

func (s Sample) Altitude() float64 { return s.Position.Z() }

func fromState(x flight.RigidBodyState) Sample {
	return Sample{
		Time:            x.Time,
		Position:        x.Position,
		Velocity:        x.Velocity,
		Acceleration:    x.Acceleration,
		Orientation:     x.Orientation,
		AngularVelocity: x.AngularVelocity,
		Mass:            x.Mass(),
		Stage:           x.Stage,
	}
}

func (s Sample) record() []string {
	vals := []float64{s.Time}
	vals = append(vals, s.Position[:]...)
	vals = append(vals, s.Velocity[:]...)
	vals = append(vals, s.Acceleration[:]...)
	vals = append(vals, s.Orientation.W)
	vals = append(vals, s.Orientation.V[:]...)
	vals = append(vals, s.AngularVelocity[:]...)
	vals = append(vals, s.Mass)

	rec := make([]string, 0, len(header))
	for _, v := range vals {
		rec = append(rec, formatFloat(v))
	}
	return append(rec, strconv.Itoa(s.Stage))
}

func parseRecord(rec []string) (Sample, error) {
	var v [18]float64
	for i := range v {
		f, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return Sample{}, err
		}
		v[i] = f
	}
	stage, err := strconv.Atoi(rec[18])
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Time:            v[0],
		Position:        mgl64.Vec3{v[1], v[2], v[3]},
		Velocity:        mgl64.Vec3{v[4], v[5], v[6]},
		Acceleration:    mgl64.Vec3{v[7], v[8], v[9]},
		Orientation:     mgl64.Quat{W: v[10], V: mgl64.Vec3{v[11], v[12], v[13]}},
		AngularVelocity: mgl64.Vec3{v[14], v[15], v[16]},
		Mass:            v[17],
		Stage:           stage,
	}, nil
}
