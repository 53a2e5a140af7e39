// Package flight holds the recorded artifacts of a simulation: rigid body
// samples, discrete flight events and the branches that collect them.
package flight

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/flightsim/internal/dynamo"
)

// StateDim is the length of a packed rigid body state: position, velocity,
// orientation quaternion (w, x, y, z) and angular velocity.
const StateDim = 13

var ErrNegativeMass = errors.New("flight: negative mass")

// MassProperties is the derived mass distribution at an instant.
type MassProperties struct {
	Mass    float64
	Inertia mgl64.Mat3
}

// MassSource derives the current mass properties of the vehicle.
type MassSource interface {
	MassProperties(t float64) (MassProperties, error)
}

// RigidBodyState is the physical state of the vehicle at one instant. Mass
// and inertia are derived through Rederive and cannot be set directly.
type RigidBodyState struct {
	Time            float64
	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	Acceleration    mgl64.Vec3
	Orientation     mgl64.Quat
	AngularVelocity mgl64.Vec3
	Stage           int

	mass    float64
	inertia mgl64.Mat3
}

// NewState returns a state at rest at the origin with the given orientation.
func NewState(orientation mgl64.Quat) RigidBodyState {
	return RigidBodyState{Orientation: normalized(orientation)}
}

func (s RigidBodyState) Mass() float64       { return s.mass }
func (s RigidBodyState) Inertia() mgl64.Mat3 { return s.inertia }

// Rederive refreshes mass and inertia from src at the state's time.
func (s *RigidBodyState) Rederive(src MassSource) error {
	mp, err := src.MassProperties(s.Time)
	if err != nil {
		return err
	}
	if mp.Mass < 0 || math.IsNaN(mp.Mass) {
		return fmt.Errorf("%w: %.6g kg at t=%.4f", ErrNegativeMass, mp.Mass, s.Time)
	}
	s.mass = mp.Mass
	s.inertia = mp.Inertia
	return nil
}

func (s RigidBodyState) Altitude() float64         { return s.Position.Z() }
func (s RigidBodyState) VerticalVelocity() float64 { return s.Velocity.Z() }
func (s RigidBodyState) Speed() float64            { return s.Velocity.Len() }

// Axis is the body's longitudinal axis in the world frame.
func (s RigidBodyState) Axis() mgl64.Vec3 {
	return s.Orientation.Rotate(mgl64.Vec3{0, 0, 1})
}

// Pack flattens the integrated part of the state.
func (s RigidBodyState) Pack() dynamo.State {
	q := s.Orientation
	return dynamo.State{
		s.Position[0], s.Position[1], s.Position[2],
		s.Velocity[0], s.Velocity[1], s.Velocity[2],
		q.W, q.V[0], q.V[1], q.V[2],
		s.AngularVelocity[0], s.AngularVelocity[1], s.AngularVelocity[2],
	}
}

// Unpack overwrites the integrated part of the state from x at time t and
// renormalizes the orientation. Mass, inertia and acceleration are untouched.
func (s *RigidBodyState) Unpack(x dynamo.State, t float64) error {
	if len(x) != StateDim {
		return fmt.Errorf("%w: got %d, want %d", dynamo.ErrDimensionMismatch, len(x), StateDim)
	}
	s.Time = t
	s.Position = mgl64.Vec3{x[0], x[1], x[2]}
	s.Velocity = mgl64.Vec3{x[3], x[4], x[5]}
	s.Orientation = normalized(mgl64.Quat{W: x[6], V: mgl64.Vec3{x[7], x[8], x[9]}})
	s.AngularVelocity = mgl64.Vec3{x[10], x[11], x[12]}
	return nil
}

func (s RigidBodyState) String() string {
	return fmt.Sprintf("t=%.3f alt=%.2f vz=%.2f m=%.3f stage=%d",
		s.Time, s.Altitude(), s.VerticalVelocity(), s.mass, s.Stage)
}

func normalized(q mgl64.Quat) mgl64.Quat {
	if q.Len() == 0 {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}
