package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/flightsim/internal/flight"
)

// Forces are the world frame forces (N) and moment (N·m) acting on the
// vehicle. Listeners may rewrite any of them; Extra is left for them.
type Forces struct {
	Gravity mgl64.Vec3
	Thrust  mgl64.Vec3
	Drag    mgl64.Vec3
	Extra   mgl64.Vec3
	Moment  mgl64.Vec3
}

func (f Forces) Net() mgl64.Vec3 {
	return f.Gravity.Add(f.Thrust).Add(f.Drag).Add(f.Extra)
}

// Load is what the vehicle presents to the force model at an instant.
type Load struct {
	Thrust   float64
	DragArea float64
}

// ForceModel computes the forces on a rigid body.
type ForceModel interface {
	Compute(env Environment, load Load, x flight.RigidBodyState) Forces
}

// StandardForces applies constant gravity, thrust along the body axis and
// quadratic drag against the air-relative velocity in an exponential
// atmosphere.
type StandardForces struct{}

func (StandardForces) Compute(env Environment, load Load, x flight.RigidBodyState) Forces {
	f := Forces{
		Gravity: mgl64.Vec3{0, 0, -env.Gravity * x.Mass()},
		Thrust:  x.Axis().Mul(load.Thrust),
	}
	if load.DragArea > 0 {
		rel := x.Velocity.Sub(env.Wind)
		q := 0.5 * env.Density(x.Altitude()) * rel.Len() * load.DragArea
		f.Drag = rel.Mul(-q)
	}
	return f
}
