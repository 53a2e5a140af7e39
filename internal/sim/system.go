package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/flightsim/internal/dynamo"
	"github.com/san-kum/flightsim/internal/flight"
)

// flightSystem exposes one branch's equations of motion to the integrator.
// Derive cannot return an error, so the first failure is kept in err and
// the derivative turns to NaN, which the stepper reports as invalid.
type flightSystem struct {
	br  *branchRun
	err error
}

func (s *flightSystem) StateDim() int { return flight.StateDim }

func (s *flightSystem) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, flight.StateDim)
	if s.err != nil {
		return poisoned(dx)
	}
	st, f, err := s.evaluate(x, t)
	if err != nil {
		s.err = err
		return poisoned(dx)
	}

	acc, alpha := s.accelerations(st, f)
	q := st.Orientation
	qdot := mgl64.Quat{V: st.AngularVelocity}.Mul(q).Scale(0.5)

	copy(dx[0:3], st.Velocity[:])
	copy(dx[3:6], acc[:])
	dx[6], dx[7], dx[8], dx[9] = qdot.W, qdot.V[0], qdot.V[1], qdot.V[2]
	copy(dx[10:13], alpha[:])
	return dx
}

// evaluate rebuilds the rigid body at (x, t) and computes the forces on it,
// including listener overrides.
func (s *flightSystem) evaluate(x dynamo.State, t float64) (flight.RigidBodyState, Forces, error) {
	br := s.br
	st := br.status.State
	if err := st.Unpack(x, t); err != nil {
		return st, Forces{}, err
	}
	if err := st.Rederive(br.vehicle); err != nil {
		return st, Forces{}, err
	}
	env := br.status.Config.Environment
	f := br.run.engine.forces.Compute(env, br.vehicle.Load(t), st)
	if err := br.run.engine.chain.forces(br.status, st, &f); err != nil {
		return st, Forces{}, err
	}
	return st, f, nil
}

// accelerations applies the launch rail: before liftoff the vehicle is held,
// on the rail it moves only along the rail and cannot sink into the pad.
func (s *flightSystem) accelerations(st flight.RigidBodyState, f Forces) (mgl64.Vec3, mgl64.Vec3) {
	m := s.br.machine
	a := f.Net().Mul(1 / st.Mass())
	if m.Cleared() {
		return a, st.Inertia().Inv().Mul3x1(f.Moment)
	}

	if !m.Liftoff() {
		return mgl64.Vec3{}, mgl64.Vec3{}
	}
	u := s.br.status.Config.Environment.RailAxis()
	along := a.Dot(u)
	if along < 0 && st.Position.Dot(u) <= 0 {
		along = 0
	}
	return u.Mul(along), mgl64.Vec3{}
}

func poisoned(dx dynamo.State) dynamo.State {
	for i := range dx {
		dx[i] = math.NaN()
	}
	return dx
}

// takeErr returns and clears a deferred evaluation error.
func (s *flightSystem) takeErr() error {
	err := s.err
	s.err = nil
	return err
}
