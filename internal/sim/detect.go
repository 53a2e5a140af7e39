package sim

import (
	"github.com/san-kum/flightsim/internal/dynamo"
	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/stage"
)

// watcher is a crossing condition. It fires when g goes from positive to
// non-positive across a step; trigger then schedules whatever follows.
type watcher struct {
	name    string
	g       func(s flight.RigidBodyState) float64
	trigger func(t float64)
}

// watchers lists the crossing conditions active in the current stage state.
func (b *branchRun) watchers() []watcher {
	m := b.machine
	if !m.Liftoff() {
		return nil
	}
	at := func(typ flight.EventType, source string) func(float64) {
		return func(t float64) { b.agenda.push(scheduled{Time: t, Type: typ, Source: source}) }
	}

	var ws []watcher
	if !m.Cleared() {
		u := b.cfg().Environment.RailAxis()
		rail := b.cfg().Environment.RailLength
		ws = append(ws, watcher{
			name:    "rail",
			g:       func(st flight.RigidBodyState) float64 { return rail - st.Position.Dot(u) },
			trigger: at(flight.LaunchRodClearance, ""),
		})
	}
	if !m.Apogee() {
		ws = append(ws, watcher{
			name:    "apogee",
			g:       flight.RigidBodyState.VerticalVelocity,
			trigger: at(flight.Apogee, ""),
		})
	}
	ws = append(ws, watcher{
		name:    "ground",
		g:       flight.RigidBodyState.Altitude,
		trigger: at(flight.GroundHit, ""),
	})

	r := b.run.engine.rocket
	for i, c := range r.Motors() {
		if c.Ignition != motor.IgniteAtAltitude || m.Apogee() || b.armed[c.ID] ||
			m.MotorState(i) != stage.Unignited || !m.Attached(c.Stage) {
			continue
		}
		ws = append(ws, watcher{
			name: "ignite " + c.ID,
			g:    func(st flight.RigidBodyState) float64 { return c.Altitude - st.Altitude() },
			trigger: func(t float64) {
				b.armed[c.ID] = true
				b.agenda.push(scheduled{Time: t + c.Delay, Type: flight.Ignition, Source: c.ID})
			},
		})
	}

	if !m.Apogee() {
		return ws
	}
	for _, si := range m.AttachedStages() {
		s := r.Stage(si)
		for _, d := range s.Recovery {
			key := stage.DeviceKey(s.Name, d.Name)
			if b.armed[key] {
				continue
			}
			var g func(flight.RigidBodyState) float64
			switch d.Trigger {
			case rocket.DeployAtAltitude:
				h := d.Altitude
				g = func(st flight.RigidBodyState) float64 { return st.Altitude() - h }
			case rocket.DeployAtVelocity:
				v := d.Velocity
				g = func(st flight.RigidBodyState) float64 { return v + st.VerticalVelocity() }
			default:
				continue
			}
			delay := d.Delay
			ws = append(ws, watcher{
				name: "deploy " + key,
				g:    g,
				trigger: func(t float64) {
					b.armed[key] = true
					b.agenda.push(scheduled{Time: t + delay, Type: flight.Deployment, Source: key})
				},
			})
		}
	}
	return ws
}

// detect checks the candidate step (x0, t0) -> (x1, t1) for crossings. When
// any watcher crosses, the step is cut back by bisection to the earliest
// crossing, located within EventTolerance, and redone to end there. The
// returned watchers are those crossed by the returned end time.
func (b *branchRun) detect(x0 dynamo.State, t0 float64, x1 dynamo.State, t1 float64) (dynamo.State, float64, []watcher, error) {
	ws := b.watchers()
	s0 := b.stateAt(x0, t0)
	s1 := b.stateAt(x1, t1)

	var hit []watcher
	for _, w := range ws {
		if w.g(s0) > 0 && w.g(s1) <= 0 {
			hit = append(hit, w)
		}
	}
	if len(hit) == 0 {
		return x1, t1, nil, nil
	}

	crossed := func(s flight.RigidBodyState) bool {
		for _, w := range hit {
			if w.g(s) <= 0 {
				return true
			}
		}
		return false
	}

	lo, hi, xHi := t0, t1, x1
	tol := b.cfg().EventTolerance
	for hi-lo > tol {
		mid := lo + (hi-lo)/2
		if mid <= lo || mid >= hi {
			break
		}
		xm, err := b.integrate(x0, t0, mid)
		if err != nil {
			return nil, 0, nil, err
		}
		if crossed(b.stateAt(xm, mid)) {
			hi, xHi = mid, xm
		} else {
			lo = mid
		}
	}

	sHi := b.stateAt(xHi, hi)
	var fired []watcher
	for _, w := range hit {
		if w.g(sHi) <= 0 {
			fired = append(fired, w)
		}
	}
	return xHi, hi, fired, nil
}

// integrate advances x0 from t0 to exactly t1.
func (b *branchRun) integrate(x0 dynamo.State, t0, t1 float64) (dynamo.State, error) {
	x, t := x0, t0
	dt := t1 - t0
	for t < t1 {
		s, err := b.stepper.Advance(b.sys, x, t, dt, t1)
		if evalErr := b.sys.takeErr(); evalErr != nil {
			return nil, evalErr
		}
		if err != nil {
			return nil, err
		}
		x, t, dt = s.X, s.T, s.NextDt
	}
	return x, nil
}

func (b *branchRun) stateAt(x dynamo.State, t float64) flight.RigidBodyState {
	s := b.status.State
	_ = s.Unpack(x, t)
	return s
}
