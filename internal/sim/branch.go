package sim

import (
	"fmt"
	"maps"
	"slices"

	"github.com/san-kum/flightsim/internal/dynamo"
	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/integrators"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/stage"
)

// branchRun steps one branch. After a separation the run holds one per live
// branch and interleaves them.
type branchRun struct {
	run     *run
	branch  *flight.Branch
	machine *stage.Machine
	vehicle *vehicle
	status  *Status
	sys     *flightSystem
	stepper *integrators.Stepper
	agenda  agenda
	dt      float64

	// armed holds recovery devices and altitude-ignited motors whose trigger
	// already fired, so crossings are not reported twice.
	armed map[string]bool
	done  bool
}

func (r *run) start() error {
	e := r.engine
	b := r.arena.NewBranch(e.rocket.Name())
	m := stage.New(e.rocket)

	br := &branchRun{
		run:     r,
		branch:  b,
		machine: m,
		vehicle: &vehicle{rocket: e.rocket, machine: m},
		status:  newStatus(e.cfg, b.ID(), b.Name(), m),
		stepper: integrators.NewStepper(e.integ, e.cfg.StepControl()),
		dt:      e.cfg.Dt,
		armed:   make(map[string]bool),
	}
	br.sys = &flightSystem{br: br}
	br.status.State = flight.NewState(e.cfg.Environment.LaunchOrientation())
	br.agenda.push(scheduled{Time: 0, Type: flight.Launch})
	r.branches = append(r.branches, br)
	return br.refresh()
}

func (b *branchRun) cfg() Config { return b.status.Config }

// step advances the branch by one accepted integration step, firing every
// event due at its start and end.
func (b *branchRun) step() error {
	st := b.status
	t := st.State.Time

	if err := b.settle(t); err != nil || b.done {
		return err
	}
	if err := b.checkLiftoff(); err != nil || b.done {
		return err
	}

	if err := b.run.engine.chain.preStep(st); err != nil {
		return err
	}

	if !b.machine.Liftoff() && !b.canLiftOff() {
		b.run.log.Warn().Str("branch", b.branch.Name()).Float64("t", t).Msg("vehicle never left the pad")
		return b.end(false)
	}

	limit := b.cfg().MaxTime
	if next, ok := b.agenda.next(); ok && next < limit {
		limit = next
	}
	if limit <= t {
		return b.end(true)
	}

	x := st.State.Pack()
	s, err := b.stepper.Advance(b.sys, x, t, b.dt, limit)
	if err := b.sys.takeErr(); err != nil {
		return err
	}
	if err != nil {
		return err
	}
	b.dt = s.NextDt

	xNew, tNew, hits, err := b.detect(x, t, s.X, s.T)
	if err != nil {
		return err
	}
	if err := b.accept(xNew, tNew); err != nil {
		return err
	}
	st.Step++
	b.run.steps++

	for _, h := range hits {
		h.trigger(tNew)
	}
	events := b.branch.NumEvents()
	if err := b.settle(tNew); err != nil || b.done {
		return err
	}
	if b.branch.NumEvents() == events {
		if last, ok := b.branch.Last(); !ok || tNew-last.Time >= b.cfg().SampleInterval {
			if err := b.sample(); err != nil {
				return err
			}
		}
	}

	if err := b.run.engine.chain.postStep(st); err != nil {
		return err
	}
	if tNew >= b.cfg().MaxTime {
		return b.end(true)
	}
	return nil
}

// settle fires every scheduled event due at t and ends the branch once it
// has landed.
func (b *branchRun) settle(t float64) error {
	for {
		s, ok := b.agenda.pop(t)
		if !ok {
			break
		}
		if err := b.fire(s); err != nil {
			return err
		}
	}
	if b.machine.Landed() {
		return b.end(false)
	}
	return nil
}

// accept makes (x, t) the current state and refreshes the derived parts.
func (b *branchRun) accept(x dynamo.State, t float64) error {
	st := &b.status.State
	if err := st.Unpack(x, t); err != nil {
		return err
	}
	if err := st.Rederive(b.vehicle); err != nil {
		return err
	}
	dx := b.sys.Derive(x, t)
	if err := b.sys.takeErr(); err != nil {
		return err
	}
	copy(st.Acceleration[:], dx[3:6])
	st.Stage = b.machine.Top()
	return nil
}

// checkLiftoff fires LIFTOFF at the first step start with a positive net
// force along the rail.
func (b *branchRun) checkLiftoff() error {
	if !b.machine.Launched() || b.machine.Liftoff() {
		return nil
	}
	st := b.status.State
	_, f, err := b.sys.evaluate(st.Pack(), st.Time)
	if err != nil {
		return err
	}
	if f.Net().Dot(b.cfg().Environment.RailAxis()) <= 0 {
		return nil
	}
	b.agenda.push(scheduled{Time: st.Time, Type: flight.Liftoff})
	return b.settle(st.Time)
}

// canLiftOff reports whether thrust is or will be available on the pad.
func (b *branchRun) canLiftOff() bool {
	if len(b.machine.Burning()) > 0 {
		return true
	}
	return slices.ContainsFunc(b.agenda, func(s scheduled) bool {
		return s.Type == flight.Ignition
	})
}

// fire runs a scheduled event through the listeners, the stage machine and
// the recorder, then schedules its follow-ups.
func (b *branchRun) fire(s scheduled) error {
	if !b.relevant(s) {
		return nil
	}
	st := b.status
	ev := flight.Event{Type: s.Type, Time: st.State.Time, State: st.State, Source: s.Source}

	ok, err := b.run.engine.chain.onEvent(st, ev)
	if err != nil {
		return err
	}
	if !ok {
		b.run.log.Debug().Str("branch", b.branch.Name()).Stringer("event", ev).Msg("event vetoed")
		return nil
	}

	if ev.Type == flight.StageSeparation {
		if err := b.run.fork(b, ev); err != nil {
			return err
		}
	}
	ts, err := b.machine.Apply(ev)
	if err != nil {
		return err
	}
	if err := b.refresh(); err != nil {
		return err
	}
	if err := b.record(ev); err != nil {
		return err
	}
	b.run.log.Debug().Str("branch", b.branch.Name()).Stringer("event", ev).
		Float64("altitude", ev.State.Altitude()).Msg("flight event")

	b.follow(ev, ts)
	return nil
}

// refresh rederives mass and stage after the machine changed.
func (b *branchRun) refresh() error {
	b.status.State.Stage = b.machine.Top()
	return b.status.State.Rederive(b.vehicle)
}

func (b *branchRun) record(ev flight.Event) error {
	if err := b.branch.AddEvent(ev); err != nil {
		return err
	}
	return b.sample()
}

// sample appends the current state unless it is already the last sample.
func (b *branchRun) sample() error {
	st := b.status.State
	if last, ok := b.branch.Last(); ok && last.Time >= st.Time {
		return nil
	}
	return b.branch.Append(st)
}

// relevant drops scheduled events made stale by an earlier transition, such
// as the burnout of a motor that left with a separated stage.
func (b *branchRun) relevant(s scheduled) bool {
	r := b.run.engine.rocket
	m := b.machine
	switch s.Type {
	case flight.Ignition:
		i := r.MotorIndex(s.Source)
		if i < 0 || !m.Attached(r.Motor(i).Stage) {
			return false
		}
		return m.MotorState(i) == stage.Ignited ||
			(m.MotorState(i) == stage.Unignited && r.Motor(i).Ignition == motor.IgniteAtAltitude)
	case flight.Burnout:
		i := r.MotorIndex(s.Source)
		return i >= 0 && m.Attached(r.Motor(i).Stage) && m.MotorState(i) == stage.Burning
	case flight.StageSeparation:
		i := r.StageIndex(s.Source)
		return i > m.Top() && m.Attached(i)
	case flight.Deployment:
		si, _ := b.device(s.Source)
		return si >= 0 && m.Attached(si) && !m.Deployed(s.Source)
	}
	return true
}

// device resolves a deployment source to its stage and device.
func (b *branchRun) device(key string) (int, rocket.RecoveryDevice) {
	for si, s := range b.run.engine.rocket.Stages() {
		for _, d := range s.Recovery {
			if stage.DeviceKey(s.Name, d.Name) == key {
				return si, d
			}
		}
	}
	return -1, rocket.RecoveryDevice{}
}

// follow schedules what an applied event sets in motion.
func (b *branchRun) follow(ev flight.Event, ts []stage.Transition) {
	r := b.run.engine.rocket
	t := ev.Time

	for _, tr := range ts {
		if tr.Motor < 0 {
			continue
		}
		c := r.Motor(tr.Motor)
		switch tr.To {
		case stage.Ignited.String():
			if ev.Type != flight.Ignition {
				b.agenda.push(scheduled{Time: b.machine.ArmedAt(tr.Motor) + c.Delay, Type: flight.Ignition, Source: c.ID})
			}
		case stage.Burning.String():
			b.agenda.push(scheduled{Time: t + c.Model.BurnTime(), Type: flight.Burnout, Source: c.ID})
		case stage.BurnedOut.String():
			s := r.Stage(c.Stage)
			if s.Separation.Trigger == rocket.SeparateAtBurnout && b.machine.StageBurnedOut(c.Stage) {
				b.agenda.push(scheduled{Time: t + s.Separation.Delay, Type: flight.StageSeparation, Source: s.Name})
			}
		}
	}

	switch ev.Type {
	case flight.Launch:
		b.scheduleStages(rocket.SeparateAtTime, t)
		b.scheduleDevices(t, func(d rocket.RecoveryDevice) bool { return d.Trigger == rocket.DeployAtTime })
	case flight.Liftoff:
		if b.cfg().Environment.RailLength == 0 {
			b.agenda.push(scheduled{Time: t, Type: flight.LaunchRodClearance})
		}
	case flight.Apogee:
		b.scheduleStages(rocket.SeparateAtApogee, t)
		alt := ev.State.Altitude()
		b.scheduleDevices(t, func(d rocket.RecoveryDevice) bool {
			return d.Trigger == rocket.DeployAtApogee ||
				(d.Trigger == rocket.DeployAtAltitude && alt <= d.Altitude)
		})
	}
}

func (b *branchRun) scheduleStages(trigger rocket.SeparationTrigger, t float64) {
	for _, si := range b.machine.AttachedStages() {
		s := b.run.engine.rocket.Stage(si)
		if si > b.machine.Top() && s.Separation.Trigger == trigger {
			b.agenda.push(scheduled{Time: t + s.Separation.Delay, Type: flight.StageSeparation, Source: s.Name})
		}
	}
}

// scheduleDevices arms every matching device on an attached stage. Devices
// deploy Delay seconds after their trigger.
func (b *branchRun) scheduleDevices(t float64, match func(rocket.RecoveryDevice) bool) {
	for _, si := range b.machine.AttachedStages() {
		s := b.run.engine.rocket.Stage(si)
		for _, d := range s.Recovery {
			key := stage.DeviceKey(s.Name, d.Name)
			if b.armed[key] || !match(d) {
				continue
			}
			b.armed[key] = true
			b.agenda.push(scheduled{Time: t + d.Delay, Type: flight.Deployment, Source: key})
		}
	}
}

// end closes the branch with SIMULATION_END.
func (b *branchRun) end(truncated bool) error {
	if truncated {
		b.branch.MarkTruncated()
	}
	ev := flight.Event{Type: flight.SimulationEnd, Time: b.status.State.Time, State: b.status.State}
	if _, err := b.run.engine.chain.onEvent(b.status, ev); err != nil {
		return err
	}
	if err := b.record(ev); err != nil {
		return err
	}
	b.branch.Terminate()
	b.done = true
	b.run.log.Debug().Str("branch", b.branch.Name()).Float64("t", ev.Time).Bool("truncated", truncated).Msg("branch finished")
	return nil
}

// exception records a fatal error on the branch.
func (b *branchRun) exception(err error) {
	ev := flight.Event{
		Type:   flight.Exception,
		Time:   b.status.State.Time,
		State:  b.status.State,
		Source: err.Error(),
	}
	if addErr := b.branch.AddEvent(ev); addErr != nil {
		b.run.log.Error().Err(addErr).Msg("cannot record exception")
	}
	b.branch.MarkPartial()
	b.done = true
}

// fork splits off the stages that fall away at a separation. The child
// branch shares everything recorded so far and records the separation
// itself.
func (r *run) fork(parent *branchRun, ev flight.Event) error {
	idx := r.engine.rocket.StageIndex(ev.Source)
	m, err := parent.machine.Fork(idx)
	if err != nil {
		return err
	}
	b, err := r.arena.Fork(parent.branch.ID(), ev.Source, ev.Time)
	if err != nil {
		return err
	}

	st := newStatus(parent.cfg(), b.ID(), b.Name(), m)
	st.State = parent.status.State
	st.Step = parent.status.Step
	st.Extra = cloneExtra(parent.status.Extra)

	child := &branchRun{
		run:     r,
		branch:  b,
		machine: m,
		vehicle: &vehicle{rocket: r.engine.rocket, machine: m},
		status:  st,
		stepper: integrators.NewStepper(r.engine.integ, parent.cfg().StepControl()),
		agenda:  parent.agenda.clone(),
		dt:      parent.dt,
		armed:   maps.Clone(parent.armed),
	}
	child.sys = &flightSystem{br: child}
	if err := child.refresh(); err != nil {
		return fmt.Errorf("detached stage %q: %w", ev.Source, err)
	}
	r.branches = append(r.branches, child)

	if err := child.record(ev); err != nil {
		return err
	}
	r.log.Debug().Str("branch", b.Name()).Float64("t", ev.Time).Msg("branch forked")
	if !parent.cfg().SimulateDetached {
		return child.end(false)
	}
	return nil
}
