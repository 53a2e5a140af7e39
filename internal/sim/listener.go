package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/flightsim/internal/flight"
)

// Listener observes or adjusts a run. Every hook is optional.
//
// OnEvent returns false to veto an event; a vetoed event is neither recorded
// nor applied. Forces runs for every derivative evaluation, so it must be a
// pure function of its arguments and the status extension store. Returning
// ErrStop from any hook ends the run cleanly. Any other error is fatal unless
// CancellationOnly is set, in which case the run ends as cancelled.
type Listener struct {
	Name             string
	CancellationOnly bool

	PreStep  func(st *Status) error
	PostStep func(st *Status) error
	OnEvent  func(st *Status, e flight.Event) (bool, error)
	Forces   func(st *Status, x flight.RigidBodyState, f *Forces) error
}

// Chain invokes listeners in registration order.
type Chain struct {
	listeners []Listener
}

func (c *Chain) Add(l Listener) {
	c.listeners = append(c.listeners, l)
}

func (c *Chain) preStep(st *Status) error {
	for _, l := range c.listeners {
		if l.PreStep == nil {
			continue
		}
		if err := c.call(l, "pre-step", st, func() error { return l.PreStep(st) }); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) postStep(st *Status) error {
	for _, l := range c.listeners {
		if l.PostStep == nil {
			continue
		}
		if err := c.call(l, "post-step", st, func() error { return l.PostStep(st) }); err != nil {
			return err
		}
	}
	return nil
}

// onEvent reports whether every listener accepted e. Listeners after the
// first veto are not called.
func (c *Chain) onEvent(st *Status, e flight.Event) (bool, error) {
	for _, l := range c.listeners {
		if l.OnEvent == nil {
			continue
		}
		var ok bool
		err := c.call(l, "on-event", st, func() (err error) {
			ok, err = l.OnEvent(st, e)
			return err
		})
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c *Chain) forces(st *Status, x flight.RigidBodyState, f *Forces) error {
	for _, l := range c.listeners {
		if l.Forces == nil {
			continue
		}
		if err := c.call(l, "forces", st, func() error { return l.Forces(st, x, f) }); err != nil {
			return err
		}
	}
	return nil
}

// call runs one hook. A panicking hook is a fatal ListenerError so the run
// still ends with its partial branches.
func (c *Chain) call(l Listener, hook string, st *Status, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ListenerError{Listener: l.Name, Hook: hook, Time: st.State.Time,
				Err: fmt.Errorf("%w: %v", ErrListenerPanic, p)}
		}
	}()
	if err := fn(); err != nil {
		return c.wrap(l, hook, st, err)
	}
	return nil
}

func (c *Chain) wrap(l Listener, hook string, st *Status, err error) error {
	switch {
	case errors.Is(err, ErrStop):
		return err
	case l.CancellationOnly:
		return &cancelError{listener: l.Name, err: err}
	default:
		return &ListenerError{Listener: l.Name, Hook: hook, Time: st.State.Time, Err: err}
	}
}

type cancelError struct {
	listener string
	err      error
}

func (e *cancelError) Error() string {
	return "cancelled by listener " + e.listener + ": " + e.err.Error()
}

func (e *cancelError) Unwrap() []error {
	return []error{ErrCancelled, e.err}
}
