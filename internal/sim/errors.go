package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks a configuration rejected before any stepping.
	ErrConfig = errors.New("sim: invalid configuration")

	// ErrStop is returned by a listener hook to end the run cleanly.
	ErrStop = errors.New("sim: stop requested")

	// ErrCancelled reports a run ended by its context or by a
	// cancellation-only listener. It is not a computational failure.
	ErrCancelled = errors.New("sim: run cancelled")

	// ErrListenerPanic is wrapped by the ListenerError of a hook that panicked.
	ErrListenerPanic = errors.New("sim: listener panicked")
)

// ConfigError wraps every problem found while validating a run.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %v", ErrConfig, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfig, e.Err}
}

// ListenerError is a fatal error raised by a listener hook.
type ListenerError struct {
	Listener string
	Hook     string
	Time     float64
	Err      error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %q %s at t=%.4f: %v", e.Listener, e.Hook, e.Time, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}

// BranchError names the branch a fatal error occurred on.
type BranchError struct {
	Branch string
	Err    error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("error in branch %q: %v", e.Branch, e.Err)
}

func (e *BranchError) Unwrap() error {
	return e.Err
}
