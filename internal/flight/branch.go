package flight

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"
)

var (
	ErrFrozen    = errors.New("flight: branch is frozen")
	ErrTimeOrder = errors.New("flight: sample time does not advance")
)

// BranchID indexes a branch inside its Arena.
type BranchID int

// NoParent marks a root branch.
const NoParent BranchID = -1

// Branch is an append-only record of one trajectory. Branches forked at a
// stage separation share the samples recorded before the fork.
type Branch struct {
	id       BranchID
	name     string
	parent   BranchID
	forkTime float64

	samples []RigidBodyState
	events  []Event

	truncated  bool
	partial    bool
	terminated bool
	frozen     bool
}

func (b *Branch) ID() BranchID      { return b.id }
func (b *Branch) Name() string      { return b.name }
func (b *Branch) Parent() BranchID  { return b.parent }
func (b *Branch) ForkTime() float64 { return b.forkTime }
func (b *Branch) Len() int          { return len(b.samples) }
func (b *Branch) Truncated() bool   { return b.truncated }
func (b *Branch) Partial() bool     { return b.partial }
func (b *Branch) Terminated() bool  { return b.terminated }
func (b *Branch) Frozen() bool      { return b.frozen }
func (b *Branch) NumEvents() int    { return len(b.events) }

func (b *Branch) Sample(i int) RigidBodyState { return b.samples[i] }

// Append records a sample. Sample times must be strictly increasing.
func (b *Branch) Append(s RigidBodyState) error {
	if b.frozen {
		return ErrFrozen
	}
	if n := len(b.samples); n > 0 && !(s.Time > b.samples[n-1].Time) {
		return fmt.Errorf("%w: %.9g after %.9g in branch %q", ErrTimeOrder, s.Time, b.samples[n-1].Time, b.name)
	}
	b.samples = append(b.samples, s)
	return nil
}

// AddEvent records an event. Events may share a time but never go back.
func (b *Branch) AddEvent(e Event) error {
	if b.frozen {
		return ErrFrozen
	}
	if n := len(b.events); n > 0 && e.Time < b.events[n-1].Time {
		return fmt.Errorf("%w: event %s before %s in branch %q", ErrTimeOrder, e, b.events[n-1], b.name)
	}
	b.events = append(b.events, e)
	return nil
}

// Last returns the most recent sample.
func (b *Branch) Last() (RigidBodyState, bool) {
	if len(b.samples) == 0 {
		return RigidBodyState{}, false
	}
	return b.samples[len(b.samples)-1], true
}

func (b *Branch) Samples() []RigidBodyState {
	out := make([]RigidBodyState, len(b.samples))
	copy(out, b.samples)
	return out
}

func (b *Branch) Events() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// FirstEvent returns the earliest event of type t.
func (b *Branch) FirstEvent(t EventType) (Event, bool) {
	for _, e := range b.events {
		if e.Type == t {
			return e, true
		}
	}
	return Event{}, false
}

func (b *Branch) HasEvent(t EventType) bool {
	_, ok := b.FirstEvent(t)
	return ok
}

func (b *Branch) MarkTruncated() { b.truncated = true }
func (b *Branch) MarkPartial()   { b.partial = true }
func (b *Branch) Terminate()     { b.terminated = true }

// Fingerprint hashes every sample and event. Two branches with the same
// fingerprint recorded bit-identical trajectories.
func (b *Branch) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [8]byte
	putF := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	putState := func(s RigidBodyState) {
		putF(s.Time)
		for _, v := range s.Pack() {
			putF(v)
		}
		for _, v := range s.Acceleration {
			putF(v)
		}
		putF(s.mass)
		putF(float64(s.Stage))
	}

	_, _ = h.WriteString(b.name)
	for _, s := range b.samples {
		putState(s)
	}
	for _, e := range b.events {
		putF(float64(e.Type))
		_, _ = h.WriteString(e.Source)
		putState(e.State)
	}
	return h.Sum64()
}

func (b *Branch) String() string {
	return fmt.Sprintf("branch %d %q (%d samples, %d events)", b.id, b.name, len(b.samples), len(b.events))
}
