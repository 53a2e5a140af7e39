// Package sim runs a rocket flight: it integrates the equations of motion,
// detects flight events, drives the stage machine and records every branch.
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/rs/zerolog"

	"github.com/san-kum/flightsim/internal/dynamo"
	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/integrators"
	"github.com/san-kum/flightsim/internal/rocket"
)

type Engine struct {
	rocket *rocket.Rocket
	cfg    Config
	integ  dynamo.Integrator
	forces ForceModel
	chain  Chain
	log    zerolog.Logger
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithIntegrator(i dynamo.Integrator) Option {
	return func(e *Engine) { e.integ = i }
}

func WithForceModel(f ForceModel) Option {
	return func(e *Engine) { e.forces = f }
}

// New prepares an engine for r. The rocket is never modified.
func New(r *rocket.Rocket, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		rocket: r,
		cfg:    cfg,
		integ:  integrators.NewRK45(),
		forces: StandardForces{},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddListener registers l. Listeners must be added before Run.
func (e *Engine) AddListener(l Listener) { e.chain.Add(l) }

func (e *Engine) Config() Config         { return e.cfg }
func (e *Engine) Rocket() *rocket.Rocket { return e.rocket }

// Result is the outcome of a run. Branches are frozen and always present,
// even when Run returns an error.
type Result struct {
	Branches  []*flight.Branch
	Extra     []*orderedmap.OrderedMap[string, any]
	Steps     int
	Truncated bool
	Stopped   bool
	Cancelled bool
}

// Main returns the branch that started at launch.
func (r *Result) Main() *flight.Branch {
	if len(r.Branches) == 0 {
		return nil
	}
	return r.Branches[0]
}

func (r *Result) Branch(name string) *flight.Branch {
	for _, b := range r.Branches {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// Float returns a numeric extension value left by a listener on a branch.
func (r *Result) Float(id flight.BranchID, key string) (float64, bool) {
	if id < 0 || int(id) >= len(r.Extra) {
		return 0, false
	}
	v, ok := r.Extra[id].Get(key)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (e *Engine) validate() error {
	if e.rocket == nil {
		return errors.New("no rocket")
	}
	return errors.Join(e.cfg.Validate(), e.rocket.Validate())
}

// Run simulates the flight until every branch has landed, the time limit is
// reached, a listener stops the run or ctx is cancelled. Cancellation yields
// an error wrapping ErrCancelled; the partial result is still returned.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	arena := flight.NewArena()
	name := "rocket"
	if e.rocket != nil {
		name = e.rocket.Name()
	}
	log := e.log.With().Str("rocket", name).Logger()

	if err := e.validate(); err != nil {
		arena.NewBranch(name).MarkPartial()
		arena.Freeze()
		log.Error().Err(err).Msg("configuration rejected")
		return &Result{Branches: arena.Branches()}, &ConfigError{Err: err}
	}

	r := &run{engine: e, arena: arena, log: log}
	err := r.start()
	if err != nil {
		r.branches[0].exception(err)
		err = &BranchError{Branch: name, Err: err}
	} else {
		err = r.loop(ctx)
	}
	res := r.result()

	switch {
	case err == nil:
		log.Info().Int("steps", res.Steps).Int("branches", len(res.Branches)).
			Bool("truncated", res.Truncated).Bool("stopped", res.Stopped).Msg("run finished")
	case errors.Is(err, ErrCancelled):
		log.Info().Err(err).Int("steps", res.Steps).Msg("run cancelled")
	default:
		log.Error().Err(err).Int("steps", res.Steps).Msg("run failed")
	}
	return res, err
}

// run is the state of one Engine.Run call.
type run struct {
	engine   *Engine
	arena    *flight.Arena
	branches []*branchRun
	log      zerolog.Logger
	steps    int
	stopped  bool
	cancel   bool
}

func (r *run) loop(ctx context.Context) error {
	for {
		br := r.next()
		if br == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			r.abort()
			r.cancel = true
			return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		default:
		}

		err := br.step()
		if err == nil {
			continue
		}

		var ce *cancelError
		switch {
		case errors.Is(err, ErrStop):
			r.log.Info().Str("branch", br.branch.Name()).Float64("t", br.status.State.Time).Msg("stop requested")
			return r.stop()
		case errors.As(err, &ce):
			r.abort()
			r.cancel = true
			return err
		default:
			br.exception(err)
			r.abort()
			return &BranchError{Branch: br.branch.Name(), Err: err}
		}
	}
}

// next picks the live branch whose clock is furthest behind.
func (r *run) next() *branchRun {
	var best *branchRun
	for _, b := range r.branches {
		if b.done {
			continue
		}
		if best == nil || b.status.State.Time < best.status.State.Time {
			best = b
		}
	}
	return best
}

// stop ends every live branch cleanly.
func (r *run) stop() error {
	r.stopped = true
	for _, b := range r.branches {
		if b.done {
			continue
		}
		if err := b.end(false); err != nil {
			b.exception(err)
			r.abort()
			return &BranchError{Branch: b.branch.Name(), Err: err}
		}
	}
	return nil
}

// abort flags every unfinished branch as partial.
func (r *run) abort() {
	for _, b := range r.branches {
		if !b.done {
			b.branch.MarkPartial()
			b.done = true
		}
	}
}

func (r *run) result() *Result {
	r.arena.Freeze()
	res := &Result{
		Branches:  r.arena.Branches(),
		Steps:     r.steps,
		Stopped:   r.stopped,
		Cancelled: r.cancel,
	}
	for _, b := range r.branches {
		res.Extra = append(res.Extra, cloneExtra(b.status.Extra))
		if b.branch.Truncated() {
			res.Truncated = true
		}
	}
	return res
}
