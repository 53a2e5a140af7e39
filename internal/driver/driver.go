// Package driver runs flight simulations on a worker pool and reports their
// progress and outcome through handles.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/sim"
)

const (
	DefaultProgressInterval = 200 * time.Millisecond
	DefaultProgressBuffer   = 16
)

type Status int

const (
	Completed Status = iota
	Cancelled
	Failed
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Job is one simulation to run. Seed, when non-zero, replaces Config.Seed.
type Job struct {
	Name      string
	Rocket    *rocket.Rocket
	Config    sim.Config
	Seed      int64
	Listeners []sim.Listener
	Options   []sim.Option
}

// Outcome is the final state of a job. Result is never nil; on Cancelled and
// Failed it holds the partial branches.
type Outcome struct {
	RunID   string
	Status  Status
	Result  *sim.Result
	Err     error
	Elapsed time.Duration
}

// Snapshot is a deep copy of a branch status published while a job runs.
// MaxAltitude and MaxVerticalVelocity track the sustainer branch.
type Snapshot struct {
	RunID               string
	Status              *sim.Status
	Trigger             string
	MaxAltitude         float64
	MaxVerticalVelocity float64
	Wall                time.Time
}

type Driver struct {
	pool     *Pool
	log      zerolog.Logger
	now      func() time.Time
	interval time.Duration
	buffer   int

	runs   metric.Int64Counter
	steps  metric.Int64Counter
	active metric.Int64UpDownCounter
}

type Option func(*Driver)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithClock replaces the wall clock used for the progress cadence.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func WithProgressInterval(iv time.Duration) Option {
	return func(d *Driver) { d.interval = iv }
}

// WithProgressBuffer sets the progress channel capacity, at least one.
func WithProgressBuffer(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.buffer = n
		}
	}
}

// New builds a driver that runs jobs on pool. Metrics go to the global OTel
// meter provider, which is a no-op unless one is installed.
func New(pool *Pool, opts ...Option) (*Driver, error) {
	d := &Driver{
		pool:     pool,
		log:      zerolog.Nop(),
		now:      time.Now,
		interval: DefaultProgressInterval,
		buffer:   DefaultProgressBuffer,
	}
	for _, opt := range opts {
		opt(d)
	}

	m := meter()
	var err error
	d.runs, err = m.Int64Counter(
		"flightsim.runs",
		metric.WithDescription("Simulation runs finished, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}
	d.steps, err = m.Int64Counter(
		"flightsim.steps",
		metric.WithDescription("Integration steps accepted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}
	d.active, err = m.Int64UpDownCounter(
		"flightsim.runs.active",
		metric.WithDescription("Simulation runs queued or running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active counter: %w", err)
	}
	return d, nil
}

// Submit queues job on the pool. The returned handle reports its progress
// and outcome; cancelling ctx cancels the job.
func (d *Driver) Submit(ctx context.Context, job Job) (*Handle, error) {
	if job.Rocket == nil {
		return nil, errors.New("driver: job has no rocket")
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:       uuid.NewString(),
		cancel:   cancel,
		progress: make(chan Snapshot, d.buffer),
		done:     make(chan struct{}),
	}

	d.active.Add(context.Background(), 1)
	err := d.pool.Submit(func() { d.execute(ctx, h, job) })
	if err != nil {
		d.active.Add(context.Background(), -1)
		cancel()
		return nil, err
	}
	return h, nil
}

// Workers is the number of runs the driver executes at once.
func (d *Driver) Workers() int { return d.pool.Workers() }

func (d *Driver) execute(ctx context.Context, h *Handle, job Job) {
	start := time.Now()
	log := d.log.With().Str("run", h.id).Str("rocket", job.Rocket.Name()).Logger()
	if job.Name != "" {
		log = log.With().Str("job", job.Name).Logger()
	}

	var out Outcome
	defer func() {
		if p := recover(); p != nil {
			d.pool.hub.Recover(p)
			log.Error().Str("panic", fmt.Sprint(p)).Msg("run panicked")
			out = Outcome{Status: Failed, Err: fmt.Errorf("driver: run panicked: %v", p)}
		}
		if out.Result == nil {
			out.Result = &sim.Result{}
		}
		out.RunID = h.id
		out.Elapsed = time.Since(start)
		d.finish(h, out, log)
	}()

	cfg := job.Config
	if job.Seed != 0 {
		cfg.Seed = job.Seed
	}
	opts := append([]sim.Option{sim.WithLogger(log)}, job.Options...)
	e := sim.New(job.Rocket, cfg, opts...)
	for _, l := range job.Listeners {
		e.AddListener(l)
	}
	e.AddListener(d.progress(h))

	log.Info().Int64("seed", cfg.Seed).Msg("run started")
	res, err := e.Run(ctx)
	out = Outcome{Result: res, Err: err, Status: classify(err)}
}

func classify(err error) Status {
	switch {
	case err == nil:
		return Completed
	case errors.Is(err, sim.ErrCancelled):
		return Cancelled
	default:
		return Failed
	}
}

func (d *Driver) finish(h *Handle, out Outcome, log zerolog.Logger) {
	ctx := context.Background()
	d.active.Add(ctx, -1)
	d.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", out.Status.String())))
	d.steps.Add(ctx, int64(out.Result.Steps))

	ev := log.Info()
	if out.Status == Failed {
		ev = log.Error().Err(out.Err)
	}
	ev.Stringer("outcome", out.Status).Int("steps", out.Result.Steps).
		Dur("elapsed", out.Elapsed).Msg("run finished")

	h.outcome = out
	h.cancel()
	close(h.progress)
	close(h.done)
}

// progress returns the listener that publishes snapshots of h's run.
func (d *Driver) progress(h *Handle) sim.Listener {
	var last time.Time
	publish := func(st *sim.Status, trigger string) {
		h.track(st)
		last = d.now()
		h.publish(Snapshot{
			RunID:               h.id,
			Status:              st.Snapshot(),
			Trigger:             trigger,
			MaxAltitude:         h.maxAlt,
			MaxVerticalVelocity: h.maxVz,
			Wall:                last,
		})
	}

	return sim.Listener{
		Name: "progress",
		PostStep: func(st *sim.Status) error {
			h.track(st)
			if d.now().Sub(last) >= d.interval {
				publish(st, "step")
			}
			return nil
		},
		OnEvent: func(st *sim.Status, e flight.Event) (bool, error) {
			switch e.Type {
			case flight.Launch, flight.Apogee, flight.SimulationEnd:
				publish(st, e.Type.String())
			}
			return true, nil
		},
	}
}

// Handle follows one submitted job.
type Handle struct {
	id       string
	cancel   context.CancelFunc
	progress chan Snapshot
	done     chan struct{}
	outcome  Outcome

	// written only by the run goroutine
	maxAlt float64
	maxVz  float64
}

func (h *Handle) ID() string { return h.id }

// Progress yields snapshots until the job finishes, then is closed. When the
// reader falls behind the oldest snapshots are dropped.
func (h *Handle) Progress() <-chan Snapshot { return h.progress }

// Cancel asks the job to stop. It is safe from any goroutine and may be
// called more than once.
func (h *Handle) Cancel() { h.cancel() }

func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job finishes.
func (h *Handle) Wait() Outcome {
	<-h.done
	return h.outcome
}

func (h *Handle) track(st *sim.Status) {
	if st.Branch != 0 {
		return
	}
	h.maxAlt = max(h.maxAlt, st.State.Altitude())
	h.maxVz = max(h.maxVz, st.State.VerticalVelocity())
}

// publish never blocks: the run goroutine is the only sender, so after
// dropping the oldest entry the send succeeds.
func (h *Handle) publish(s Snapshot) {
	for {
		select {
		case h.progress <- s:
			return
		default:
		}
		select {
		case <-h.progress:
		default:
		}
	}
}
