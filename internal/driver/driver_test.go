package driver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/logging"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/sim"
)

func testRocket(t *testing.T) *rocket.Rocket {
	t.Helper()
	m, err := motor.ConstantThrust("C30", 30, 2, 0, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	return rocket.New("test", []rocket.Stage{
		{Name: "body", DryMass: 0.9, Diameter: 0.04, Length: 0.6, DragCoefficient: 0.5},
	}, []motor.Configuration{{ID: "m", Model: m}})
}

// frozen is a clock that never moves, so only event snapshots are published.
func frozen() time.Time { return time.Unix(0, 0) }

func newDriver(t *testing.T, opts ...Option) *Driver {
	t.Helper()
	pool := NewPool(2, logging.Nop())
	t.Cleanup(pool.Close)
	d, err := New(pool, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func wait(t *testing.T, h *Handle) Outcome {
	t.Helper()
	select {
	case <-h.Done():
		return h.Wait()
	case <-time.After(10 * time.Second):
		t.Fatal("job did not finish")
	}
	return Outcome{}
}

func TestCompletedRun(t *testing.T) {
	d := newDriver(t, WithClock(frozen), WithProgressBuffer(64))
	h, err := d.Submit(context.Background(), Job{Rocket: testRocket(t), Config: sim.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}

	var triggers []string
	var snaps []Snapshot
	for s := range h.Progress() {
		triggers = append(triggers, s.Trigger)
		snaps = append(snaps, s)
	}
	out := wait(t, h)

	if out.Status != Completed || out.Err != nil {
		t.Fatalf("outcome %s: %v", out.Status, out.Err)
	}
	if out.RunID != h.ID() || len(h.ID()) != 36 {
		t.Errorf("run id %q, handle %q", out.RunID, h.ID())
	}
	want := []string{"LAUNCH", "APOGEE", "SIMULATION_END"}
	if strings.Join(triggers, ",") != strings.Join(want, ",") {
		t.Fatalf("triggers = %v, want %v", triggers, want)
	}

	apogee, _ := out.Result.Main().FirstEvent(flight.Apogee)
	final := snaps[len(snaps)-1]
	if final.MaxAltitude < apogee.State.Altitude()-1e-3 {
		t.Errorf("max altitude %f below apogee %f", final.MaxAltitude, apogee.State.Altitude())
	}
	if final.MaxVerticalVelocity <= 0 {
		t.Errorf("max vertical velocity %f", final.MaxVerticalVelocity)
	}
	if snaps[0].Status.Machine == snaps[1].Status.Machine {
		t.Error("snapshots share the stage machine")
	}
	if snaps[0].Status.Machine.Launched() {
		t.Error("LAUNCH snapshot should precede the launch transition")
	}
}

func TestProgressDropsOldest(t *testing.T) {
	d := newDriver(t, WithClock(frozen), WithProgressBuffer(1))
	h, err := d.Submit(context.Background(), Job{Rocket: testRocket(t), Config: sim.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	wait(t, h)

	var got []string
	for s := range h.Progress() {
		got = append(got, s.Trigger)
	}
	if len(got) != 1 || got[0] != "SIMULATION_END" {
		t.Errorf("progress = %v, want only the final snapshot", got)
	}
}

func TestStepCadence(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(50 * time.Millisecond)
		return now
	}
	d := newDriver(t, WithClock(clock), WithProgressBuffer(4096))
	h, err := d.Submit(context.Background(), Job{Rocket: testRocket(t), Config: sim.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	out := wait(t, h)

	steps := 0
	for s := range h.Progress() {
		if s.Trigger == "step" {
			steps++
		}
	}
	if steps == 0 || steps >= out.Result.Steps {
		t.Errorf("%d step snapshots for %d steps", steps, out.Result.Steps)
	}
}

func TestCancel(t *testing.T) {
	d := newDriver(t)
	started := make(chan struct{})
	slow := sim.Listener{
		Name: "slow",
		PreStep: func(st *sim.Status) error {
			if st.Step == 1 {
				close(started)
			}
			time.Sleep(time.Millisecond)
			return nil
		},
	}
	h, err := d.Submit(context.Background(), Job{
		Rocket:    testRocket(t),
		Config:    sim.DefaultConfig(),
		Listeners: []sim.Listener{slow},
	})
	if err != nil {
		t.Fatal(err)
	}

	<-started
	h.Cancel()
	h.Cancel()
	out := wait(t, h)

	if out.Status != Cancelled {
		t.Fatalf("status %s: %v", out.Status, out.Err)
	}
	if !errors.Is(out.Err, sim.ErrCancelled) {
		t.Errorf("error %v does not wrap ErrCancelled", out.Err)
	}
	if !out.Result.Cancelled || !out.Result.Main().Partial() {
		t.Error("cancelled run should keep a partial branch")
	}
}

func TestCancelledContext(t *testing.T) {
	d := newDriver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := d.Submit(ctx, Job{Rocket: testRocket(t), Config: sim.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if out := wait(t, h); out.Status != Cancelled {
		t.Errorf("status %s, want cancelled", out.Status)
	}
}

func TestFailedRuns(t *testing.T) {
	d := newDriver(t)

	empty := rocket.New("empty", []rocket.Stage{{Name: "body", DryMass: 1}}, nil)
	h, err := d.Submit(context.Background(), Job{Rocket: empty, Config: sim.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	out := wait(t, h)
	if out.Status != Failed || !errors.Is(out.Err, sim.ErrConfig) {
		t.Errorf("config error: %s %v", out.Status, out.Err)
	}
	if out.Result.Main() == nil || out.Result.Main().Len() != 0 {
		t.Error("config error should leave one empty branch")
	}

	var seen map[int]bool
	boom := sim.Listener{Name: "boom", PostStep: func(st *sim.Status) error {
		if st.Step == 50 {
			seen[st.Step] = true
		}
		return nil
	}}
	h, err = d.Submit(context.Background(), Job{
		Rocket:    testRocket(t),
		Config:    sim.DefaultConfig(),
		Listeners: []sim.Listener{boom},
	})
	if err != nil {
		t.Fatal(err)
	}
	out = wait(t, h)
	var le *sim.ListenerError
	if out.Status != Failed || !errors.As(out.Err, &le) || le.Listener != "boom" || !errors.Is(out.Err, sim.ErrListenerPanic) {
		t.Fatalf("panicking listener: %s %v", out.Status, out.Err)
	}
	main := out.Result.Main()
	if main == nil || main.Len() == 0 || !main.HasEvent(flight.Exception) {
		t.Error("a panicking listener must keep the partial branch")
	}

	h, err = d.Submit(context.Background(), Job{Rocket: testRocket(t), Config: sim.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if out := wait(t, h); out.Status != Completed {
		t.Errorf("pool unusable after a failed run: %s %v", out.Status, out.Err)
	}
}

func TestSeedOverride(t *testing.T) {
	d := newDriver(t)
	var seeds []int64
	probe := sim.Listener{Name: "seed", PreStep: func(st *sim.Status) error {
		seeds = append(seeds, st.Config.Seed)
		return sim.ErrStop
	}}
	h, err := d.Submit(context.Background(), Job{
		Rocket:    testRocket(t),
		Config:    sim.DefaultConfig(),
		Seed:      42,
		Listeners: []sim.Listener{probe},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out := wait(t, h); out.Status != Completed {
		t.Fatalf("status %s: %v", out.Status, out.Err)
	}
	if len(seeds) != 1 || seeds[0] != 42 {
		t.Errorf("seeds = %v", seeds)
	}
}

func TestPoolClose(t *testing.T) {
	p := NewPool(0, logging.Nop())
	if p.Workers() < 1 {
		t.Fatalf("workers = %d", p.Workers())
	}
	done := make(chan struct{})
	if err := p.Submit(func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	p.Close()
	p.Close()
	select {
	case <-done:
	default:
		t.Error("queued work did not finish before Close returned")
	}
	if err := p.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}

	d, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Submit(context.Background(), Job{Rocket: testRocket(t), Config: sim.DefaultConfig()}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("submit on closed pool: %v", err)
	}
}
