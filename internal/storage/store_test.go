package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/flightsim/internal/metrics"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/rocket"
	"github.com/san-kum/flightsim/internal/sim"
)

func testResult(t *testing.T) *sim.Result {
	t.Helper()
	m, err := motor.ConstantThrust("C30", 30, 2, 0, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	r := rocket.New("test", []rocket.Stage{
		{Name: "body", DryMass: 0.9, Diameter: 0.04, Length: 0.6, DragCoefficient: 0.5},
	}, []motor.Configuration{{ID: "m", Model: m}})

	e := sim.New(r, sim.DefaultConfig())
	e.AddListener(metrics.Listener(metrics.Standard()...))
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res := testResult(t)
	runID, err := st.Save(RunInfo{
		Rocket:     "test",
		Integrator: "rk45",
		Seed:       42,
		Config:     sim.DefaultConfig(),
		Outcome:    "completed",
	}, res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Rocket != "test" {
		t.Errorf("expected rocket 'test', got '%s'", meta.Rocket)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Config != sim.DefaultConfig() {
		t.Errorf("config did not round-trip: %+v", meta.Config)
	}
	if len(meta.Branches) != len(res.Branches) {
		t.Fatalf("expected %d branches, got %d", len(res.Branches), len(meta.Branches))
	}

	main, _ := meta.Main()
	want := res.Main().Summary()
	if main.Summary != want {
		t.Errorf("summary = %+v, want %+v", main.Summary, want)
	}
	if main.Metrics["max_altitude"] <= 0 {
		t.Errorf("expected max_altitude metric, got %v", main.Metrics)
	}
	if len(main.Events) != res.Main().NumEvents() {
		t.Errorf("expected %d events, got %d", res.Main().NumEvents(), len(main.Events))
	}
	if main.Events[0].Type != "LAUNCH" {
		t.Errorf("first event = %s", main.Events[0].Type)
	}

	samples, err := st.LoadBranch(runID, 0)
	if err != nil {
		t.Fatalf("load branch failed: %v", err)
	}
	if len(samples) != res.Main().Len() {
		t.Fatalf("expected %d samples, got %d", res.Main().Len(), len(samples))
	}
	for i, s := range samples {
		x := res.Main().Sample(i)
		if s != fromState(x) {
			t.Fatalf("sample %d = %+v, want %+v", i, s, fromState(x))
		}
	}

	if _, err := st.LoadBranch(runID, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing branch, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, runID, "branch_0.csv")); err != nil {
		t.Errorf("branch file missing: %v", err)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	res := testResult(t)
	for _, id := range []string{"aaaa-1", "aaaa-2", "bbbb-1"} {
		if _, err := st.Save(RunInfo{ID: id, Rocket: "test"}, res); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	// stray files and directories are skipped
	if err := os.Mkdir(filepath.Join(tmpDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 runs, got %d", len(runs))
	}

	if id, err := st.Find("bb"); err != nil || id != "bbbb-1" {
		t.Errorf("Find(bb) = %q, %v", id, err)
	}
	if _, err := st.Find("aaaa"); err == nil {
		t.Error("expected ambiguous prefix error")
	}
	if _, err := st.Find("zz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("List on missing dir = %v, %v", runs, err)
	}
	if _, err := st.Load("x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	res := testResult(t)
	runID, err := st.Save(RunInfo{Rocket: "test", Err: errors.New("boom")}, res)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.ID != runID || data.Error != "boom" {
		t.Errorf("metadata = %+v", data.RunMetadata)
	}
	if len(data.Branches) != 1 {
		t.Fatalf("expected 1 branch, got %d", len(data.Branches))
	}
	if len(data.Branches[0].Samples) != res.Main().Len() {
		t.Errorf("expected %d samples, got %d", res.Main().Len(), len(data.Branches[0].Samples))
	}
}

func TestDescribeWritesNothing(t *testing.T) {
	res := testResult(t)
	meta := Describe(RunInfo{ID: "x", Rocket: "test", Outcome: "completed"}, res)

	if meta.ID != "x" || meta.Steps != res.Steps {
		t.Errorf("meta = %+v", meta)
	}
	if len(meta.Branches) != 1 || meta.Branches[0].File != "branch_0.csv" {
		t.Errorf("branches = %+v", meta.Branches)
	}
	if meta.Branches[0].Summary.Apogee <= 0 {
		t.Error("expected a positive apogee")
	}
}
