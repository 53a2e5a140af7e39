// Package storage keeps finished runs on disk: one directory per run with a
// metadata.json and one branch_<n>.csv per flight branch.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/metrics"
	"github.com/san-kum/flightsim/internal/sim"
)

var ErrNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// RunInfo describes how a run was made. An empty ID gets a fresh UUID.
type RunInfo struct {
	ID         string
	Rocket     string
	Integrator string
	Seed       int64
	Config     sim.Config
	Outcome    string
	Err        error
}

type EventRecord struct {
	Type     string  `json:"type"`
	Time     float64 `json:"time"`
	Source   string  `json:"source,omitempty"`
	Altitude float64 `json:"altitude"`
}

type BranchMeta struct {
	ID       int                `json:"id"`
	Name     string             `json:"name"`
	Parent   int                `json:"parent"`
	ForkTime float64            `json:"fork_time"`
	File     string             `json:"file"`
	Summary  flight.Summary     `json:"summary"`
	Events   []EventRecord      `json:"events"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

type RunMetadata struct {
	ID         string       `json:"id"`
	Rocket     string       `json:"rocket"`
	Timestamp  time.Time    `json:"timestamp"`
	Seed       int64        `json:"seed"`
	Integrator string       `json:"integrator"`
	Outcome    string       `json:"outcome"`
	Error      string       `json:"error,omitempty"`
	Steps      int          `json:"steps"`
	Truncated  bool         `json:"truncated"`
	Stopped    bool         `json:"stopped"`
	Cancelled  bool         `json:"cancelled"`
	Config     sim.Config   `json:"config"`
	Branches   []BranchMeta `json:"branches"`
}

// Main returns the metadata of the branch that started at launch.
func (m *RunMetadata) Main() (BranchMeta, bool) {
	if len(m.Branches) == 0 {
		return BranchMeta{}, false
	}
	return m.Branches[0], true
}

func branchFile(id flight.BranchID) string {
	return fmt.Sprintf("branch_%d.csv", id)
}

// Describe builds the metadata of res without writing anything. Timestamp
// is now.
func Describe(info RunInfo, res *sim.Result) RunMetadata {
	meta := RunMetadata{
		ID:         info.ID,
		Rocket:     info.Rocket,
		Timestamp:  time.Now().UTC(),
		Seed:       info.Seed,
		Integrator: info.Integrator,
		Outcome:    info.Outcome,
		Steps:      res.Steps,
		Truncated:  res.Truncated,
		Stopped:    res.Stopped,
		Cancelled:  res.Cancelled,
		Config:     info.Config,
	}
	if info.Err != nil {
		meta.Error = info.Err.Error()
	}

	for i, b := range res.Branches {
		bm := BranchMeta{
			ID:       int(b.ID()),
			Name:     b.Name(),
			Parent:   int(b.Parent()),
			ForkTime: b.ForkTime(),
			File:     branchFile(b.ID()),
			Summary:  b.Summary(),
		}
		for _, e := range b.Events() {
			bm.Events = append(bm.Events, EventRecord{
				Type:     e.Type.String(),
				Time:     e.Time,
				Source:   e.Source,
				Altitude: e.State.Altitude(),
			})
		}
		if i < len(res.Extra) {
			vals := metrics.Values(res.Extra[i])
			if vals.Len() > 0 {
				bm.Metrics = make(map[string]float64, vals.Len())
				for el := vals.Front(); el != nil; el = el.Next() {
					if math.IsNaN(el.Value) || math.IsInf(el.Value, 0) {
						continue
					}
					bm.Metrics[el.Key] = el.Value
				}
			}
		}
		meta.Branches = append(meta.Branches, bm)
	}
	return meta
}

// Save writes res under a new run directory and returns the run id.
func (s *Store) Save(info RunInfo, res *sim.Result) (string, error) {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	runDir := filepath.Join(s.baseDir, info.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := Describe(info, res)
	for i, b := range res.Branches {
		if err := writeBranch(filepath.Join(runDir, meta.Branches[i].File), b.Samples()); err != nil {
			return "", fmt.Errorf("branch %q: %w", b.Name(), err)
		}
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	return info.ID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// Find resolves a unique prefix of a run id.
func (s *Store) Find(prefix string) (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	var match []string
	for _, r := range runs {
		if r.ID == prefix {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, prefix) {
			match = append(match, r.ID)
		}
	}
	switch len(match) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return match[0], nil
	}
	return "", fmt.Errorf("storage: prefix %q matches %d runs", prefix, len(match))
}

// LoadBranch reads the samples of branch n of a run.
func (s *Store) LoadBranch(runID string, n int) ([]Sample, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	if n < 0 || n >= len(meta.Branches) {
		return nil, fmt.Errorf("%w: run %s has no branch %d", ErrNotFound, runID, n)
	}
	return readBranch(filepath.Join(s.baseDir, runID, meta.Branches[n].File))
}

func writeBranch(path string, samples []flight.RigidBodyState) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, x := range samples {
		if err := w.Write(fromState(x).record()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readBranch(path string) ([]Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(header)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		s, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), i+2, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
