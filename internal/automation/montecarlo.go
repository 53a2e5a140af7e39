package automation

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/samber/lo"

	"github.com/san-kum/flightsim/internal/config"
	"github.com/san-kum/flightsim/internal/driver"
)

// MonteCarloConfig disperses Base over NumTrials flights. ThrustSigma and
// MassSigma are relative standard deviations; WindSigma is in m/s.
type MonteCarloConfig struct {
	Base        *config.File
	NumTrials   int
	Seed        int64
	ThrustSigma float64
	MassSigma   float64
	WindSigma   float64
}

// MonteCarloResult is one dispersed trial and the draws that produced it.
type MonteCarloResult struct {
	Trial
	ThrustScale float64
	MassScale   float64
	WindX       float64
	WindY       float64
}

// Disperse returns a copy of base perturbed with draws from rng, and the
// draws themselves.
func Disperse(base *config.File, cfg *MonteCarloConfig, rng *rand.Rand) (*config.File, MonteCarloResult) {
	f := base.Clone()
	d := MonteCarloResult{
		ThrustScale: math.Max(0.05, 1+rng.NormFloat64()*cfg.ThrustSigma),
		MassScale:   math.Max(0.05, 1+rng.NormFloat64()*cfg.MassSigma),
		WindX:       rng.NormFloat64() * cfg.WindSigma,
		WindY:       rng.NormFloat64() * cfg.WindSigma,
	}
	for i := range f.Motors {
		scale := f.Motors[i].Scale
		if scale == 0 {
			scale = 1
		}
		f.Motors[i].Scale = scale * d.ThrustScale
	}
	for i := range f.Stages {
		f.Stages[i].DryMass *= d.MassScale
	}
	f.Simulation.Environment.Wind[0] += d.WindX
	f.Simulation.Environment.Wind[1] += d.WindY
	return f, d
}

// RunMonteCarlo executes NumTrials dispersed flights. The same Seed always
// yields the same draws; zero picks one from the clock.
func (r *Runner) RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	files := make([]*config.File, cfg.NumTrials)
	seeds := make([]int64, cfg.NumTrials)
	draws := make([]MonteCarloResult, cfg.NumTrials)
	for i := range files {
		files[i], draws[i] = Disperse(cfg.Base, cfg, rng)
		seeds[i] = rng.Int63()
	}

	r.Log.Info().Int("trials", cfg.NumTrials).Int64("seed", seed).Msg("running monte carlo")
	trials, err := r.runAll(ctx, files, seeds)
	if err != nil {
		return nil, err
	}
	for i, t := range trials {
		draws[i].Trial = t
	}
	return draws, nil
}

// Stats summarises the completed trials of a Monte-Carlo batch.
type Stats struct {
	Completed  int
	Failed     int
	MeanApogee float64
	StdApogee  float64
	MinApogee  float64
	MaxApogee  float64
	MeanDrift  float64
	MaxDrift   float64
	MeanFlight float64
}

// MonteCarloStats computes summary statistics from Monte Carlo results.
func MonteCarloStats(results []MonteCarloResult) Stats {
	ok := lo.Filter(results, func(r MonteCarloResult, _ int) bool { return r.OK() })
	s := Stats{Completed: len(ok), Failed: len(results) - len(ok)}
	if len(ok) == 0 {
		return s
	}

	apogees := lo.Map(ok, func(r MonteCarloResult, _ int) float64 { return r.Summary.Apogee })
	drifts := lo.Map(ok, func(r MonteCarloResult, _ int) float64 { return r.Summary.Downrange() })
	n := float64(len(ok))

	s.MeanApogee = lo.Sum(apogees) / n
	s.MinApogee = lo.Min(apogees)
	s.MaxApogee = lo.Max(apogees)
	s.StdApogee = math.Sqrt(lo.SumBy(apogees, func(a float64) float64 {
		return (a - s.MeanApogee) * (a - s.MeanApogee)
	}) / n)
	s.MeanDrift = lo.Sum(drifts) / n
	s.MaxDrift = lo.Max(drifts)
	s.MeanFlight = lo.SumBy(ok, func(r MonteCarloResult) float64 { return r.Summary.FlightTime }) / n
	return s
}

// Failures lists the trials that did not complete.
func Failures(results []MonteCarloResult) []driver.Outcome {
	return lo.FilterMap(results, func(r MonteCarloResult, _ int) (driver.Outcome, bool) {
		return r.Outcome, !r.OK()
	})
}
