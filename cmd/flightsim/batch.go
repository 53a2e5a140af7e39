package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/san-kum/flightsim/internal/automation"
	"github.com/san-kum/flightsim/internal/config"
	"github.com/san-kum/flightsim/internal/report"
	"github.com/san-kum/flightsim/internal/storage"
)

func newRunner() (*automation.Runner, func(), error) {
	drv, pool, err := newDriver()
	if err != nil {
		return nil, nil, err
	}
	return &automation.Runner{Registry: app.registry, Driver: drv, Log: app.log}, pool.Close, nil
}

func f1(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

func trialRow(t automation.Trial) []string {
	return []string{
		strconv.Itoa(t.ID + 1), t.Name, report.Status(t.Outcome.Status.String()),
		f1(t.Summary.Apogee), f1(t.Summary.FlightTime), f1(t.Summary.Downrange()),
	}
}

var trialHeaders = []string{"#", "NAME", "OUTCOME", "APOGEE m", "FLIGHT s", "DOWNRANGE m"}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}
	files, err := sc.Resolve()
	if err != nil {
		return err
	}

	runner, done, err := newRunner()
	if err != nil {
		return err
	}
	defer done()

	ctx, stop := interruptible(cmd)
	defer stop()

	trialsOut, err := runner.RunScenario(ctx, sc)
	if err != nil {
		return err
	}

	if !noSave {
		if err := app.store.Init(); err != nil {
			return err
		}
	}
	headers := trialHeaders
	if !noSave {
		headers = append(headers[:len(headers):len(headers)], "RUN")
	}
	rows := make([][]string, 0, len(trialsOut))
	for _, t := range trialsOut {
		row := trialRow(t)
		if !noSave {
			id, err := app.store.Save(trialInfo(files[t.ID], t), t.Outcome.Result)
			if err != nil {
				return err
			}
			row = append(row, id[:8])
		}
		rows = append(rows, row)
	}

	fmt.Println(report.Title.Render(sc.Name))
	if sc.Description != "" {
		fmt.Println(report.Subtle.Render(sc.Description))
	}
	fmt.Println(report.Table(headers, rows))

	failed := lo.CountBy(trialsOut, func(t automation.Trial) bool { return !t.OK() })
	if failed > 0 {
		return fmt.Errorf("%d of %d flights did not complete", failed, len(trialsOut))
	}
	return nil
}

func trialInfo(f *config.File, t automation.Trial) storage.RunInfo {
	cfg := f.Simulation
	if t.Seed != 0 {
		cfg.Seed = t.Seed
	}
	return storage.RunInfo{
		ID:         t.Outcome.RunID,
		Rocket:     f.Name,
		Integrator: f.Integrator,
		Seed:       cfg.Seed,
		Config:     cfg,
		Outcome:    t.Outcome.Status.String(),
		Err:        t.Outcome.Err,
	}
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	f, err := loadFlight(args)
	if err != nil {
		return err
	}

	runner, done, err := newRunner()
	if err != nil {
		return err
	}
	defer done()

	ctx, stop := interruptible(cmd)
	defer stop()

	results, err := runner.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:        f,
		NumTrials:   trials,
		Seed:        seed,
		ThrustSigma: thrustSigma,
		MassSigma:   massSigma,
		WindSigma:   windSigma,
	})
	if err != nil {
		return err
	}

	s := automation.MonteCarloStats(results)
	fmt.Println(report.Panel.Render(strings.Join([]string{
		report.Title.Render(fmt.Sprintf("%s: %d flights", f.Name, len(results))),
		report.Field("completed", fmt.Sprintf("%d", s.Completed)) + "  " +
			report.Label.Render("done ") + report.ProgressBar(float64(s.Completed)/float64(max(len(results), 1)), 20),
		report.Field("failed", fmt.Sprintf("%d", s.Failed)),
		report.Field("apogee", fmt.Sprintf("%.1f ± %.1f m (%.1f .. %.1f)", s.MeanApogee, s.StdApogee, s.MinApogee, s.MaxApogee)),
		report.Field("downrange", fmt.Sprintf("mean %.1f m, max %.1f m", s.MeanDrift, s.MaxDrift)),
		report.Field("flight time", fmt.Sprintf("%.1f s", s.MeanFlight)),
	}, "\n")))

	apogees := lo.FilterMap(results, func(r automation.MonteCarloResult, _ int) (float64, bool) {
		return r.Summary.Apogee, r.OK()
	})
	if len(apogees) > 1 {
		fmt.Println(report.Label.Render("apogee distribution"))
		fmt.Println(report.HistogramLine(apogees, 24))
	}

	for _, out := range automation.Failures(results) {
		app.log.Warn().Str("run", out.RunID).Stringer("outcome", out.Status).Err(out.Err).Msg("flight did not complete")
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	f, err := loadFlight(args)
	if err != nil {
		return err
	}

	runner, done, err := newRunner()
	if err != nil {
		return err
	}
	defer done()

	ctx, stop := interruptible(cmd)
	defer stop()

	results, err := runner.RunSweep(ctx, &automation.ParameterSweep{
		Base:     f,
		Param:    param,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepSteps,
	})
	if err != nil {
		return err
	}

	rows := lo.Map(results, func(r automation.SweepResult, _ int) []string {
		return append([]string{strconv.FormatFloat(r.ParamValue, 'g', 6, 64)}, trialRow(r.Trial)[2:]...)
	})
	fmt.Println(report.Table(append([]string{param}, trialHeaders[2:]...), rows))

	apogees := lo.Map(results, func(r automation.SweepResult, _ int) float64 { return r.Trial.Summary.Apogee })
	fmt.Println(report.XYPlot(apogees, 10, fmt.Sprintf("apogee vs %s (%g .. %g)", param, sweepMin, sweepMax)))
	return nil
}
