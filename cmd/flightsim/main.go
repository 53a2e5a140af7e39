package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/flightsim/internal/config"
	"github.com/san-kum/flightsim/internal/driver"
	"github.com/san-kum/flightsim/internal/experiment"
	"github.com/san-kum/flightsim/internal/logging"
	"github.com/san-kum/flightsim/internal/storage"
)

var (
	settingsFile string
	dataDir      string
	logLevel     string
	logFormat    string
	logFile      string
	workers      int

	// flight selection, shared by run, batch, montecarlo and sweep
	preset     string
	integrator string
	seed       int64
	maxTime    float64
	noSave     bool

	// run
	exprs        []string
	stopAltitude float64
	stopTime     float64
	stopOn       string
	watch        bool

	// plot and export-svg
	branch    int
	width     int
	height    int
	svgWidth  int
	svgHeight int

	// montecarlo
	trials      int
	thrustSigma float64
	massSigma   float64
	windSigma   float64

	// sweep
	param      string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	outFile    string
	initPreset string
)

// app is what every command gets once settings are loaded.
var app struct {
	settings config.Settings
	log      zerolog.Logger
	registry *experiment.Registry
	store    *storage.Store
	closers  []io.Closer
	sentry   bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:               "flightsim",
		Short:             "multi-stage rocket flight simulator",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&settingsFile, "config", "", "settings file (yaml, toml or json)")
	pf.StringVar(&dataDir, "data", "", "run directory (default from settings)")
	pf.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error, off")
	pf.StringVar(&logFormat, "log-format", "", "log format: console or json")
	pf.StringVar(&logFile, "log-file", "", "also write logs to this file")
	pf.IntVar(&workers, "workers", 0, "simulation workers (0 = settings, then number of CPUs)")

	runCmd := &cobra.Command{
		Use:   "run [flight.yaml]",
		Short: "simulate one flight",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFlight,
	}
	flightFlags(runCmd)
	runCmd.Flags().StringSliceVar(&exprs, "expr", nil, "expressions to record each step (see 'expressions')")
	runCmd.Flags().Float64Var(&stopAltitude, "stop-altitude", 0, "stop once this altitude is passed (m)")
	runCmd.Flags().Float64Var(&stopTime, "stop-time", 0, "stop at this flight time (s)")
	runCmd.Flags().StringVar(&stopOn, "stop-on", "", "stop after this event, e.g. APOGEE")
	runCmd.Flags().BoolVar(&watch, "watch", false, "print live progress")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every step of a scenario concurrently",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	mcCmd := &cobra.Command{
		Use:   "montecarlo [flight.yaml]",
		Short: "disperse thrust, mass and wind over many flights",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	flightFlags(mcCmd)
	mcCmd.Flags().IntVar(&trials, "trials", 100, "number of flights")
	mcCmd.Flags().Float64Var(&thrustSigma, "thrust-sigma", 0.05, "relative thrust standard deviation")
	mcCmd.Flags().Float64Var(&massSigma, "mass-sigma", 0.02, "relative dry mass standard deviation")
	mcCmd.Flags().Float64Var(&windSigma, "wind-sigma", 2, "wind standard deviation (m/s)")

	sweepCmd := &cobra.Command{
		Use:   "sweep [flight.yaml]",
		Short: "vary one parameter linearly",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	flightFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&param, "param", "launch_angle", "parameter: launch_angle, heading, rail_length, wind.x, wind.y, stage.<name>.dry_mass, stage.<name>.cd, motor.<id>.scale")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.2, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of flights")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot altitude of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&branch, "branch", -1, "branch to plot (-1 = all)")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 15, "plot height")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run with all samples as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the flight paths of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run>.svg)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width (px)")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height (px)")

	initCmd := &cobra.Command{
		Use:   "init [flight.yaml]",
		Short: "write a flight file from a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  initFlight,
	}
	initCmd.Flags().StringVar(&initPreset, "preset", "single", "preset to start from")

	rootCmd.AddCommand(runCmd, batchCmd, mcCmd, sweepCmd, listCmd, showCmd, plotCmd,
		exportJSONCmd, exportSVGCmd, initCmd, presetsCmd(), motorsCmd(), expressionsCmd(), integratorsCmd())

	err := rootCmd.Execute()
	teardown()
	if err != nil {
		os.Exit(1)
	}
}

func flightFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use a preset instead of a flight file")
	cmd.Flags().StringVar(&integrator, "integrator", "", "integrator (default from file or settings)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = from file)")
	cmd.Flags().Float64Var(&maxTime, "time", 0, "maximum flight time (s)")
}

func setup(cmd *cobra.Command, args []string) error {
	s, err := config.LoadSettings(settingsFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		s.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		s.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		s.LogFormat = logFormat
	}
	if flags.Changed("workers") {
		s.Workers = workers
	}
	app.settings = s

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		app.closers = append(app.closers, f)
		app.log = logging.Tee(s.LogLevel, os.Stderr, f)
	} else {
		app.log = logging.New(os.Stderr, s.LogLevel, logging.Format(s.LogFormat))
	}

	if s.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: s.SentryDSN}); err != nil {
			app.log.Warn().Err(err).Msg("sentry disabled")
		} else {
			app.sentry = true
		}
	}

	app.registry = experiment.NewRegistry(nil)
	app.store = storage.New(s.DataDir)
	return nil
}

func teardown() {
	if app.sentry {
		sentry.Flush(2 * time.Second)
	}
	for _, c := range app.closers {
		c.Close()
	}
}

// newDriver starts a worker pool sized by the settings. The caller closes
// the pool.
func newDriver() (*driver.Driver, *driver.Pool, error) {
	pool := driver.NewPool(app.settings.Workers, app.log)
	drv, err := driver.New(pool,
		driver.WithLogger(app.log),
		driver.WithProgressInterval(app.settings.ProgressInterval),
	)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return drv, pool, nil
}

// interruptible cancels the command's context on Ctrl-C.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

// loadFlight reads the flight file named by args, or the preset, and applies
// the command line overrides.
func loadFlight(args []string) (*config.File, error) {
	var f *config.File
	switch {
	case len(args) > 0:
		var err error
		if f, err = config.Load(args[0]); err != nil {
			return nil, fmt.Errorf("failed to load flight file: %w", err)
		}
	case preset != "":
		if f = config.GetPreset(preset); f == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		f = config.GetPreset("single")
	}

	if f.Integrator == "" {
		f.Integrator = app.settings.Integrator
	}
	if integrator != "" {
		f.Integrator = integrator
	}
	if maxTime > 0 {
		f.Simulation.MaxTime = maxTime
	}
	if seed != 0 {
		f.Simulation.Seed = seed
	}
	return f, nil
}
