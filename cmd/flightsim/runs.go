package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/san-kum/flightsim/internal/config"
	"github.com/san-kum/flightsim/internal/listeners"
	"github.com/san-kum/flightsim/internal/motor"
	"github.com/san-kum/flightsim/internal/report"
)

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := app.store.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		apogee := "-"
		if main, ok := run.Main(); ok {
			apogee = f1(main.Summary.Apogee)
		}
		rows = append(rows, []string{
			run.ID[:min(8, len(run.ID))],
			run.Rocket,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Integrator,
			report.Status(run.Outcome),
			strconv.Itoa(len(run.Branches)),
			apogee,
		})
	}
	fmt.Println(report.Table([]string{"ID", "ROCKET", "TIME", "INTEG", "OUTCOME", "BRANCHES", "APOGEE m"}, rows))
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	id, err := app.store.Find(args[0])
	if err != nil {
		return err
	}
	meta, err := app.store.Load(id)
	if err != nil {
		return err
	}
	return report.Run(os.Stdout, meta)
}

func plotRun(cmd *cobra.Command, args []string) error {
	id, err := app.store.Find(args[0])
	if err != nil {
		return err
	}
	meta, err := app.store.Load(id)
	if err != nil {
		return err
	}

	var series []report.Series
	for i, b := range meta.Branches {
		if branch >= 0 && i != branch {
			continue
		}
		samples, err := app.store.LoadBranch(id, i)
		if err != nil {
			return err
		}
		series = append(series, report.AltitudeSeries(b.Name, samples))
	}
	if len(series) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("rocket: %s\n\n", meta.Rocket)
	fmt.Println(report.TimePlot(series, width, height, "altitude m"))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	id, err := app.store.Find(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return app.store.ExportJSON(os.Stdout, id)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := app.store.ExportJSON(f, id); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}

func initFlight(cmd *cobra.Command, args []string) error {
	f := config.GetPreset(initPreset)
	if f == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", initPreset, config.ListPresets())
	}
	if _, err := os.Stat(args[0]); err == nil {
		return fmt.Errorf("%s already exists", args[0])
	}
	if err := config.Save(args[0], f); err != nil {
		return err
	}
	fmt.Printf("wrote %s from preset %s\n", args[0], initPreset)
	return nil
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list flight presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := [][]string{}
			for _, name := range config.ListPresets() {
				f := config.GetPreset(name)
				motors := make([]string, 0, len(f.Motors))
				for _, m := range f.Motors {
					motors = append(motors, m.Designation)
				}
				rows = append(rows, []string{name, f.Name, strconv.Itoa(len(f.Stages)), fmt.Sprint(motors)})
			}
			fmt.Println(report.Table([]string{"PRESET", "ROCKET", "STAGES", "MOTORS"}, rows))
			return nil
		},
	}
}

func motorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "motors",
		Short: "list the built-in motor catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := app.registry.Motors()
			rows := [][]string{}
			for _, d := range cat.Designations() {
				m, err := cat.Lookup(d)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					d,
					f1(m.TotalImpulse()),
					f1(m.AverageThrust()),
					strconv.FormatFloat(m.BurnTime(), 'f', 2, 64),
					strconv.FormatFloat(m.PropellantMass()*1000, 'f', 1, 64),
					report.Sparkline(thrustProfile(m, 16), 16),
				})
			}
			fmt.Println(report.Table([]string{"MOTOR", "IMPULSE Ns", "AVG N", "BURN s", "PROP g", "CURVE"}, rows))
			return nil
		},
	}
}

func expressionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expressions",
		Short: "list expressions usable with run --expr",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range listeners.Builtins() {
				fmt.Printf("  %s\n", name)
			}
		},
	}
}

func integratorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrators",
		Short: "list integrators",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range app.registry.ListIntegrators() {
				fmt.Printf("  %s\n", name)
			}
		},
	}
}

// thrustProfile samples the thrust curve at n evenly spaced times.
func thrustProfile(m *motor.Model, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = m.Thrust(m.BurnTime() * float64(i) / float64(n-1))
	}
	return out
}

func exportSVG(cmd *cobra.Command, args []string) error {
	id, err := app.store.Find(args[0])
	if err != nil {
		return err
	}
	meta, err := app.store.Load(id)
	if err != nil {
		return err
	}

	paths := make([]report.Trajectory, 0, len(meta.Branches))
	for i, b := range meta.Branches {
		samples, err := app.store.LoadBranch(id, i)
		if err != nil {
			return err
		}
		paths = append(paths, report.TrajectoryOf(b.Name, samples))
	}
	svg := report.TrajectorySVG(paths, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("no data to export")
	}

	if outFile == "" {
		outFile = id[:min(8, len(id))] + ".svg"
	}
	if err := os.WriteFile(outFile, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}
