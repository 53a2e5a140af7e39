package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/flightsim/internal/config"
	"github.com/san-kum/flightsim/internal/driver"
	"github.com/san-kum/flightsim/internal/flight"
	"github.com/san-kum/flightsim/internal/listeners"
	"github.com/san-kum/flightsim/internal/report"
	"github.com/san-kum/flightsim/internal/sim"
	"github.com/san-kum/flightsim/internal/storage"
)

// runListeners builds the optional listeners selected on the command line.
func runListeners() ([]sim.Listener, error) {
	var ls []sim.Listener
	if len(exprs) > 0 {
		l, err := app.registry.Expressions(exprs)
		if err != nil {
			return nil, err
		}
		ls = append(ls, l)
	}
	if stopAltitude > 0 {
		ls = append(ls, listeners.StopAtAltitude(stopAltitude))
	}
	if stopTime > 0 {
		ls = append(ls, listeners.StopAtTime(stopTime))
	}
	if stopOn != "" {
		typ, err := flight.ParseEventType(strings.ToUpper(stopOn))
		if err != nil {
			return nil, err
		}
		ls = append(ls, listeners.StopOnEvent(typ))
	}
	return ls, nil
}

func runFlight(cmd *cobra.Command, args []string) error {
	f, err := loadFlight(args)
	if err != nil {
		return err
	}
	extra, err := runListeners()
	if err != nil {
		return err
	}
	exp, err := app.registry.Build(f, extra...)
	if err != nil {
		return err
	}

	drv, pool, err := newDriver()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, stop := interruptible(cmd)
	defer stop()

	h, err := drv.Submit(ctx, exp.Job(0))
	if err != nil {
		return err
	}
	app.log.Info().Str("run", h.ID()).Str("rocket", f.Name).Str("integrator", exp.Integrator).Msg("flight submitted")

	if watch {
		if _, err := tea.NewProgram(report.NewLive(h, f.Name, f.Simulation.MaxTime)).Run(); err != nil {
			h.Cancel()
			return err
		}
	}
	out := h.Wait()

	if err := printOutcome(f, exp.Integrator, out); err != nil {
		return err
	}
	if out.Status == driver.Failed {
		return out.Err
	}
	return nil
}

// printOutcome stores the run unless --no-save is set and prints its report.
func printOutcome(f *config.File, integ string, out driver.Outcome) error {
	info := storage.RunInfo{
		ID:         out.RunID,
		Rocket:     f.Name,
		Integrator: integ,
		Seed:       f.Simulation.Seed,
		Config:     f.Simulation,
		Outcome:    out.Status.String(),
		Err:        out.Err,
	}

	if noSave {
		meta := storage.Describe(info, out.Result)
		fmt.Printf("completed in %v\n", out.Elapsed)
		return report.Run(os.Stdout, &meta)
	}

	if err := app.store.Init(); err != nil {
		return err
	}
	id, err := app.store.Save(info, out.Result)
	if err != nil {
		return err
	}
	meta, err := app.store.Load(id)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", out.Elapsed)
	return report.Run(os.Stdout, meta)
}
