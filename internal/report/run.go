package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/flightsim/internal/storage"
)

// Table renders rows under headers with the report styles.
func Table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(Subtle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return Header
			}
			return Cell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func f1(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
func f2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// Run writes the header, branch table, event log and metrics of a stored run.
func Run(w io.Writer, meta *storage.RunMetadata) error {
	lines := []string{
		Title.Render(meta.Rocket),
		Field("run", meta.ID),
		Field("time", meta.Timestamp.Format("2006-01-02 15:04:05")),
		Field("integrator", meta.Integrator),
		Field("seed", strconv.FormatInt(meta.Seed, 10)),
		Label.Render("outcome:") + " " + Status(meta.Outcome),
		Field("steps", strconv.Itoa(meta.Steps)),
	}
	if meta.Error != "" {
		lines = append(lines, Field("error", meta.Error))
	}
	var flags []string
	for _, f := range []struct {
		set  bool
		name string
	}{{meta.Truncated, "truncated"}, {meta.Stopped, "stopped"}, {meta.Cancelled, "cancelled"}} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	if len(flags) > 0 {
		lines = append(lines, Field("flags", strings.Join(flags, ", ")))
	}
	if _, err := fmt.Fprintln(w, Panel.Render(strings.Join(lines, "\n"))); err != nil {
		return err
	}

	if len(meta.Branches) == 0 {
		_, err := fmt.Fprintln(w, Subtle.Render("no branches recorded"))
		return err
	}

	rows := make([][]string, 0, len(meta.Branches))
	for _, b := range meta.Branches {
		s := b.Summary
		parent := "-"
		if b.Parent >= 0 && b.Parent < len(meta.Branches) {
			parent = meta.Branches[b.Parent].Name
		}
		rows = append(rows, []string{
			b.Name, parent, f2(b.ForkTime),
			f1(s.Apogee), f2(s.ApogeeTime), f1(s.MaxSpeed), f1(s.MaxAccel),
			f2(s.FlightTime), f1(s.Downrange()), strconv.FormatBool(s.Landed),
		})
	}
	if _, err := fmt.Fprintln(w, Table([]string{
		"BRANCH", "PARENT", "FORK s", "APOGEE m", "T APOGEE s", "MAX V m/s",
		"MAX A m/s²", "FLIGHT s", "DOWNRANGE m", "LANDED",
	}, rows)); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, Table([]string{"TIME s", "BRANCH", "EVENT", "SOURCE", "ALTITUDE m"}, eventRows(meta))); err != nil {
		return err
	}

	if mrows := metricRows(meta); len(mrows) > 0 {
		headers := []string{"METRIC"}
		for _, b := range meta.Branches {
			headers = append(headers, b.Name)
		}
		if _, err := fmt.Fprintln(w, Table(headers, mrows)); err != nil {
			return err
		}
	}
	return nil
}

func eventRows(meta *storage.RunMetadata) [][]string {
	type row struct {
		t    float64
		cols []string
	}
	var all []row
	for _, b := range meta.Branches {
		for _, e := range b.Events {
			// a child starts with copies of its parent's events
			if b.Parent >= 0 && e.Time <= b.ForkTime {
				continue
			}
			src := e.Source
			if src == "" {
				src = "-"
			}
			all = append(all, row{e.Time, []string{f2(e.Time), b.Name, e.Type, src, f1(e.Altitude)}})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].t < all[j].t })

	rows := make([][]string, len(all))
	for i, r := range all {
		rows[i] = r.cols
	}
	return rows
}

func metricRows(meta *storage.RunMetadata) [][]string {
	names := map[string]bool{}
	for _, b := range meta.Branches {
		for k := range b.Metrics {
			names[k] = true
		}
	}
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		r := []string{k}
		for _, b := range meta.Branches {
			if v, ok := b.Metrics[k]; ok {
				r = append(r, strconv.FormatFloat(v, 'g', 6, 64))
			} else {
				r = append(r, "-")
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// AltitudeSeries turns stored samples into a plot series.
func AltitudeSeries(name string, samples []storage.Sample) Series {
	s := Series{
		Name:   name,
		Time:   make([]float64, len(samples)),
		Values: make([]float64, len(samples)),
	}
	for i, x := range samples {
		s.Time[i] = x.Time
		s.Values[i] = x.Altitude()
	}
	return s
}
