package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// ProgressBar renders fraction in [0, 1] as a bar of width cells.
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction > 0.8:
		return sparkHigh.Render(bar)
	case fraction > 0.4:
		return sparkMid.Render(bar)
	}
	return sparkLow.Render(bar)
}

// Sparkline draws values scaled between their minimum and maximum, keeping
// at most width of them.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	step := max(len(values)/width, 1)
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / span
		idx := int(norm * float64(len(sparkChars)-1))
		idx = max(0, min(idx, len(sparkChars)-1))

		c := string(sparkChars[idx])
		switch {
		case norm > 0.7:
			b.WriteString(sparkHigh.Render(c))
		case norm > 0.3:
			b.WriteString(sparkMid.Render(c))
		default:
			b.WriteString(sparkLow.Render(c))
		}
	}
	return b.String()
}

// Histogram counts values into bins equal-width buckets and returns the
// counts with the bucket edges.
func Histogram(values []float64, bins int) (counts []float64, lo, hi float64) {
	if len(values) == 0 || bins <= 0 {
		return nil, 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	counts = make([]float64, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range values {
		i := bins - 1
		if width > 0 {
			i = min(int((v-lo)/width), bins-1)
		}
		counts[i]++
	}
	return counts, lo, hi
}

// HistogramLine renders a histogram as a sparkline between its edges.
func HistogramLine(values []float64, bins int) string {
	counts, lo, hi := Histogram(values, bins)
	if counts == nil {
		return ""
	}
	return fmt.Sprintf("%s %s %s", Subtle.Render(fmt.Sprintf("%.1f", lo)),
		Sparkline(counts, bins), Subtle.Render(fmt.Sprintf("%.1f", hi)))
}

// Series is one curve of a time plot.
type Series struct {
	Name   string
	Time   []float64
	Values []float64
}

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Blue, asciigraph.Red, asciigraph.Green, asciigraph.Yellow, asciigraph.Magenta,
}

// Resample interpolates s onto n points between t0 and t1. Points outside
// the series' time span are NaN so later branches start where they fork.
func (s Series) Resample(t0, t1 float64, n int) []float64 {
	out := make([]float64, n)
	j := 0
	for i := range out {
		t := t0
		if n > 1 {
			t = t0 + (t1-t0)*float64(i)/float64(n-1)
		}
		if len(s.Time) == 0 || t < s.Time[0] || t > s.Time[len(s.Time)-1] {
			out[i] = math.NaN()
			continue
		}
		for j+1 < len(s.Time) && s.Time[j+1] < t {
			j++
		}
		if j+1 == len(s.Time) || s.Time[j+1] == s.Time[j] {
			out[i] = s.Values[j]
			continue
		}
		f := (t - s.Time[j]) / (s.Time[j+1] - s.Time[j])
		out[i] = s.Values[j] + f*(s.Values[j+1]-s.Values[j])
	}
	return out
}

// TimePlot draws every series on a shared time axis.
func TimePlot(series []Series, width, height int, caption string) string {
	t0, t1 := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if len(s.Time) == 0 {
			continue
		}
		t0 = math.Min(t0, s.Time[0])
		t1 = math.Max(t1, s.Time[len(s.Time)-1])
	}
	if t0 > t1 {
		return ""
	}

	data := make([][]float64, 0, len(series))
	names := make([]string, 0, len(series))
	for _, s := range series {
		if len(s.Time) == 0 {
			continue
		}
		data = append(data, s.Resample(t0, t1, width))
		names = append(names, s.Name)
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("%s (t = %.1f .. %.1f s)", caption, t0, t1)),
	}
	// legends need a colour per series
	if len(data) > 1 && len(data) <= len(seriesColors) {
		opts = append(opts,
			asciigraph.SeriesColors(seriesColors[:len(data)]...),
			asciigraph.SeriesLegends(names...))
	}
	return asciigraph.PlotMany(data, opts...)
}

// XYPlot draws ys against evenly spaced xs, as produced by a sweep.
func XYPlot(ys []float64, height int, caption string) string {
	if len(ys) == 0 {
		return ""
	}
	return asciigraph.Plot(ys, asciigraph.Height(height), asciigraph.Caption(caption))
}
