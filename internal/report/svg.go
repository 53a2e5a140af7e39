package report

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/san-kum/flightsim/internal/storage"
)

// Trajectory is a flight path in the vertical plane: X is the horizontal
// distance from the pad and Y the altitude.
type Trajectory struct {
	Name string
	X, Y []float64
}

var strokeColors = []string{"#00ccff", "#ff4444", "#00ff88", "#ffcc00", "#ff00ff"}

func TrajectoryOf(name string, samples []storage.Sample) Trajectory {
	t := Trajectory{Name: name, X: make([]float64, len(samples)), Y: make([]float64, len(samples))}
	for i, s := range samples {
		t.X[i] = math.Hypot(s.Position.X(), s.Position.Y())
		t.Y[i] = s.Altitude()
	}
	return t
}

// TrajectorySVG draws every path on shared axes, one colour per path, with
// the names as a legend.
func TrajectorySVG(paths []Trajectory, width, height int) string {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	n := 0
	for _, p := range paths {
		for i := range p.X {
			minX, maxX = math.Min(minX, p.X[i]), math.Max(maxX, p.X[i])
			minY, maxY = math.Min(minY, p.Y[i]), math.Max(maxY, p.Y[i])
			n++
		}
	}
	if n < 2 {
		return ""
	}

	apogee, reach := maxY, maxX

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for k, p := range paths {
		if len(p.X) < 2 {
			continue
		}
		color := strokeColors[k%len(strokeColors)]
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color))
		for i := range p.X {
			x := (p.X[i] - minX) / rangeX * float64(width)
			y := float64(height) - (p.Y[i]-minY)/rangeY*float64(height)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
		sb.WriteString(fmt.Sprintf(`<text x="10" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 20+16*k, color, html.EscapeString(p.Name)))
	}

	sb.WriteString(fmt.Sprintf(`<text x="10" y="%d" fill="#888899" font-family="monospace" font-size="11">apogee %.1f m, range %.1f m</text>
</svg>`, height-10, apogee, reach))
	return sb.String()
}
