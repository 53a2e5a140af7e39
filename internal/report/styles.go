// Package report renders stored runs and batch statistics for the terminal.
package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	Label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899"))

	Value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00ccff")).
		Bold(true)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ffffff")).
		Padding(0, 1)

	Cell = lipgloss.NewStyle().Padding(0, 1)

	statusStyles = map[string]lipgloss.Style{
		"completed": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88")),
		"cancelled": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00")),
		"failed":    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444")),
	}

	sparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	sparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	sparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// Status colours a run outcome by name.
func Status(s string) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(s)
	}
	return s
}

// Field renders one "label: value" line.
func Field(label, value string) string {
	return Label.Render(label+":") + " " + Value.Render(value)
}

func Separator(width int) string {
	mid := width / 2
	if mid < 3 {
		return Subtle.Render(strings.Repeat("─", width))
	}
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return Subtle.Render(left + " ◆ " + right)
}
