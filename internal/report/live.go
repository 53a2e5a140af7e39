package report

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/flightsim/internal/driver"
)

const altitudeHistory = 60

type snapshotMsg driver.Snapshot

type finishedMsg struct{}

// Live follows a running flight until its progress stream closes. q or
// ctrl+c cancels the run; the view stays up until the driver finishes it.
type Live struct {
	h         *driver.Handle
	name      string
	maxTime   float64
	last      *driver.Snapshot
	altitudes []float64
	events    []string
	cancelled bool
	done      bool
}

func NewLive(h *driver.Handle, name string, maxTime float64) Live {
	return Live{h: h, name: name, maxTime: maxTime}
}

func (m Live) next() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.h.Progress()
		if !ok {
			return finishedMsg{}
		}
		return snapshotMsg(s)
	}
}

func (m Live) Init() tea.Cmd { return m.next() }

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.cancelled {
				m.cancelled = true
				m.h.Cancel()
			}
		}
		return m, nil
	case snapshotMsg:
		s := driver.Snapshot(msg)
		m.last = &s
		if s.Status.Branch == 0 {
			m.altitudes = append(m.altitudes, s.Status.State.Altitude())
			if len(m.altitudes) > altitudeHistory {
				m.altitudes = m.altitudes[len(m.altitudes)-altitudeHistory:]
			}
		}
		if s.Trigger != "step" {
			m.events = append(m.events, fmt.Sprintf("%7.2fs  %-10s %s", s.Status.State.Time, s.Status.BranchName, s.Trigger))
		}
		return m, m.next()
	case finishedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Live) View() string {
	var b strings.Builder
	b.WriteString(Title.Render(m.name) + "\n")
	if m.last == nil {
		b.WriteString(Subtle.Render("waiting for the first step...") + "\n")
		return b.String()
	}

	st := m.last.Status.State
	frac := 0.0
	if m.maxTime > 0 {
		frac = st.Time / m.maxTime
	}
	lines := []string{
		Field("time", fmt.Sprintf("%.2f s", st.Time)) + "  " + ProgressBar(frac, 20),
		Field("branch", m.last.Status.BranchName),
		Field("altitude", fmt.Sprintf("%.1f m", st.Altitude())),
		Field("vertical speed", fmt.Sprintf("%.1f m/s", st.VerticalVelocity())),
		Field("max altitude", fmt.Sprintf("%.1f m", m.last.MaxAltitude)),
		Sparkline(m.altitudes, altitudeHistory),
	}
	b.WriteString(Panel.Render(strings.Join(lines, "\n")) + "\n")
	for _, e := range m.events {
		b.WriteString(Subtle.Render(e) + "\n")
	}
	switch {
	case m.cancelled && !m.done:
		b.WriteString(Subtle.Render("cancelling...") + "\n")
	case !m.done:
		b.WriteString(Subtle.Render("q: cancel") + "\n")
	}
	return b.String()
}
