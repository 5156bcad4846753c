// Package dashboard renders a live terminal view of a worker pool's
// occupancy, in the Bubble Tea + Lip Gloss idiom the original settings
// screen used for its own panels.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Snapshot is a point-in-time view of a pool's activity, supplied by the
// caller on each tick rather than imported directly — this keeps the
// dashboard package decoupled from the root parallex package.
type Snapshot struct {
	Workers   []WorkerStat
	Queued    int
	Completed int
	Failed    int
}

// WorkerStat describes one worker goroutine's current occupancy, 0..1.
type WorkerStat struct {
	Index     int
	Busy      bool
	Occupancy float64
}

// Poller is called on every refresh tick to obtain the latest Snapshot.
type Poller func() Snapshot

type tickMsg time.Time

// Model is the Bubble Tea model driving the live view.
type Model struct {
	poll     Poller
	interval time.Duration
	bars     []progress.Model
	last     Snapshot
	width    int
	height   int
}

// New builds a dashboard Model that calls poll every interval.
func New(poll Poller, interval time.Duration) Model {
	return Model{poll: poll, interval: interval}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		m.last = m.poll()
		for len(m.bars) < len(m.last.Workers) {
			bar := progress.New(progress.WithDefaultGradient())
			m.bars = append(m.bars, bar)
		}
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("parallex — pool occupancy"))
	b.WriteString("\n\n")

	for i, w := range m.last.Workers {
		label := fmt.Sprintf("worker %2d", w.Index)
		state := "idle"
		if w.Busy {
			state = "busy"
		}
		var bar string
		if i < len(m.bars) {
			bar = m.bars[i].ViewAs(w.Occupancy)
		}
		b.WriteString(fmt.Sprintf("%-12s %-5s %s\n", label, state, bar))
	}

	summary := fmt.Sprintf("queued=%d completed=%d failed=%d", m.last.Queued, m.last.Completed, m.last.Failed)
	width := m.width - 4
	if width < 40 {
		width = 40
	}
	body := lipgloss.JoinVertical(lipgloss.Left, b.String(), "", summary)
	box := renderBox("Dashboard", body, width, ColorNeonPink)

	help := HelpStyle.Render("[q] quit")
	return lipgloss.JoinVertical(lipgloss.Left, box, help)
}
