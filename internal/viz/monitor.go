// Package viz renders solver output in the terminal: a live monitor for
// ensemble runs and static plots of recorded series.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/qsimlab/qsim/internal/ensemble"
)

const (
	graphWidth    = 70
	graphHeight   = 12
	historyPoints = 200
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type TickMsg time.Time

// Monitor is a bubbletea model showing the progress of an ensemble run: a
// trajectory counter, the running mean of the first observable at the final
// time, and its history as a graph. Events arrive on a channel fed by the
// ensemble's progress callback; quitting cancels the run.
type Monitor struct {
	title   string
	obs     string
	events  <-chan ensemble.Event
	cancel  func()
	started time.Time

	completed int
	failed    int
	total     int
	mean      float64
	history   []float64
	done      bool
}

// NewMonitor builds a monitor reading from events. cancel is invoked when
// the user quits before the run finishes.
func NewMonitor(title, observable string, total int, events <-chan ensemble.Event, cancel func()) Monitor {
	return Monitor{
		title:   title,
		obs:     observable,
		events:  events,
		cancel:  cancel,
		total:   total,
		started: time.Now(),
		history: make([]float64, 0, historyPoints),
	}
}

func (m Monitor) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key := msg.String(); key == "q" || key == "ctrl+c" {
			if !m.done {
				m.cancel()
			}
			return m, tea.Quit
		}
	case TickMsg:
		m.drain()
		if m.done {
			return m, tea.Quit
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// drain consumes all pending progress events without blocking.
func (m *Monitor) drain() {
	for {
		select {
		case e, ok := <-m.events:
			if !ok {
				m.done = true
				return
			}
			m.completed = e.Completed
			m.failed = e.Failed
			m.total = e.Total
			if e.FinalExpect != nil {
				// Running mean over completed trajectories.
				n := float64(m.completed)
				m.mean += (real(e.FinalExpect[0]) - m.mean) / n
				if len(m.history) == historyPoints {
					copy(m.history, m.history[1:])
					m.history = m.history[:historyPoints-1]
				}
				m.history = append(m.history, m.mean)
			}
		default:
			return
		}
	}
}

func (m Monitor) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.title))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	done := m.completed + m.failed
	row("trajectories", fmt.Sprintf("%d / %d", done, m.total))
	if m.failed > 0 {
		row("failed", failStyle.Render(fmt.Sprintf("%d", m.failed)))
	}
	row("elapsed", time.Since(m.started).Truncate(time.Millisecond).String())
	if m.completed > 0 {
		row("mean "+m.obs, fmt.Sprintf("%.6f", m.mean))
	}
	b.WriteString(barStyle.Render(progressBar(done, m.total, 50)))
	b.WriteString("\n")

	if len(m.history) >= 2 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("running mean "+m.obs))
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q: cancel and quit"))
	return b.String()
}

func progressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
