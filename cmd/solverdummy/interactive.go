package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/precice-go/config"
	"github.com/wippyai/precice-go/driver"
)

const eventHistory = 12

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	checkpointStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type eventMsg driver.Event

type doneMsg struct {
	err error
	res driver.Result
}

type dashboardModel struct {
	err      error
	cancel   context.CancelFunc
	s        config.Settings
	events   []driver.Event
	last     driver.Event
	res      driver.Result
	spinner  spinner.Model
	progress progress.Model
	done     bool
	quitting bool
}

func newDashboardModel(s config.Settings, cancel context.CancelFunc) *dashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &dashboardModel{
		s:        s,
		cancel:   cancel,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m *dashboardModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done {
				return m, tea.Quit
			}
			m.quitting = true
			m.cancel()
		}

	case eventMsg:
		e := driver.Event(msg)
		m.last = e
		m.events = append(m.events, e)
		if len(m.events) > eventHistory {
			m.events = m.events[len(m.events)-eventHistory:]
		}
		if m.s.MaxSteps > 0 {
			return m, m.progress.SetPercent(float64(e.Step) / float64(m.s.MaxSteps))
		}

	case doneMsg:
		m.done = true
		m.res = msg.res
		m.err = msg.err
		if m.quitting {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *dashboardModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("preCICE solver dummy"))
	b.WriteString(" ")
	b.WriteString(m.s.Participant)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s\n",
		labelStyle.Render("mesh"), m.s.Mesh,
		labelStyle.Render("engine"), m.s.Engine,
		labelStyle.Render("protocol"), m.s.Protocol)
	fmt.Fprintf(&b, "%s %s -> %s\n\n",
		labelStyle.Render("data"), m.s.ReadData, m.s.WriteData)

	if !m.done {
		fmt.Fprintf(&b, "%s step %d  t = %.6g\n", m.spinner.View(), m.last.Step, m.last.Time)
	}
	if m.s.MaxSteps > 0 {
		b.WriteString(m.progress.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, e := range m.events {
		line := fmt.Sprintf("%4d  t=%-10.6g %-20s", e.Step, e.Time, e.Kind)
		if len(e.Values) > 0 {
			line += " " + summarize(e.Values)
		}
		if e.Kind == driver.EventCheckpointSaved || e.Kind == driver.EventCheckpointRestored {
			line = checkpointStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	case m.done:
		b.WriteString(resultStyle.Render(fmt.Sprintf("Coupling finished: %d steps, t = %.6g, %d checkpoint rollbacks",
			m.res.Steps, m.res.Time, m.res.Restores)))
		b.WriteString("\n\n")
	}

	if m.done {
		b.WriteString(helpStyle.Render("q quit"))
	} else {
		b.WriteString(helpStyle.Render("q stop and finalize"))
	}
	return b.String()
}

// summarize renders the first values of a buffer.
func summarize(values []float64) string {
	const shown = 4
	parts := make([]string, 0, shown+1)
	for i, v := range values {
		if i == shown {
			parts = append(parts, fmt.Sprintf("... (%d)", len(values)))
			break
		}
		parts = append(parts, fmt.Sprintf("%.4g", v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func runInteractive(ctx context.Context, s config.Settings) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := open(ctx, s, zap.NewNop())
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, sess.close(context.WithoutCancel(ctx))) }()

	m := newDashboardModel(s, cancel)
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		res, err := sess.drive(ctx, func(e driver.Event) { p.Send(eventMsg(e)) })
		p.Send(doneMsg{res: res, err: err})
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return m.err
}
