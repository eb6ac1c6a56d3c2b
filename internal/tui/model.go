// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"sync"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/chatbatch/internal/progress"
)

const (
	barPadding  = 4
	maxBarWidth = 80
)

// Phase is the lifecycle of the view.
type Phase int

const (
	// PhaseRunning means the batch is making progress.
	PhaseRunning Phase = iota
	// PhaseStopping means an interrupt was requested and the run has not stopped yet.
	PhaseStopping
	// PhaseDone means the run has returned.
	PhaseDone
)

// String implements the Stringer interface for Phase.
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title   lipgloss.Style
	Status  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Failed  lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			MarginTop(1),
	}
}

// EventMsg wraps a progress event for the tea framework.
type EventMsg struct {
	Event progress.Event
}

// FinishedMsg is sent when the run has returned.
type FinishedMsg struct {
	Outcome string
	Err     error
}

// Model is the TUI state.
type Model struct {
	title     string
	interrupt func()
	once      sync.Once

	phase    Phase
	current  int
	total    int
	retries  int
	status   string
	outcome  string
	err      error
	width    int
	quitting bool

	bar     bar.Model
	spinner spinner.Model
	styles  *Styles
}

// NewModel returns a model. interrupt is called at most once, when the user asks to stop.
func NewModel(title string, interrupt func()) *Model {
	if interrupt == nil {
		interrupt = func() {}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		title:     title,
		interrupt: interrupt,
		status:    "starting",
		bar:       bar.New(bar.WithDefaultGradient()),
		spinner:   sp,
		styles:    NewStyles(),
	}
}

// Phase returns the current phase.
func (m *Model) Phase() Phase {
	return m.phase
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-barPadding*2, 10), maxBarWidth) //nolint:mnd

		return m, nil

	case spinner.TickMsg:
		if m.phase == PhaseDone {
			return m, nil
		}

		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case EventMsg:
		m.applyEvent(msg.Event)
		return m, nil

	case FinishedMsg:
		m.phase = PhaseDone
		m.outcome = msg.Outcome
		m.err = msg.Err

		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if m.phase == PhaseDone {
			m.quitting = true
			return m, tea.Quit
		}

		m.once.Do(m.interrupt)
		m.phase = PhaseStopping
		m.status = "stopping after the current unit of work"
	}

	return m, nil
}

func (m *Model) applyEvent(e progress.Event) {
	m.current = e.Current
	m.total = e.Total

	switch e.Type {
	case progress.EventStarted:
		m.status = fmt.Sprintf("resuming at %d of %d", e.Current, e.Total)
	case progress.EventJobCompleted:
		m.status = fmt.Sprintf("job %d done", e.Current)
	case progress.EventChunkCommitted:
		m.status = fmt.Sprintf("chunk %d committed after %d attempt(s)", e.Chunk, e.Attempt)
	case progress.EventChunkRetry:
		m.retries++
		m.status = fmt.Sprintf("chunk %d attempt %d failed: %s", e.Chunk, e.Attempt, firstLine(e.Message))
	case progress.EventInterrupted:
		m.status = "interrupted"
	case progress.EventFailed:
		m.status = "failed: " + firstLine(e.Message)
	case progress.EventCompleted:
		m.status = "all jobs done"
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.styles.Title.Render(m.title))
	b.WriteString("\n")

	percent := 0.0
	if m.total > 0 {
		percent = float64(m.current) / float64(m.total)
	}

	b.WriteString(m.bar.ViewAs(percent))
	b.WriteString("\n\n")

	if m.phase != PhaseDone {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	}

	fmt.Fprintf(&b, "%d / %d", m.current, m.total)

	if m.retries > 0 {
		b.WriteString(m.styles.Warning.Render(fmt.Sprintf("  %d chunk retries", m.retries)))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Status.Render(m.status))
	b.WriteString("\n")

	switch {
	case m.phase == PhaseDone && m.err != nil:
		b.WriteString(m.styles.Failed.Render("✗ " + m.outcome + ": " + firstLine(m.err.Error())))
		b.WriteString("\n")
	case m.phase == PhaseDone:
		b.WriteString(m.styles.Success.Render("✓ " + m.outcome))
		b.WriteString("\n")
	case m.phase == PhaseStopping:
		b.WriteString(m.styles.Warning.Render("interrupt requested"))
		b.WriteString("\n")
	}

	help := "q: stop after the current unit"
	if m.phase == PhaseDone {
		help = "q: exit"
	}

	b.WriteString(m.styles.Help.Render(help))

	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
