// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/chatbatch/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelEvents(t *testing.T) {
	m := NewModel("reviews", nil)

	m.Update(EventMsg{Event: progress.Event{Type: progress.EventStarted, Current: 0, Total: 4}})
	m.Update(EventMsg{Event: progress.Event{Type: progress.EventChunkCommitted, Current: 2, Total: 4, Chunk: 0, Attempt: 1}})
	m.Update(EventMsg{Event: progress.Event{Type: progress.EventChunkRetry, Current: 2, Total: 4, Chunk: 1, Attempt: 1, Message: "boom\nmore"}})

	assert.Equal(t, 2, m.current)
	assert.Equal(t, 4, m.total)
	assert.Equal(t, 1, m.retries)
	assert.Equal(t, "chunk 1 attempt 1 failed: boom", m.status)

	view := m.View()
	assert.Contains(t, view, "reviews")
	assert.Contains(t, view, "2 / 4")
	assert.Contains(t, view, "1 chunk retries")
}

func TestModelInterruptThenExit(t *testing.T) {
	calls := 0
	m := NewModel("run", func() { calls++ })

	_, cmd := m.Update(key("q"))
	assert.Nil(t, cmd, "the first q only asks the run to stop")
	assert.Equal(t, PhaseStopping, m.Phase())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, calls, "the interrupt fires once")
	assert.Contains(t, m.View(), "interrupt requested")

	m.Update(FinishedMsg{Outcome: "interrupted"})
	assert.Equal(t, PhaseDone, m.Phase())
	assert.Contains(t, m.View(), "interrupted")
	assert.Contains(t, m.View(), "q: exit")

	_, cmd = m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModelFailure(t *testing.T) {
	m := NewModel("run", nil)

	m.Update(FinishedMsg{Outcome: "failed", Err: errors.New("chunk 3 failed\ndetails")})
	assert.Contains(t, m.View(), "failed: chunk 3 failed")
}

func TestModelWindowSize(t *testing.T) {
	m := NewModel("run", nil)

	m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	assert.Equal(t, maxBarWidth, m.bar.Width)

	m.Update(tea.WindowSizeMsg{Width: 12, Height: 40})
	assert.Equal(t, 10, m.bar.Width)
}

func TestReporterClosed(t *testing.T) {
	r := NewReporter(nil)
	r.Report(progress.Event{Type: progress.EventStarted})
	r.Close()
	r.Report(progress.Event{Type: progress.EventCompleted})
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "running", PhaseRunning.String())
	assert.Equal(t, "stopping", PhaseStopping.String())
	assert.Equal(t, "done", PhaseDone.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
