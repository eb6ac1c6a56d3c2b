// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/chatbatch/internal/batch"
	"github.com/matt-FFFFFF/chatbatch/internal/progress"
)

var _ progress.Reporter = (*Reporter)(nil)

// Reporter forwards progress events to a running TUI program.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewReporter creates a reporter sending to program.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{program: program}
}

// Report implements progress.Reporter.
func (r *Reporter) Report(event progress.Event) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.closed || r.program == nil {
		return
	}

	r.program.Send(EventMsg{Event: event})
}

// Close implements progress.Reporter.
func (r *Reporter) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.closed = true
}

// Runner owns the TUI program for the length of one batch run.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
}

// NewRunner creates a runner. interrupt is called when the user asks to stop.
func NewRunner(ctx context.Context, title string, interrupt func(), opts ...tea.ProgramOption) *Runner {
	model := NewModel(title, interrupt)
	program := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: NewReporter(program),
	}
}

// Reporter returns the progress reporter feeding this runner.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Run starts the TUI, calls work with the runner's reporter and returns what work returned.
// The TUI stays open after work returns until the user exits.
func (r *Runner) Run(ctx context.Context, work func(context.Context, progress.Reporter) (*batch.Result, error)) (*batch.Result, error) {
	type outcome struct {
		res *batch.Result
		err error
	}

	done := make(chan outcome, 1)
	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	go func() {
		res, err := work(ctx, r.reporter)
		done <- outcome{res: res, err: err}
	}()

	var (
		out    outcome
		tuiErr error
	)

	select {
	case out = <-done:
		msg := FinishedMsg{Err: out.err, Outcome: batch.OutcomeFailed.String()}
		if out.res != nil {
			msg.Outcome = out.res.Outcome.String()
		}

		r.program.Send(msg)

		tuiErr = <-tuiDone
	case tuiErr = <-tuiDone:
		out = <-done
	}

	r.reporter.Close()

	if out.err != nil {
		return out.res, out.err
	}

	return out.res, tuiErr
}
