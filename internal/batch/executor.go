// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"time"

	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/chatbatch/internal/progress"
)

// Outcome is how an executor stopped.
type Outcome int

const (
	// OutcomeCompleted means every job has an output.
	OutcomeCompleted Outcome = iota
	// OutcomeInterrupted means the run stopped cleanly and can be resumed.
	OutcomeInterrupted
	// OutcomeFailed means the run aborted with an error and can be resumed.
	OutcomeFailed
)

// String implements the Stringer interface for Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeInterrupted:
		return "interrupted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Env is what an executor needs besides the state and the capability.
type Env struct {
	Store     *Store
	Reporter  progress.Reporter // optional
	Interrupt <-chan struct{}   // optional, closed to request a clean stop
}

func (e Env) report(st *State, t progress.EventType, mut func(*progress.Event)) {
	if e.Reporter == nil {
		return
	}

	ev := progress.Event{
		Type:      t,
		RunID:     st.ID.String(),
		Current:   st.Cursor,
		Total:     len(st.Inputs),
		Chunk:     -1,
		Timestamp: time.Now(),
	}

	if mut != nil {
		mut(&ev)
	}

	e.Reporter.Report(ev)
}

// stopRequested reports whether the interrupt has fired or ctx is done.
func (e Env) stopRequested(ctx context.Context) bool {
	select {
	case <-e.Interrupt:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// interrupted persists the state and reports the clean stop.
func (e Env) interrupted(ctx context.Context, st *State) (Outcome, error) {
	if err := e.Store.Save(ctx, st); err != nil {
		return OutcomeFailed, err
	}

	ctxlog.Warn(ctx, "run interrupted", "completed", st.Cursor, "total", len(st.Inputs))

	e.report(st, progress.EventInterrupted, nil)

	return OutcomeInterrupted, nil
}

// failed persists the state and reports err. A save error is joined to err.
func (e Env) failed(ctx context.Context, st *State, err error) (Outcome, error) {
	if serr := e.Store.Save(ctx, st); serr != nil {
		ctxlog.Error(ctx, "cannot save checkpoint after failure", "error", serr)
	}

	e.report(st, progress.EventFailed, func(ev *progress.Event) {
		ev.Err = err
		ev.Message = err.Error()
	})

	return OutcomeFailed, err
}

func (e Env) completed(ctx context.Context, st *State) (Outcome, error) {
	ctxlog.Info(ctx, "run completed", "total", len(st.Inputs))

	e.report(st, progress.EventCompleted, nil)

	return OutcomeCompleted, nil
}
