// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/chatbatch/internal/progress"
)

// Request describes one call to Run.
type Request struct {
	Inputs     []chat.Prompt
	Config     Config
	Checkpoint string
	Factory    chat.Factory
	Reporter   progress.Reporter // optional, events are discarded when nil
	Notifier   progress.Notifier // used when Config.Notify is set, silent when nil
	Interrupt  <-chan struct{}   // optional
}

// Result is what Run returns. State is set whenever the run got as far as opening the checkpoint.
type Result struct {
	State      *State
	Outcome    Outcome
	Resumption Resumption
}

// Run validates the request, opens or resumes the checkpoint and drives it to completion,
// interruption or failure. Calling Run again with the same request continues where it stopped.
// An interrupt is not an error.
func Run(ctx context.Context, req Request) (*Result, error) {
	if err := ValidateInputs(req.Inputs); err != nil {
		return nil, err
	}

	cfg := req.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if req.Checkpoint == "" {
		return nil, fmt.Errorf("%w: no checkpoint path", ErrInvalidConfig)
	}

	if req.Factory == nil {
		return nil, fmt.Errorf("%w: no chat capability", ErrInvalidConfig)
	}

	if req.Reporter == nil {
		req.Reporter = progress.NewNullReporter()
	}

	if req.Notifier == nil {
		req.Notifier = progress.NopNotifier{}
	}

	store := NewStore(req.Checkpoint)

	unlock, err := store.Lock(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := unlock(); err != nil {
			ctxlog.Warn(ctx, "cannot release checkpoint lock", "error", err)
		}
	}()

	st, resumption, err := Open(ctx, store, req.Inputs, cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{State: st, Resumption: resumption}

	ctx = ctxlog.New(ctx, ctxlog.Logger(ctx).With("run", st.ID.String()))

	if err := store.Save(ctx, st); err != nil {
		return res, err
	}

	env := Env{Store: store, Reporter: req.Reporter, Interrupt: req.Interrupt}

	ctxlog.Info(ctx, "starting run",
		"strategy", cfg.Strategy.String(),
		"mode", cfg.Mode.String(),
		"resumption", resumption.String(),
		"completed", st.Cursor,
		"total", len(st.Inputs))

	switch cfg.Strategy {
	case StrategyParallel:
		res.Outcome, err = RunParallel(ctx, env, req.Factory, st)
	default:
		res.Outcome, err = runSequential(ctx, env, req.Factory, st)
	}

	if cfg.Notify {
		req.Notifier.Notify(cueFor(res.Outcome))
	}

	return res, err
}

func runSequential(ctx context.Context, env Env, factory chat.Factory, st *State) (Outcome, error) {
	if Done(st) {
		return OutcomeCompleted, nil
	}

	capability, err := factory.New(ctx)
	if err != nil {
		return env.failed(ctx, st, errors.Join(ErrInvalidConfig, err))
	}

	return RunSequential(ctx, env, capability, st)
}

func cueFor(o Outcome) progress.Cue {
	switch o {
	case OutcomeInterrupted:
		return progress.CueInterrupt
	case OutcomeFailed:
		return progress.CueError
	default:
		return progress.CueComplete
	}
}
