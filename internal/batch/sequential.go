// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/chatbatch/internal/progress"
)

// RunSequential sends the remaining prompts one at a time in order and saves after every job.
// The interrupt is checked between jobs, a call in flight always finishes.
func RunSequential(ctx context.Context, env Env, capability chat.Capability, st *State) (Outcome, error) {
	if Done(st) {
		return OutcomeCompleted, nil
	}

	logger := ctxlog.Logger(ctx).With("strategy", StrategySequential.String())
	total := len(st.Inputs)

	env.report(st, progress.EventStarted, nil)

	for !Done(st) {
		if env.stopRequested(ctx) {
			return env.interrupted(ctx, st)
		}

		i := st.Cursor

		res, err := capability.Respond(ctx, st.Inputs[i], st.Config.Mode)
		if err != nil {
			if ctx.Err() != nil {
				return env.interrupted(ctx, st)
			}

			logger.Error("job failed", "job", i+1, "total", total, "error", err)

			return env.failed(ctx, st, &JobError{Index: i, Total: total, Err: err})
		}

		if err := Advance(st, outputFrom(res)); err != nil {
			return env.failed(ctx, st, err)
		}

		if err := env.Store.Save(ctx, st); err != nil {
			return env.failed(ctx, st, err)
		}

		logger.Debug("job completed", "job", i+1, "total", total)

		env.report(st, progress.EventJobCompleted, nil)
	}

	return env.completed(ctx, st)
}
