// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/chatbatch/internal/progress"
)

// RunParallel splits the remaining prompts into chunks and runs each chunk on a worker pool.
// A chunk is committed and saved only when every job in it succeeded, otherwise the whole chunk
// is dispatched again until Config.Retry.MaxTries is reached.
// The interrupt is checked at chunk boundaries and the chunk in flight is discarded.
func RunParallel(ctx context.Context, env Env, factory chat.Factory, st *State) (Outcome, error) {
	if Done(st) {
		return OutcomeCompleted, nil
	}

	spans := Partition(st.Cursor, len(st.Inputs), st.Config.ChunkSize)

	pool, err := AcquirePool(ctx, factory, st.Config.Workers)
	if err != nil {
		return env.failed(ctx, st, err)
	}

	defer pool.Release()

	st.Meta.ActiveWorkers = pool.Size()

	env.report(st, progress.EventStarted, nil)

	outcome, err := runChunks(ctx, env, pool, st, spans)

	pool.Release()

	st.Meta.ActiveWorkers = 0
	if serr := env.Store.Save(ctx, st); serr != nil && err == nil {
		return OutcomeFailed, serr
	}

	return outcome, err
}

func runChunks(ctx context.Context, env Env, pool *Pool, st *State, spans []Span) (Outcome, error) {
	logger := ctxlog.Logger(ctx).With("strategy", StrategyParallel.String())
	policy := st.Config.Retry

	for _, span := range spans {
		st.Meta.Retries = 0
		chunkLog := logger.With("chunk", span.Index, "start", span.Start+1, "end", span.End)

		for attempt := 1; ; attempt++ {
			if env.stopRequested(ctx) {
				return env.interrupted(ctx, st)
			}

			outs, err := pool.Dispatch(ctx, span, st.Inputs, st.Config.Mode)
			if err == nil {
				err = validateChunk(outs, span)
			}

			if env.stopRequested(ctx) {
				chunkLog.Debug("discarding chunk in flight")
				return env.interrupted(ctx, st)
			}

			if err == nil {
				if err := Advance(st, outs...); err != nil {
					return env.failed(ctx, st, err)
				}

				if err := env.Store.Save(ctx, st); err != nil {
					return env.failed(ctx, st, err)
				}

				chunkLog.Debug("chunk committed", "attempt", attempt)

				env.report(st, progress.EventChunkCommitted, func(ev *progress.Event) {
					ev.Chunk = span.Index
					ev.Attempt = attempt
				})

				break
			}

			st.Meta.Retries = attempt
			st.Meta.FailedChunks = append(st.Meta.FailedChunks, ChunkFailure{
				Chunk:   span.Index,
				Start:   span.Start,
				End:     span.End,
				Attempt: attempt,
				Reason:  err.Error(),
				At:      time.Now().UTC(),
			})

			if attempt >= policy.MaxTries {
				chunkLog.Error("chunk retries exhausted", "attempts", attempt, "error", err)

				return env.failed(ctx, st, &ChunkError{Chunk: span.Index, Span: span, Attempts: attempt, Err: err})
			}

			if err := env.Store.Save(ctx, st); err != nil {
				return env.failed(ctx, st, err)
			}

			chunkLog.Warn("chunk failed, retrying", "attempt", attempt, "max_tries", policy.MaxTries, "error", err)

			env.report(st, progress.EventChunkRetry, func(ev *progress.Event) {
				ev.Chunk = span.Index
				ev.Attempt = attempt
				ev.Err = err
				ev.Message = err.Error()
			})

			if !env.wait(ctx, policy.Backoff()) {
				return env.interrupted(ctx, st)
			}
		}
	}

	return env.completed(ctx, st)
}

// wait pauses for d and returns false if the interrupt fires or ctx ends first.
func (e Env) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-e.Interrupt:
		return false
	case <-ctx.Done():
		return false
	}
}

// validateChunk rejects a dispatch that did not fill every slot.
func validateChunk(outs []*Output, span Span) error {
	if len(outs) != span.Len() {
		return fmt.Errorf("%w: %d results for %d jobs", ErrChunkIncomplete, len(outs), span.Len())
	}

	for i, o := range outs {
		if o == nil {
			return fmt.Errorf("%w: job %d has no result", ErrChunkIncomplete, span.Start+i+1)
		}
	}

	return nil
}
