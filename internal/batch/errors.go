// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInputs is returned when a run is requested with no prompts.
	ErrNoInputs = errors.New("no inputs supplied")
	// ErrInvalidInput is returned when a prompt cannot be sent.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidConfig is returned when the run configuration is unusable.
	ErrInvalidConfig = errors.New("invalid run configuration")
	// ErrCheckpointNotFound is returned by Load when there is no checkpoint file.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrCorruptCheckpoint is returned by Load when the checkpoint cannot be used.
	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")
	// ErrLocked is returned when another process owns the checkpoint.
	ErrLocked = errors.New("checkpoint is locked by another run")
	// ErrCursorOverflow is returned when outputs would be written past the last input.
	ErrCursorOverflow = errors.New("outputs exceed remaining inputs")
	// ErrNilOutput is returned when Advance is given an empty slot.
	ErrNilOutput = errors.New("nil output")
	// ErrJobFailed is wrapped by JobError.
	ErrJobFailed = errors.New("job failed")
	// ErrChunkIncomplete is returned when a chunk dispatch did not produce every output.
	ErrChunkIncomplete = errors.New("chunk result incomplete")
	// ErrRetriesExhausted is wrapped by ChunkError.
	ErrRetriesExhausted = errors.New("chunk retries exhausted")
	// ErrPoolAcquire is returned when a worker capability cannot be built.
	ErrPoolAcquire = errors.New("cannot acquire worker pool")
	// ErrPoolReleased is returned when a released pool is asked to dispatch.
	ErrPoolReleased = errors.New("worker pool already released")
	// ErrWorkerPanic is returned in place of a panic raised by a capability.
	ErrWorkerPanic = errors.New("worker panicked")
)

// JobError is the fatal error of a sequential run.
type JobError struct {
	Index int
	Total int
	Err   error
}

// Error implements the error interface.
func (e *JobError) Error() string {
	return fmt.Sprintf("job %d of %d failed: %v", e.Index+1, e.Total, e.Err)
}

// Unwrap returns ErrJobFailed and the capability error.
func (e *JobError) Unwrap() []error {
	return []error{ErrJobFailed, e.Err}
}

// ChunkError is the fatal error of a parallel run whose chunk ran out of tries.
// Chunk is relative to the run, Span holds the absolute job range.
type ChunkError struct {
	Chunk    int
	Span     Span
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (jobs %d-%d) failed after %d attempts: %v",
		e.Chunk, e.Span.Start+1, e.Span.End, e.Attempts, e.Err)
}

// Unwrap returns ErrRetriesExhausted and the last failure.
func (e *ChunkError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Err}
}
