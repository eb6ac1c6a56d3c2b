// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/chatbatch/internal/chat"
)

// StateVersion is written to every checkpoint. Loading a different version fails.
const StateVersion = 1

// Strategy selects the executor.
type Strategy int

const (
	// StrategySequential runs one job at a time.
	StrategySequential Strategy = iota
	// StrategyParallel runs chunks of jobs on a worker pool.
	StrategyParallel
)

// String implements the Stringer interface for Strategy.
func (s Strategy) String() string {
	switch s {
	case StrategySequential:
		return "sequential"
	case StrategyParallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "sequential", "serial":
		*s = StrategySequential
	case "parallel":
		*s = StrategyParallel
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, string(b))
	}

	return nil
}

// RetryPolicy bounds how often a failing chunk is dispatched.
// The zero Delay retries immediately.
type RetryPolicy struct {
	MaxTries int           `json:"max_tries"`
	Delay    time.Duration `json:"delay,omitempty"`
	Jitter   float64       `json:"jitter,omitempty"` // fraction of Delay, 0 to 1
}

// Backoff returns the pause before the next try.
func (p RetryPolicy) Backoff() time.Duration {
	if p.Delay <= 0 {
		return 0
	}

	if p.Jitter <= 0 {
		return p.Delay
	}

	j := min(p.Jitter, 1)
	d := p.Delay + time.Duration(float64(p.Delay)*j*(rand.Float64()*2-1)) //nolint:gosec,mnd

	return max(d, 0)
}

// Defaults applied by WithDefaults.
const (
	DefaultWorkers  = 4
	DefaultMaxTries = 3
)

// Config is the run configuration stored with the state.
type Config struct {
	Mode      chat.Mode   `json:"mode"`
	Strategy  Strategy    `json:"strategy"`
	ChunkSize int         `json:"chunk_size,omitempty"`
	Workers   int         `json:"workers,omitempty"`
	Retry     RetryPolicy `json:"retry"`
	Notify    bool        `json:"notify"`
}

// WithDefaults fills zero execution knobs.
func (c Config) WithDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}

	if c.ChunkSize <= 0 {
		c.ChunkSize = c.Workers
	}

	if c.Retry.MaxTries <= 0 {
		c.Retry.MaxTries = DefaultMaxTries
	}

	return c
}

// Validate checks the configuration after defaults have been applied.
func (c Config) Validate() error {
	switch {
	case c.Strategy != StrategySequential && c.Strategy != StrategyParallel:
		return fmt.Errorf("%w: unknown strategy %d", ErrInvalidConfig, c.Strategy)
	case c.Mode != chat.ModeText && c.Mode != chat.ModeStructured:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, c.Mode)
	case c.Strategy == StrategyParallel && c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	case c.Strategy == StrategyParallel && c.ChunkSize < 1:
		return fmt.Errorf("%w: chunk size must be at least 1", ErrInvalidConfig)
	case c.Retry.MaxTries < 1:
		return fmt.Errorf("%w: max tries must be at least 1", ErrInvalidConfig)
	case c.Retry.Delay < 0:
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	case c.Retry.Jitter < 0 || c.Retry.Jitter > 1:
		return fmt.Errorf("%w: retry jitter must be between 0 and 1", ErrInvalidConfig)
	}

	return nil
}

// Output is the result of one job. It is never modified once stored.
type Output struct {
	Text       string         `json:"text,omitempty"`
	Structured map[string]any `json:"structured"`
	Session    chat.Session   `json:"session"`
}

func outputFrom(r chat.Response) *Output {
	return &Output{Text: r.Text, Structured: r.Structured, Session: r.Session}
}

// ChunkFailure records one rejected chunk attempt.
// Chunk is relative to the run that recorded it, Start and End identify the jobs.
type ChunkFailure struct {
	Chunk   int       `json:"chunk"`
	Start   int       `json:"start"`
	End     int       `json:"end"`
	Attempt int       `json:"attempt"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// Meta is the parallel execution metadata.
type Meta struct {
	ActiveWorkers int            `json:"active_workers"`
	FailedChunks  []ChunkFailure `json:"failed_chunks,omitempty"`
	Retries       int            `json:"retries"`
}

// State is the durable record of one batch run.
type State struct {
	Version    int           `json:"version"`
	ID         uuid.UUID     `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Checkpoint string        `json:"checkpoint"`
	Digest     string        `json:"digest"`
	Inputs     []chat.Prompt `json:"inputs"`
	Outputs    []*Output     `json:"outputs"`
	Cursor     int           `json:"cursor"`
	Config     Config        `json:"config"`
	Meta       Meta          `json:"meta"`
}

// NewState returns a state at cursor 0 with one empty slot per input.
func NewState(inputs []chat.Prompt, cfg Config, checkpoint string) *State {
	now := time.Now().UTC()

	return &State{
		Version:    StateVersion,
		ID:         uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
		Checkpoint: checkpoint,
		Digest:     InputsDigest(inputs),
		Inputs:     slices.Clone(inputs),
		Outputs:    make([]*Output, len(inputs)),
		Config:     cfg,
	}
}

// Advance stores outs in the slots starting at the cursor and moves the cursor past them.
// Either every output is stored or none is.
func Advance(st *State, outs ...*Output) error {
	if st.Cursor+len(outs) > len(st.Inputs) {
		return fmt.Errorf("%w: cursor %d + %d outputs > %d inputs", ErrCursorOverflow, st.Cursor, len(outs), len(st.Inputs))
	}

	for i, o := range outs {
		if o == nil {
			return fmt.Errorf("%w: slot %d", ErrNilOutput, st.Cursor+i)
		}
	}

	copy(st.Outputs[st.Cursor:], outs)
	st.Cursor += len(outs)

	return nil
}

// Done reports whether every input has an output.
func Done(st *State) bool {
	return st.Cursor >= len(st.Inputs)
}

// Remaining returns the number of jobs without an output.
func Remaining(st *State) int {
	return len(st.Inputs) - st.Cursor
}

// Verify checks the structural invariants of a state read from disk.
func Verify(st *State) error {
	switch {
	case st.Version != StateVersion:
		return fmt.Errorf("unsupported version %d", st.Version)
	case len(st.Outputs) != len(st.Inputs):
		return fmt.Errorf("%d outputs for %d inputs", len(st.Outputs), len(st.Inputs))
	case st.Cursor < 0 || st.Cursor > len(st.Inputs):
		return fmt.Errorf("cursor %d out of range [0, %d]", st.Cursor, len(st.Inputs))
	}

	for i, o := range st.Outputs {
		if i < st.Cursor && o == nil {
			return fmt.Errorf("slot %d below cursor %d is empty", i, st.Cursor)
		}

		if i >= st.Cursor && o != nil {
			return fmt.Errorf("slot %d at or above cursor %d is set", i, st.Cursor)
		}
	}

	return nil
}

// InputsDigest is a hash of the canonical encoding of the inputs.
func InputsDigest(inputs []chat.Prompt) string {
	h := sha256.New()
	enc := json.NewEncoder(h)

	for _, p := range inputs {
		_ = enc.Encode(p)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// ValidateInputs rejects empty input sets and malformed prompts.
func ValidateInputs(inputs []chat.Prompt) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}

	for i, p := range inputs {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: input %d: %w", ErrInvalidInput, i, err)
		}
	}

	return nil
}
