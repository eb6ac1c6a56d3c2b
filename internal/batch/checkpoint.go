// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/spf13/afero"
)

// FsFactory creates the file system used by checkpoint stores.
// Tests replace it with an in-memory file system.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

const checkpointPerm = 0o600

// Store reads and writes a single checkpoint file.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a store for the checkpoint at path.
func NewStore(path string) *Store {
	return &Store{fs: FsFactory(), path: filepath.Clean(path)}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint.
func (s *Store) Load(ctx context.Context) (*State, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCheckpointNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	st := new(State)
	if err := json.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptCheckpoint, s.path, err)
	}

	if err := Verify(st); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptCheckpoint, s.path, err)
	}

	ctxlog.Debug(ctx, "checkpoint loaded", "path", s.path, "cursor", st.Cursor, "total", len(st.Inputs))

	return st, nil
}

// Save writes the state to a temporary file next to the checkpoint and renames it into place.
// It does not observe ctx cancellation so progress is still recorded while shutting down.
func (s *Store) Save(ctx context.Context, st *State) error {
	st.UpdatedAt = time.Now().UTC()
	st.Checkpoint = s.path

	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("create checkpoint directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temporary checkpoint: %w", err)
	}

	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()

		cleanup()

		return fmt.Errorf("write temporary checkpoint: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		cleanup()

		return fmt.Errorf("sync temporary checkpoint: %w", err)
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temporary checkpoint: %w", err)
	}

	if err := s.fs.Chmod(tmpName, checkpointPerm); err != nil {
		ctxlog.Debug(ctx, "cannot set checkpoint permissions", "path", tmpName, "error", err)
	}

	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace checkpoint %s: %w", s.path, err)
	}

	ctxlog.Debug(ctx, "checkpoint saved", "path", s.path, "cursor", st.Cursor)

	return nil
}

// Discard removes the checkpoint. A missing file is not an error.
func (s *Store) Discard(ctx context.Context) error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checkpoint %s: %w", s.path, err)
	}

	ctxlog.Debug(ctx, "checkpoint discarded", "path", s.path)

	return nil
}

// Resumption classifies the checkpoint found by Open.
type Resumption int

const (
	// ResumeFresh means no checkpoint existed.
	ResumeFresh Resumption = iota
	// ResumeStale means a checkpoint existed but was discarded.
	ResumeStale
	// ResumeContinue means the stored state is reused.
	ResumeContinue
)

// String implements the Stringer interface for Resumption.
func (r Resumption) String() string {
	switch r {
	case ResumeFresh:
		return "fresh"
	case ResumeStale:
		return "stale"
	case ResumeContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// Open returns the state to run for inputs.
// A stored state is resumed only when its inputs and decoding mode match, and it then takes the
// execution settings of cfg. Anything else is discarded and a new state is returned.
func Open(ctx context.Context, store *Store, inputs []chat.Prompt, cfg Config) (*State, Resumption, error) {
	logger := ctxlog.Logger(ctx).With("checkpoint", store.Path())

	st, err := store.Load(ctx)

	switch {
	case errors.Is(err, ErrCheckpointNotFound):
		return NewState(inputs, cfg, store.Path()), ResumeFresh, nil
	case errors.Is(err, ErrCorruptCheckpoint):
		logger.Warn("discarding unreadable checkpoint", "error", err)
		return fresh(ctx, store, inputs, cfg)
	case err != nil:
		return nil, ResumeFresh, err
	}

	if digest := InputsDigest(inputs); InputsDigest(st.Inputs) != digest {
		logger.Warn("inputs differ from checkpoint, starting over",
			"stored", len(st.Inputs), "requested", len(inputs))

		return fresh(ctx, store, inputs, cfg)
	}

	if st.Config.Mode != cfg.Mode {
		logger.Warn("decoding mode differs from checkpoint, starting over",
			"stored", st.Config.Mode, "requested", cfg.Mode)

		return fresh(ctx, store, inputs, cfg)
	}

	st.Config = cfg
	st.Checkpoint = store.Path()
	st.Meta.ActiveWorkers = 0

	logger.Info("resuming from checkpoint", "cursor", st.Cursor, "total", len(st.Inputs), "id", st.ID)

	return st, ResumeContinue, nil
}

func fresh(ctx context.Context, store *Store, inputs []chat.Prompt, cfg Config) (*State, Resumption, error) {
	if err := store.Discard(ctx); err != nil {
		return nil, ResumeStale, err
	}

	return NewState(inputs, cfg, store.Path()), ResumeStale, nil
}
