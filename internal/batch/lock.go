// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/spf13/afero"
)

const lockOwnerFile = "owner.json"

// LockOwner describes the process holding a checkpoint lock.
type LockOwner struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LockPath returns the lock directory guarding the checkpoint.
func (s *Store) LockPath() string {
	return s.path + ".lock"
}

// Lock makes this process the only coordinator writing the checkpoint.
// A lock left by a process on this host that is no longer running is taken over.
// The returned function releases the lock.
func (s *Store) Lock(ctx context.Context) (func() error, error) {
	dir := s.LockPath()

	if err := s.fs.MkdirAll(filepath.Dir(dir), 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}

	if err := s.fs.Mkdir(dir, 0o755); err != nil { //nolint:mnd
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("acquire lock %s: %w", dir, err)
		}

		owner, ok := s.lockOwner()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}

		if owner.Hostname != hostname() || ProcessAlive(owner.PID) {
			return nil, fmt.Errorf("%w: %s (pid=%d host=%s since %s)",
				ErrLocked, dir, owner.PID, owner.Hostname, owner.CreatedAt.Format(time.RFC3339))
		}

		ctxlog.Warn(ctx, "removing stale checkpoint lock",
			"lock", dir, "pid", owner.PID, "since", owner.CreatedAt.Format(time.RFC3339))

		if err := s.fs.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("remove stale lock %s: %w", dir, err)
		}

		if err := s.fs.Mkdir(dir, 0o755); err != nil { //nolint:mnd
			if errors.Is(err, fs.ErrExist) {
				return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
			}

			return nil, fmt.Errorf("acquire lock %s: %w", dir, err)
		}
	}

	owner := LockOwner{
		PID:       os.Getpid(),
		Hostname:  hostname(),
		CreatedAt: time.Now().UTC(),
	}

	b, err := json.Marshal(owner)
	if err == nil {
		err = afero.WriteFile(s.fs, filepath.Join(dir, lockOwnerFile), b, checkpointPerm)
	}

	if err != nil {
		_ = s.fs.RemoveAll(dir)
		return nil, fmt.Errorf("write lock owner %s: %w", dir, err)
	}

	release := func() error {
		if err := s.fs.RemoveAll(dir); err != nil {
			return fmt.Errorf("release lock %s: %w", dir, err)
		}

		return nil
	}

	return release, nil
}

// lockOwner reads the owner of an existing lock. ok is false when it cannot be read.
func (s *Store) lockOwner() (LockOwner, bool) {
	var owner LockOwner

	b, err := afero.ReadFile(s.fs, filepath.Join(s.LockPath(), lockOwnerFile))
	if err != nil || json.Unmarshal(b, &owner) != nil || owner.PID <= 0 {
		return owner, false
	}

	return owner, true
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || strings.TrimSpace(h) == "" {
		return "unknown"
	}

	return strings.TrimSpace(h)
}
