// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoad(t *testing.T) {
	fs := memFs(t)
	ctx := quietCtx()
	store := NewStore(testCheckpoint)

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrCheckpointNotFound)

	st := NewState(chat.TextPrompts("a", "b"), Config{Mode: chat.ModeStructured}, "")
	require.NoError(t, Advance(st, &Output{Structured: map[string]any{"n": 1.0}}))
	require.NoError(t, store.Save(ctx, st))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, 1, got.Cursor)
	assert.Equal(t, testCheckpoint, got.Checkpoint)
	assert.Equal(t, chat.ModeStructured, got.Config.Mode)
	assert.Equal(t, map[string]any{"n": 1.0}, got.Outputs[0].Structured)
	assert.Nil(t, got.Outputs[1])

	entries, err := afero.ReadDir(fs, "/runs")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	require.NoError(t, store.Discard(ctx))
	require.NoError(t, store.Discard(ctx))

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestStoreLoadCorrupt(t *testing.T) {
	fs := memFs(t)
	ctx := quietCtx()

	require.NoError(t, afero.WriteFile(fs, testCheckpoint, []byte("{not json"), 0o600))

	_, err := NewStore(testCheckpoint).Load(ctx)
	require.ErrorIs(t, err, ErrCorruptCheckpoint)

	require.NoError(t, afero.WriteFile(fs, testCheckpoint, []byte(`{"version":1,"inputs":[{"text":"a"}],"outputs":[],"cursor":0}`), 0o600))

	_, err = NewStore(testCheckpoint).Load(ctx)
	require.ErrorIs(t, err, ErrCorruptCheckpoint)
}

func TestOpen(t *testing.T) {
	ctx := quietCtx()
	inputs := chat.TextPrompts("a", "b", "c")

	t.Run("fresh", func(t *testing.T) {
		memFs(t)

		st, r, err := Open(ctx, NewStore(testCheckpoint), inputs, Config{})
		require.NoError(t, err)
		assert.Equal(t, ResumeFresh, r)
		assert.Zero(t, st.Cursor)
	})

	t.Run("continue applies new execution settings", func(t *testing.T) {
		memFs(t)

		store := NewStore(testCheckpoint)
		old := NewState(inputs, Config{Workers: 2}, testCheckpoint)
		old.Meta.ActiveWorkers = 2
		require.NoError(t, Advance(old, &Output{Text: "x"}))
		require.NoError(t, store.Save(ctx, old))

		st, r, err := Open(ctx, store, chat.TextPrompts("a", "b", "c"), Config{Workers: 8, Strategy: StrategyParallel})
		require.NoError(t, err)
		assert.Equal(t, ResumeContinue, r)
		assert.Equal(t, old.ID, st.ID)
		assert.Equal(t, 1, st.Cursor)
		assert.Equal(t, 8, st.Config.Workers)
		assert.Equal(t, StrategyParallel, st.Config.Strategy)
		assert.Zero(t, st.Meta.ActiveWorkers)
	})

	t.Run("different inputs are stale", func(t *testing.T) {
		memFs(t)

		store := NewStore(testCheckpoint)
		old := NewState(inputs, Config{}, testCheckpoint)
		require.NoError(t, Advance(old, &Output{Text: "x"}))
		require.NoError(t, store.Save(ctx, old))

		st, r, err := Open(ctx, store, chat.TextPrompts("a", "b", "d"), Config{})
		require.NoError(t, err)
		assert.Equal(t, ResumeStale, r)
		assert.NotEqual(t, old.ID, st.ID)
		assert.Zero(t, st.Cursor)

		_, err = store.Load(ctx)
		require.ErrorIs(t, err, ErrCheckpointNotFound)
	})

	t.Run("different mode is stale", func(t *testing.T) {
		memFs(t)

		store := NewStore(testCheckpoint)
		require.NoError(t, store.Save(ctx, NewState(inputs, Config{}, testCheckpoint)))

		_, r, err := Open(ctx, store, inputs, Config{Mode: chat.ModeStructured})
		require.NoError(t, err)
		assert.Equal(t, ResumeStale, r)
	})

	t.Run("corrupt is stale", func(t *testing.T) {
		fs := memFs(t)
		require.NoError(t, afero.WriteFile(fs, testCheckpoint, []byte("garbage"), 0o600))

		st, r, err := Open(ctx, NewStore(testCheckpoint), inputs, Config{})
		require.NoError(t, err)
		assert.Equal(t, ResumeStale, r)
		assert.Len(t, st.Outputs, 3)
	})
}

func TestLock(t *testing.T) {
	memFs(t)

	store := NewStore(testCheckpoint)

	unlock, err := store.Lock(quietCtx())
	require.NoError(t, err)

	_, err = NewStore(testCheckpoint).Lock(quietCtx())
	require.ErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "pid=")

	require.NoError(t, unlock())

	unlock, err = store.Lock(quietCtx())
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestStoreKeepsEmptyStructuredOutput(t *testing.T) {
	memFs(t)

	ctx := quietCtx()
	store := NewStore(testCheckpoint)

	st := NewState(chat.TextPrompts("a", "b"), Config{Mode: chat.ModeStructured}, "")
	require.NoError(t, Advance(st,
		&Output{Structured: map[string]any{}},
		&Output{Text: "plain"},
	))

	live := Texts(st)
	require.False(t, live.IsFlat())

	require.NoError(t, store.Save(ctx, st))

	got, err := store.Load(ctx)
	require.NoError(t, err)

	assert.NotNil(t, got.Outputs[0].Structured)
	assert.Nil(t, got.Outputs[1].Structured)
	assert.Equal(t, live, Texts(got))
}

func staleOwner(t *testing.T, fs afero.Fs, owner LockOwner) {
	t.Helper()

	b, err := json.Marshal(owner)
	require.NoError(t, err)
	require.NoError(t, fs.MkdirAll(testCheckpoint+".lock", 0o755))
	require.NoError(t, afero.WriteFile(fs, testCheckpoint+".lock/owner.json", b, 0o600))
}

func TestLockTakesOverDeadOwner(t *testing.T) {
	fs := memFs(t)
	stubs := gostub.Stub(&ProcessAlive, func(pid int) bool { return pid != 999999 })
	defer stubs.Reset()

	staleOwner(t, fs, LockOwner{PID: 999999, Hostname: hostname(), CreatedAt: time.Now()})

	unlock, err := NewStore(testCheckpoint).Lock(quietCtx())
	require.NoError(t, err)

	b, err := afero.ReadFile(fs, testCheckpoint+".lock/owner.json")
	require.NoError(t, err)

	var owner LockOwner
	require.NoError(t, json.Unmarshal(b, &owner))
	assert.Equal(t, os.Getpid(), owner.PID)

	require.NoError(t, unlock())
}

func TestLockKeepsLiveOrForeignOwner(t *testing.T) {
	t.Run("live process", func(t *testing.T) {
		fs := memFs(t)
		stubs := gostub.Stub(&ProcessAlive, func(int) bool { return true })
		defer stubs.Reset()

		staleOwner(t, fs, LockOwner{PID: 999999, Hostname: hostname(), CreatedAt: time.Now()})

		_, err := NewStore(testCheckpoint).Lock(quietCtx())
		require.ErrorIs(t, err, ErrLocked)
	})

	t.Run("other host", func(t *testing.T) {
		fs := memFs(t)
		stubs := gostub.Stub(&ProcessAlive, func(int) bool { return false })
		defer stubs.Reset()

		staleOwner(t, fs, LockOwner{PID: 999999, Hostname: "elsewhere", CreatedAt: time.Now()})

		_, err := NewStore(testCheckpoint).Lock(quietCtx())
		require.ErrorIs(t, err, ErrLocked)
		assert.Contains(t, err.Error(), "host=elsewhere")
	})

	t.Run("unreadable owner", func(t *testing.T) {
		fs := memFs(t)
		require.NoError(t, fs.MkdirAll(testCheckpoint+".lock", 0o755))

		_, err := NewStore(testCheckpoint).Lock(quietCtx())
		require.ErrorIs(t, err, ErrLocked)
	})
}
