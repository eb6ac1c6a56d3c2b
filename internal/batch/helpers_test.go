// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/chatbatch/internal/progress"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
)

const testCheckpoint = "/runs/batch.json"

func memFs(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	stubs := gostub.Stub(&FsFactory, func() afero.Fs {
		return fs
	})

	t.Cleanup(stubs.Reset)

	return fs
}

func quietCtx() context.Context {
	return ctxlog.New(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// recorder keeps every event and can run a hook on each one, synchronously.
type recorder struct {
	mu     sync.Mutex
	events []progress.Event
	hook   func(progress.Event)
}

func (r *recorder) Report(e progress.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()

	if r.hook != nil {
		r.hook(e)
	}
}

func (r *recorder) Close() {}

func (r *recorder) types() []progress.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := make([]progress.EventType, len(r.events))
	for i, e := range r.events {
		ts[i] = e.Type
	}

	return ts
}

func (r *recorder) count(t progress.EventType) int {
	n := 0

	for _, et := range r.types() {
		if et == t {
			n++
		}
	}

	return n
}

// interruptOn returns a channel closed the first time pred matches an event.
func interruptOn(rec *recorder, pred func(progress.Event) bool) <-chan struct{} {
	ch := make(chan struct{})
	once := sync.Once{}

	rec.hook = func(e progress.Event) {
		if pred(e) {
			once.Do(func() { close(ch) })
		}
	}

	return ch
}

type cueRecorder struct {
	cues []progress.Cue
}

func (c *cueRecorder) Notify(cue progress.Cue) {
	c.cues = append(c.cues, cue)
}
