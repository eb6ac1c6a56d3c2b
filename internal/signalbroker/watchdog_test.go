// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func quietCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	return ctxlog.New(ctx, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))), cancel
}

func TestWatch_FirstSignalInterrupts(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := quietCtx(t)
	intr := NewInterrupt()
	sigCh := make(chan os.Signal, 1)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(ctx, sigCh, intr, cancel)
	}()

	sigCh <- os.Interrupt

	select {
	case <-intr.Done():
	case <-time.After(time.Second):
		t.Fatal("interrupt should be triggered after the first signal")
	}

	assert.NoError(t, ctx.Err(), "context should not be cancelled after the first signal")

	cancel()
	wg.Wait()
}

func TestWatch_SecondSignalCancels(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := quietCtx(t)
	intr := NewInterrupt()
	sigCh := make(chan os.Signal, 2)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(ctx, sigCh, intr, cancel)
	}()

	sigCh <- os.Interrupt
	sigCh <- os.Interrupt

	wg.Wait()

	assert.Error(t, ctx.Err())
	assert.True(t, intr.Triggered())
}

func TestWatch_DifferentSignalsNoCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := quietCtx(t)
	intr := NewInterrupt()
	sigCh := make(chan os.Signal, 2)

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(ctx, sigCh, intr, cancel)
	}()

	sigCh <- os.Interrupt
	sigCh <- os.Kill

	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, ctx.Err(), "context should not be cancelled for different signals")

	close(sigCh)
	wg.Wait()
	cancel()
}

func TestInterrupt(t *testing.T) {
	i := NewInterrupt()
	assert.False(t, i.Triggered())

	i.Trigger()
	i.Trigger()
	assert.True(t, i.Triggered())

	ctx := WithInterrupt(context.Background(), i)
	assert.Same(t, i, InterruptFrom(ctx))
	assert.False(t, InterruptFrom(context.Background()).Triggered())
}
