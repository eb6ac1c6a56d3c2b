// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"sync"
)

// Interrupt is a one shot token asking long running work to stop at the next safe point.
// The zero value is not usable, use NewInterrupt.
type Interrupt struct {
	ch   chan struct{}
	once sync.Once
}

// NewInterrupt returns an untriggered Interrupt.
func NewInterrupt() *Interrupt {
	return &Interrupt{ch: make(chan struct{})}
}

// Trigger fires the interrupt. Calling it more than once is a no-op.
func (i *Interrupt) Trigger() {
	i.once.Do(func() {
		close(i.ch)
	})
}

// Done returns a channel that is closed once the interrupt has been triggered.
func (i *Interrupt) Done() <-chan struct{} {
	return i.ch
}

// Triggered reports whether Trigger has been called.
func (i *Interrupt) Triggered() bool {
	select {
	case <-i.ch:
		return true
	default:
		return false
	}
}

type interruptKey struct{}

// WithInterrupt returns a child context carrying the interrupt.
func WithInterrupt(ctx context.Context, i *Interrupt) context.Context {
	return context.WithValue(ctx, interruptKey{}, i)
}

// InterruptFrom returns the interrupt stored in the context.
// If there is none, a new untriggered interrupt is returned.
func InterruptFrom(ctx context.Context) *Interrupt {
	if i, ok := ctx.Value(interruptKey{}).(*Interrupt); ok && i != nil {
		return i
	}

	return NewInterrupt()
}
