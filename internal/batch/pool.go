// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
)

// Pool is a fixed set of workers, each owning its own capability instance.
// It is acquired and released by a single parallel run.
type Pool struct {
	tasks    chan func(chat.Capability)
	wg       sync.WaitGroup
	mu       sync.RWMutex
	released bool
	size     int
}

// AcquirePool builds size capabilities with factory and starts one worker for each.
// If any capability cannot be built no worker is started.
func AcquirePool(ctx context.Context, factory chat.Factory, size int) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: pool size %d", ErrInvalidConfig, size)
	}

	caps := make([]chat.Capability, size)

	for i := range caps {
		c, err := factory.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: worker %d: %w", ErrPoolAcquire, i, err)
		}

		caps[i] = c
	}

	p := &Pool{
		tasks: make(chan func(chat.Capability)),
		size:  size,
	}

	for _, c := range caps {
		p.wg.Add(1)

		go func(c chat.Capability) {
			defer p.wg.Done()

			for task := range p.tasks {
				task(c)
			}
		}(c)
	}

	ctxlog.Debug(ctx, "worker pool acquired", "workers", size)

	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Dispatch sends every job in span to the workers and waits for all of them.
// Outputs are placed by job index, failed jobs leave a nil slot and contribute to the returned error.
func (p *Pool) Dispatch(ctx context.Context, span Span, inputs []chat.Prompt, mode chat.Mode) ([]*Output, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.released {
		return nil, ErrPoolReleased
	}

	outs := make([]*Output, span.Len())
	errs := make([]error, span.Len())

	var wg sync.WaitGroup

	wg.Add(span.Len())

	for i := range span.Len() {
		prompt := inputs[span.Start+i]

		p.tasks <- func(c chat.Capability) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
				}
			}()

			res, err := c.Respond(ctx, prompt, mode)
			if err != nil {
				errs[i] = err
				return
			}

			outs[i] = outputFrom(res)
		}
	}

	wg.Wait()

	var merr *multierror.Error

	for i, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("job %d: %w", span.Start+i+1, err))
		}
	}

	return outs, merr.ErrorOrNil()
}

// Release stops the workers and waits for them to exit. It is safe to call more than once.
func (p *Pool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return
	}

	p.released = true
	close(p.tasks)
	p.wg.Wait()
}
