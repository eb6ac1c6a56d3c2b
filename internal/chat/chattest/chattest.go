// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package chattest provides a scripted chat capability for tests.
package chattest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
)

// ErrScripted is the error returned by Fail.
var ErrScripted = errors.New("scripted failure")

// Model is the model name reported in sessions.
const Model = "chattest"

// Script computes the reply for a prompt. call is 1 for the first time a prompt is seen.
type Script func(prompt chat.Prompt, call int) (string, error)

var _ chat.Factory = (*Factory)(nil)

// Factory hands out capabilities that share a script and call counters.
type Factory struct {
	Script    Script
	Delay     time.Duration
	mu        sync.Mutex
	calls     map[string]int
	instances atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

// New returns a factory running script.
func New(script Script) *Factory {
	return &Factory{Script: script, calls: make(map[string]int)}
}

// Echo replies with the prompt text prefixed by "re: ".
func Echo() *Factory {
	return New(func(p chat.Prompt, _ int) (string, error) {
		return "re: " + Key(p), nil
	})
}

// Fail returns a script that fails the first n calls of the prompts in texts and
// echoes everything else.
func Fail(n int, texts ...string) Script {
	fail := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		fail[t] = struct{}{}
	}

	return func(p chat.Prompt, call int) (string, error) {
		if _, ok := fail[Key(p)]; ok && call <= n {
			return "", fmt.Errorf("%w: %s call %d", ErrScripted, Key(p), call)
		}

		return "re: " + Key(p), nil
	}
}

// Key identifies a prompt in call counters.
func Key(p chat.Prompt) string {
	if p.IsScalar() {
		return p.Text
	}

	b, _ := json.Marshal(p.Messages)

	return string(b)
}

// New implements chat.Factory.
func (f *Factory) New(_ context.Context) (chat.Capability, error) {
	f.instances.Add(1)

	return &capability{f: f}, nil
}

// Calls returns how many times the prompt with key k has been sent.
func (f *Factory) Calls(k string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[k]
}

// Instances returns how many capabilities have been built.
func (f *Factory) Instances() int {
	return int(f.instances.Load())
}

// MaxConcurrent returns the highest number of simultaneous Respond calls observed.
func (f *Factory) MaxConcurrent() int {
	return int(f.maxFlight.Load())
}

func (f *Factory) record(p chat.Prompt) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calls == nil {
		f.calls = make(map[string]int)
	}

	f.calls[Key(p)]++

	return f.calls[Key(p)]
}

type capability struct {
	f *Factory
	n int
}

func (c *capability) Respond(ctx context.Context, p chat.Prompt, mode chat.Mode) (chat.Response, error) {
	n := c.f.inFlight.Add(1)
	defer c.f.inFlight.Add(-1)

	for {
		m := c.f.maxFlight.Load()
		if n <= m || c.f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}

	call := c.f.record(p)

	if c.f.Delay > 0 {
		select {
		case <-ctx.Done():
			return chat.Response{}, ctx.Err()
		case <-time.After(c.f.Delay):
		}
	}

	text, err := c.f.Script(p, call)
	if err != nil {
		return chat.Response{}, err
	}

	c.n++

	return chat.NewResponse(p.Conversation(""), fmt.Sprintf("%s-%d", Model, c.n), Model, text, mode)
}
