// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package execchat implements a chat capability that runs a local program for every prompt.
// The prompt is written to the program's stdin, its stdout is the response.
// Scalar prompts are written as plain text, conversations as a JSON array of messages.
package execchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
)

const maxBufferSize = 8 * 1024 * 1024 // 8MB

var (
	// ErrNoPath is returned when no program is configured.
	ErrNoPath = errors.New("no program path configured")
	// ErrBufferOverflow is returned when the program output exceeds the max size.
	ErrBufferOverflow = fmt.Errorf("output exceeds max size of %d bytes", maxBufferSize)
	// ErrProgramFailed is returned when the program exits with a non zero exit code.
	ErrProgramFailed = errors.New("program failed")
)

var _ chat.Factory = Config{}

// Config describes the program to run.
type Config struct {
	Path         string            `json:"path" yaml:"path"`
	Args         []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env          map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Dir          string            `json:"dir,omitempty" yaml:"dir,omitempty"`
	Model        string            `json:"model,omitempty" yaml:"model,omitempty"`
	SystemPrompt string            `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// New implements chat.Factory.
func (c Config) New(_ context.Context) (chat.Capability, error) {
	if c.Path == "" {
		return nil, ErrNoPath
	}

	path, err := exec.LookPath(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPath, err)
	}

	env := os.Environ()
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}

	return &Program{cfg: c, path: path, env: env}, nil
}

// Program is a chat.Capability backed by a local executable.
type Program struct {
	cfg  Config
	path string
	env  []string
}

type limitedBuffer struct {
	bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.Len()+len(p) > maxBufferSize {
		return 0, ErrBufferOverflow
	}

	return b.Buffer.Write(p)
}

// Respond implements chat.Capability.
func (p *Program) Respond(ctx context.Context, prompt chat.Prompt, mode chat.Mode) (chat.Response, error) {
	logger := ctxlog.Logger(ctx).With("capability", "execchat", "path", p.path)

	transcript := prompt.Conversation(p.cfg.SystemPrompt)

	var stdin []byte

	if prompt.IsScalar() && p.cfg.SystemPrompt == "" {
		stdin = []byte(prompt.Text)
	} else {
		b, err := json.Marshal(transcript)
		if err != nil {
			return chat.Response{}, fmt.Errorf("encode conversation: %w", err)
		}

		stdin = b
	}

	cmd := exec.CommandContext(ctx, p.path, p.cfg.Args...)
	cmd.Dir = p.cfg.Dir
	cmd.Env = p.env
	cmd.Stdin = bytes.NewReader(stdin)

	stdout, stderr := &limitedBuffer{}, &limitedBuffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Debug("starting program", "args", p.cfg.Args)

	if err := cmd.Run(); err != nil {
		if errors.Is(err, ErrBufferOverflow) {
			return chat.Response{}, ErrBufferOverflow
		}

		firstLine, _, _ := strings.Cut(strings.TrimSpace(stderr.String()), "\n")

		return chat.Response{}, fmt.Errorf("%w: %w: %s", ErrProgramFailed, err, firstLine)
	}

	model := p.cfg.Model
	if model == "" {
		model = p.cfg.Path
	}

	return chat.NewResponse(transcript, uuid.NewString(), model, strings.TrimRight(stdout.String(), "\n"), mode)
}
