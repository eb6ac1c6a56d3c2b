// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndLogger(t *testing.T) {
	tests := []struct {
		name   string
		logger *slog.Logger
	}{
		{
			name:   "with custom logger",
			logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		},
		{
			name:   "with nil logger should use default",
			logger: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Logger(New(context.Background(), tt.logger))
			if tt.logger == nil {
				assert.Same(t, DefaultLogger, got)
				return
			}

			assert.Same(t, tt.logger, got)
		})
	}
}

func TestLoggerWithoutValue(t *testing.T) {
	assert.Same(t, DefaultLogger, Logger(context.Background()))
}

func TestHelpersWriteToContextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := New(context.Background(), slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	Debug(ctx, "d", "k", 1)
	Info(ctx, "i")
	Warn(ctx, "w")
	Error(ctx, "e")

	out := buf.String()
	for _, want := range []string{"msg=d", "k=1", "msg=i", "msg=w", "msg=e"} {
		assert.Contains(t, out, want)
	}
}

func TestNewForTUI(t *testing.T) {
	prev := LevelVar.Level()
	defer LevelVar.Set(prev)

	LevelVar.Set(slog.LevelInfo)

	buf := &bytes.Buffer{}
	ctx := NewForTUI(context.Background(), buf)

	Info(ctx, "hidden from terminal", "chunk", 2)

	assert.Contains(t, buf.String(), "hidden from terminal")
	assert.Contains(t, buf.String(), `"chunk": 2`)
	assert.NotContains(t, buf.String(), "\033[")
}

func TestLevelFromEnv(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"":      slog.LevelWarn,
		"noise": slog.LevelWarn,
	}

	for in, want := range tests {
		assert.Equal(t, want, levelFromEnv(in), in)
	}
}
