// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// loggerAfterBefore runs a command with the root flags and returns the logger its action sees.
func loggerAfterBefore(t *testing.T, args ...string) (*slog.Logger, error) {
	t.Helper()

	var got *slog.Logger

	cmd := &cli.Command{
		Name:           "chatbatch",
		Flags:          []cli.Flag{newLogFormatFlag()},
		Before:         beforeFunc,
		Writer:         io.Discard,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Action: func(ctx context.Context, _ *cli.Command) error {
			got = ctxlog.Logger(ctx)
			return nil
		},
	}

	err := cmd.Run(ctxlog.New(context.Background(), ctxlog.DefaultLogger), append([]string{"chatbatch"}, args...))

	return got, err
}

func TestLogFormat(t *testing.T) {
	t.Run("default is pretty", func(t *testing.T) {
		got, err := loggerAfterBefore(t)
		require.NoError(t, err)
		assert.Same(t, ctxlog.DefaultLogger, got)
	})

	t.Run("json", func(t *testing.T) {
		got, err := loggerAfterBefore(t, "--log-format", "json")
		require.NoError(t, err)
		assert.Same(t, ctxlog.JSONLogger, got)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := loggerAfterBefore(t, "--log-format", "xml")
		require.Error(t, err)
	})
}
