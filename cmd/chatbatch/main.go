// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the chatbatch command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/chatbatch"
	"github.com/matt-FFFFFF/chatbatch/cmd/chatbatch/ask"
	"github.com/matt-FFFFFF/chatbatch/cmd/chatbatch/config"
	"github.com/matt-FFFFFF/chatbatch/cmd/chatbatch/run"
	"github.com/matt-FFFFFF/chatbatch/cmd/chatbatch/show"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/chatbatch/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

const (
	logFormatFlag   = "log-format"
	logFormatPretty = "pretty"
	logFormatJSON   = "json"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		ask.AskCmd,
		config.ConfigCmd,
		run.RunCmd,
		show.ShowCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "chatbatch",
	Description: `chatbatch sends a list of prompts to a chat model and records every reply in a
checkpoint file. Runs can be sequential or spread over a pool of workers in chunks.
An interrupted or failed run picks up where it stopped when it is started again.`,
	Usage:     "chatbatch run -f prompts.yaml",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	Flags:                 []cli.Flag{newLogFormatFlag()},
	Before:                beforeFunc,
	EnableShellCompletion: true,
}

func newLogFormatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  logFormatFlag,
		Usage: "Log format, pretty or json",
		Value: logFormatPretty,
		Validator: func(s string) error {
			if s != logFormatPretty && s != logFormatJSON {
				return fmt.Errorf("unknown log format %q", s)
			}

			return nil
		},
	}
}

// beforeFunc swaps the context logger for the one named by --log-format.
func beforeFunc(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.String(logFormatFlag) == logFormatJSON {
		return ctxlog.New(ctx, ctxlog.JSONLogger), nil
	}

	return ctx, nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	intr := signalbroker.NewInterrupt()
	ctx = signalbroker.WithInterrupt(ctx, intr)

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, intr, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", chatbatch.Version, chatbatch.Commit)

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Logger(ctx).Debug("command completed successfully")
}
