// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements the run command, which drives a batch of prompts to completion.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matt-FFFFFF/chatbatch/cmd/chatbatch/show"
	"github.com/matt-FFFFFF/chatbatch/internal/batch"
	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/color"
	"github.com/matt-FFFFFF/chatbatch/internal/config"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/chatbatch/internal/export"
	"github.com/matt-FFFFFF/chatbatch/internal/progress"
	"github.com/matt-FFFFFF/chatbatch/internal/signalbroker"
	"github.com/matt-FFFFFF/chatbatch/internal/tui"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag                    = "file"
	checkpointFlag              = "checkpoint"
	parallelFlag                = "parallel"
	workersFlag                 = "workers"
	chunkSizeFlag               = "chunk-size"
	maxTriesFlag                = "max-tries"
	retryDelayFlag              = "retry-delay"
	structuredFlag              = "structured"
	tuiFlag                     = "tui"
	outFlag                     = "out"
	exportDBFlag                = "export-db"
	noNotifyFlag                = "no-notify"
	quietFlag                   = "quiet"
	configTimeoutFlag           = "config-timeout"
	configTimeoutSecondsDefault = 30
	reporterBufferSize          = 64
	cliExitStr                  = ""

	// ExitInterrupted is the exit code of a run that stopped on request.
	// Running the same command again resumes it.
	ExitInterrupted = 3
)

// ErrNoFile is returned when no run file is given.
var ErrNoFile = errors.New("no run file specified")

// RunCmd is the command that runs the batch of prompts defined in a run file.
var RunCmd = newCommand()

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Send every prompt of a run file to the chat model, resuming from its checkpoint",
		Description: `Run sends the prompts defined in a YAML or HCL run file to the configured chat model
and records the replies in a checkpoint file after every completed job or chunk.

If the checkpoint already holds a run for the same prompts, the run continues from the
first prompt without a reply. Press Ctrl+C once to stop after the current job or chunk,
twice to stop immediately.

Run file URLs use Hashicorp's go-getter syntax, which allows for fetching files from various sources.
See https://github.com/hashicorp/go-getter.
`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      fileFlag,
				Aliases:   []string{"f"},
				Usage:     "Path or go-getter URL of the run file",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.StringFlag{
				Name:      checkpointFlag,
				Aliases:   []string{"c"},
				Usage:     "Checkpoint file. Defaults to the value in the run file, or one named after it",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:        parallelFlag,
				Aliases:     []string{"p"},
				Usage:       "Send chunks of prompts to a pool of workers",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.IntFlag{
				Name:    workersFlag,
				Aliases: []string{"w"},
				Usage:   "Number of workers in parallel mode",
				Value:   0,
			},
			&cli.IntFlag{
				Name:  chunkSizeFlag,
				Usage: "Number of prompts committed together in parallel mode. Defaults to the number of workers",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  maxTriesFlag,
				Usage: "Attempts per chunk before the run fails",
				Value: 0,
			},
			&cli.DurationFlag{
				Name:  retryDelayFlag,
				Usage: "Pause before a failed chunk is sent again",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:        structuredFlag,
				Aliases:     []string{"s"},
				Usage:       "Decode a JSON object from every reply",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        tuiFlag,
				Aliases:     []string{"t", "interactive"},
				Usage:       "Run with interactive Terminal User Interface (TUI) showing real-time progress",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.StringFlag{
				Name:      outFlag,
				Aliases:   []string{"o"},
				Usage:     "Write the progress and replies as JSON to this file",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.StringFlag{
				Name:      exportDBFlag,
				Usage:     "Upsert the completed jobs into this SQLite database",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.BoolFlag{
				Name:        noNotifyFlag,
				Usage:       "Do not ring the terminal bell when the run stops",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        quietFlag,
				Aliases:     []string{"q"},
				Usage:       "Do not print the replies when the run stops",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.IntFlag{
				Name:    configTimeoutFlag,
				Aliases: []string{"timeout"},
				Usage: "Set the maximum time in seconds to wait for the run file to be fetched. " +
					"Defaults to 30 seconds.",
				Value: configTimeoutSecondsDefault,
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running run command")

	src := cmd.String(fileFlag)
	if src == "" {
		logger.Error(ErrNoFile.Error() + ". Please specify the run file using the --file or -f flag.")
		return cli.Exit(cliExitStr, 1)
	}

	configCtx, configCancel := context.WithTimeout(ctx, time.Duration(cmd.Int(configTimeoutFlag))*time.Second)
	defer configCancel()

	file, err := config.Load(configCtx, src)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load run file %s: %s", src, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	req, err := buildRequest(cmd, file)
	if err != nil {
		logger.Error(fmt.Sprintf("Invalid settings in %s: %s", src, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	intr := signalbroker.InterruptFrom(ctx)
	req.Interrupt = intr.Done()
	req.Notifier = progress.BellNotifier{W: cmd.ErrWriter}
	if cmd.Bool(noNotifyFlag) {
		req.Notifier = progress.NopNotifier{}
	}

	var (
		res    *batch.Result
		runErr error
	)

	switch cmd.Bool(tuiFlag) {
	case true:
		logger.Info("Starting interactive TUI mode...")

		buf := new(bytes.Buffer)
		tuiCtx := ctxlog.NewForTUI(ctx, buf)

		title := file.Name
		if title == "" {
			title = req.Checkpoint
		}

		runner := tui.NewRunner(tuiCtx, title, intr.Trigger)

		res, runErr = runner.Run(tuiCtx, func(ctx context.Context, r progress.Reporter) (*batch.Result, error) {
			req.Reporter = r
			return batch.Run(ctx, req)
		})

		buf.WriteTo(cmd.Writer) //nolint:errcheck
	default:
		reporter := progress.NewChannelReporter(reporterBufferSize)
		reporter.Listen(logListener(ctx))
		req.Reporter = reporter

		res, runErr = batch.Run(ctx, req)

		reporter.Close()
	}

	if res != nil && res.State != nil {
		if err := writeResults(ctx, cmd, res.State); err != nil {
			logger.Error(err.Error())
			return cli.Exit(cliExitStr, 1)
		}
	}

	if runErr != nil {
		logger.Error(fmt.Sprintf("Run failed: %s", runErr.Error()), "checkpoint", req.Checkpoint)
		return cli.Exit(cliExitStr, 1)
	}

	if res.Outcome == batch.OutcomeInterrupted {
		logger.Warn("Run interrupted. Run the same command again to resume.", "checkpoint", req.Checkpoint)
		return cli.Exit(cliExitStr, ExitInterrupted)
	}

	return nil
}

// buildRequest merges the run file with the command line flags. Flags win.
func buildRequest(cmd *cli.Command, file *config.File) (batch.Request, error) {
	cfg, err := file.BatchConfig()
	if err != nil {
		return batch.Request{}, err
	}

	if cmd.IsSet(parallelFlag) {
		cfg.Strategy = batch.StrategySequential
		if cmd.Bool(parallelFlag) {
			cfg.Strategy = batch.StrategyParallel
		}
	}

	if cmd.IsSet(workersFlag) {
		cfg.Workers = cmd.Int(workersFlag)
	}

	if cmd.IsSet(chunkSizeFlag) {
		cfg.ChunkSize = cmd.Int(chunkSizeFlag)
	}

	if cmd.IsSet(maxTriesFlag) {
		cfg.Retry.MaxTries = cmd.Int(maxTriesFlag)
	}

	if cmd.IsSet(retryDelayFlag) {
		cfg.Retry.Delay = cmd.Duration(retryDelayFlag)
	}

	if cmd.IsSet(structuredFlag) {
		cfg.Mode = chat.ModeText
		if cmd.Bool(structuredFlag) {
			cfg.Mode = chat.ModeStructured
		}
	}

	if cmd.Bool(noNotifyFlag) {
		cfg.Notify = false
	}

	factory, err := file.Chat.Factory()
	if err != nil {
		return batch.Request{}, err
	}

	checkpoint := cmd.String(checkpointFlag)
	if checkpoint == "" {
		checkpoint = file.CheckpointPath()
	}

	return batch.Request{
		Inputs:     file.Inputs(),
		Config:     cfg,
		Checkpoint: checkpoint,
		Factory:    factory,
	}, nil
}

func writeResults(ctx context.Context, cmd *cli.Command, st *batch.State) error {
	if !cmd.Bool(quietFlag) {
		if err := show.Write(cmd.Writer, st, show.Options{Colour: color.Enabled()}); err != nil {
			return err
		}
	}

	if out := cmd.String(outFlag); out != "" {
		if err := writeJSON(out, st); err != nil {
			return fmt.Errorf("failed to write output file %s: %w", out, err)
		}

		ctxlog.Info(ctx, fmt.Sprintf("Results written to %s", out))
	}

	if db := cmd.String(exportDBFlag); db != "" {
		if err := export.SQLite(ctx, db, st); err != nil {
			return fmt.Errorf("failed to export to %s: %w", db, err)
		}

		ctxlog.Info(ctx, fmt.Sprintf("Results exported to %s", db))
	}

	return nil
}

func writeJSON(path string, st *batch.State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer f.Close() //nolint:errcheck

	return show.Write(f, st, show.Options{JSON: true})
}

// logListener traces progress events. Outcomes and retries are already logged by the executors.
func logListener(ctx context.Context) progress.Listener {
	return progress.ListenerFunc(func(e progress.Event) {
		ctxlog.Debug(ctx, "progress",
			"event", e.Type.String(),
			"completed", e.Current,
			"total", e.Total,
			"percent", fmt.Sprintf("%.1f", e.Percent()))
	})
}
