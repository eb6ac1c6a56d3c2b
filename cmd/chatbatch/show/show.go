// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show implements the show command, which prints the state of a checkpoint.
package show

import (
	"context"
	"errors"
	"fmt"

	"github.com/matt-FFFFFF/chatbatch/internal/batch"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/urfave/cli/v3"
)

const (
	checkpointArg = "checkpoint"
	jsonFlag      = "json"
	chatsFlag     = "chats"
	cliExitStr    = ""
)

// ErrNoCheckpoint is returned when no checkpoint path is given.
var ErrNoCheckpoint = errors.New("no checkpoint specified")

// ShowCmd is the command that prints the progress and results held in a checkpoint.
var ShowCmd = &cli.Command{
	Name:  "show",
	Usage: "Show the progress and results recorded in a checkpoint",
	Description: `Show reads a checkpoint written by the run command and prints how far the run got,
followed by the replies received so far. Use --json for machine readable output.`,
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      checkpointArg,
			UsageText: "CHECKPOINT",
			Config: cli.StringConfig{
				TrimSpace: true,
			},
		},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:        jsonFlag,
			Usage:       "Print the result as JSON",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        chatsFlag,
			Usage:       "Include the full conversation of every completed job",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	path := cmd.StringArg(checkpointArg)
	if path == "" {
		logger.Error(ErrNoCheckpoint.Error())
		return cli.Exit(cliExitStr, 1)
	}

	st, err := batch.NewStore(path).Load(ctx)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to read checkpoint %s: %s", path, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	opts := Options{JSON: cmd.Bool(jsonFlag), Chats: cmd.Bool(chatsFlag)}

	if err := Write(cmd.Writer, st, opts); err != nil {
		logger.Error(fmt.Sprintf("Failed to write results: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}
