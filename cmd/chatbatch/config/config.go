// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config implements the config command, which prints an example run file.
package config

import (
	"context"
	"fmt"
	"io"

	"github.com/matt-FFFFFF/chatbatch/internal/config"
	"github.com/urfave/cli/v3"
)

const checkFlag = "check"

// ConfigCmd prints a commented example run file, or validates one.
var ConfigCmd = newCommand()

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print an example run file, or check one with --check",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      checkFlag,
				Usage:     "Validate the run file at this path or go-getter URL",
				TakesFile: true,
				OnlyOnce:  true,
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	src := cmd.String(checkFlag)
	if src == "" {
		_, err := io.WriteString(cmd.Writer, config.ExampleYAML)
		return err
	}

	file, err := config.Load(ctx, src)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %s", src, err.Error()), 1)
	}

	cfg, err := file.BatchConfig()
	if err == nil {
		_, err = file.Chat.Factory()
	}

	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %s", src, err.Error()), 1)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("%s: %s", src, err.Error()), 1)
	}

	fmt.Fprintf(cmd.Writer, "%s: %d prompts, %s, %s, checkpoint %s\n",
		src, len(file.Inputs()), cfg.Strategy.String(), cfg.Mode.String(), file.CheckpointPath())

	return nil
}
