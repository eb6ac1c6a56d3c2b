// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ask implements the ask command, an interactive prompt against the chat model of a run file.
package ask

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/config"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag       = "file"
	structuredFlag = "structured"
	cliExitStr     = ""
	promptText     = "ask> "
)

// AskCmd is the command that sends single prompts typed at a terminal.
var AskCmd = &cli.Command{
	Name:  "ask",
	Usage: "Try out the chat model of a run file interactively",
	Description: `Ask reads prompts from the terminal and prints the model's reply to each of them.
Nothing is written to the checkpoint. Type quit or exit, or press Ctrl+C, to leave.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      fileFlag,
			Aliases:   []string{"f"},
			Usage:     "Path or go-getter URL of the run file holding the chat settings",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.BoolFlag{
			Name:        structuredFlag,
			Aliases:     []string{"s"},
			Usage:       "Decode a JSON object from every reply",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	src := cmd.String(fileFlag)
	if src == "" {
		logger.Error("Please specify the run file using the --file or -f flag.")
		return cli.Exit(cliExitStr, 1)
	}

	file, err := config.Load(ctx, src)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load run file %s: %s", src, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	mode, err := chat.ParseMode(file.Mode)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	if cmd.Bool(structuredFlag) {
		mode = chat.ModeStructured
	}

	factory, err := file.Chat.Factory()
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	capability, err := factory.New(ctx)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to create chat capability: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	line := liner.NewLiner()

	defer func() {
		_ = line.Close()
	}()

	line.SetCtrlCAborts(true)

	fmt.Fprintln(cmd.Writer, "Entering interactive mode, type `quit` or `exit` or press Ctrl+C to quit.")

	err = Loop(ctx, line, capability, mode, cmd.Writer)
	if errors.Is(err, liner.ErrPromptAborted) {
		fmt.Fprintln(cmd.Writer, "Aborted")
		return nil
	}

	if err != nil {
		logger.Error(fmt.Sprintf("Error reading line: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

// Prompter reads one line of input. *liner.State satisfies it.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Loop sends every line read from p to capability and prints the reply to w.
// It returns nil on quit, exit or end of input. Failed requests are printed and do not end the loop.
func Loop(ctx context.Context, p Prompter, capability chat.Capability, mode chat.Mode, w io.Writer) error {
	for {
		input, err := p.Prompt(promptText)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)

		switch input {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		p.AppendHistory(input)

		res, err := capability.Respond(ctx, chat.TextPrompt(input), mode)
		if err != nil {
			fmt.Fprintf(w, "error: %s\n", err.Error())

			if ctx.Err() != nil {
				return ctx.Err()
			}

			continue
		}

		fmt.Fprintln(w, reply(res))
	}
}

func reply(res chat.Response) string {
	if res.Structured == nil {
		return res.Text
	}

	var sb strings.Builder

	for _, k := range slices.Sorted(maps.Keys(res.Structured)) {
		fmt.Fprintf(&sb, "%s: %v\n", k, res.Structured[k])
	}

	return strings.TrimRight(sb.String(), "\n")
}
