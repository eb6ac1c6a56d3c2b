// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package show

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TylerBrock/colorjson"
	"github.com/matt-FFFFFF/chatbatch/internal/batch"
	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/color"
)

// ErrWriteResults is returned when results cannot be rendered.
var ErrWriteResults = errors.New("failed to write results")

// Options controls Write.
type Options struct {
	JSON   bool
	Chats  bool
	Colour bool
}

// Document is the JSON form of a checkpoint.
type Document struct {
	Progress batch.Summary        `json:"progress"`
	Texts    batch.Values         `json:"texts"`
	Chats    []chat.Session       `json:"chats,omitempty"`
	Failures []batch.ChunkFailure `json:"failures,omitempty"`
}

// NewDocument collects what Write prints.
func NewDocument(st *batch.State, withChats bool) Document {
	doc := Document{
		Progress: batch.Progress(st),
		Texts:    batch.Texts(st),
		Failures: st.Meta.FailedChunks,
	}

	if withChats {
		doc.Chats = batch.Chats(st)
	}

	return doc
}

// Write renders the state of st to w.
func Write(w io.Writer, st *batch.State, opts Options) error {
	doc := NewDocument(st, opts.Chats)

	if opts.JSON {
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return errors.Join(ErrWriteResults, err)
		}

		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return errors.Join(ErrWriteResults, err)
		}

		return nil
	}

	var sb strings.Builder

	p := doc.Progress
	fmt.Fprintf(&sb, "%s %s\n", paint(opts, "Run", color.FgHiWhite), p.ID)
	fmt.Fprintf(&sb, "  checkpoint: %s\n", p.Checkpoint)
	fmt.Fprintf(&sb, "  progress:   %d / %d (%.1f%%), %d remaining\n", p.Completed, p.Total, p.Percent, p.Remaining)

	for _, f := range doc.Failures {
		fmt.Fprintf(&sb, "  %s chunk %d (jobs %d-%d) attempt %d: %s\n",
			paint(opts, "failed", color.FgRed), f.Chunk, f.Start, f.End, f.Attempt, f.Reason)
	}

	if doc.Texts.Len() > 0 {
		sb.WriteString("\n")
	}

	if doc.Texts.IsFlat() {
		for i, t := range doc.Texts.Flat {
			fmt.Fprintf(&sb, "%s %s\n", paint(opts, fmt.Sprintf("[%d]", i), color.FgCyan), t)
		}
	} else {
		for i, row := range doc.Texts.Rows {
			b, err := prettyJSON(row, opts.Colour)
			if err != nil {
				return errors.Join(ErrWriteResults, err)
			}

			fmt.Fprintf(&sb, "%s %s\n", paint(opts, fmt.Sprintf("[%d]", i), color.FgCyan), b)
		}
	}

	for i, s := range doc.Chats {
		fmt.Fprintf(&sb, "\n%s %s (%s)\n", paint(opts, fmt.Sprintf("chat %d", i), color.FgHiWhite), s.ID, s.Model)

		for _, m := range s.Messages {
			fmt.Fprintf(&sb, "  %s: %s\n", paint(opts, m.Role, color.FgYellow), m.Content)
		}
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return errors.Join(ErrWriteResults, err)
	}

	return nil
}

// prettyJSON renders v on one line, coloured with colorjson when colour is set.
// colorjson only understands the types json.Unmarshal produces, so v is normalised first.
func prettyJSON(v any, colour bool) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	if !colour {
		return string(b), nil
	}

	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return "", err
	}

	out, err := colorjson.NewFormatter().Marshal(generic)
	if err != nil {
		return "", err
	}

	return string(out), nil
}

func paint(opts Options, s string, c color.Code) string {
	if !opts.Colour {
		return s
	}

	return color.Colorize(s, c)
}
