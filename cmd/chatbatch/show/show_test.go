// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package show

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/matt-FFFFFF/chatbatch/internal/batch"
	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func session(id string, prompt, reply string) chat.Session {
	return chat.Session{
		ID:    id,
		Model: "test",
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: prompt},
			{Role: chat.RoleAssistant, Content: reply},
		},
	}
}

func textState(t *testing.T) *batch.State {
	t.Helper()

	st := batch.NewState(chat.TextPrompts("a", "b", "c"), batch.Config{}.WithDefaults(), "/runs/x.json")
	require.NoError(t, batch.Advance(st,
		&batch.Output{Text: "A", Session: session("1", "a", "A")},
		&batch.Output{Text: "B", Session: session("2", "b", "B")},
	))

	return st
}

func TestWriteText(t *testing.T) {
	st := textState(t)
	st.Meta.FailedChunks = []batch.ChunkFailure{{Chunk: 1, Start: 2, End: 3, Attempt: 1, Reason: "boom"}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, st, Options{Chats: true}))

	out := buf.String()
	assert.Contains(t, out, st.ID.String())
	assert.Contains(t, out, "2 / 3")
	assert.Contains(t, out, "1 remaining")
	assert.Contains(t, out, "[0] A\n")
	assert.Contains(t, out, "[1] B\n")
	assert.NotContains(t, out, "[2]")
	assert.Contains(t, out, "failed chunk 1 (jobs 2-3) attempt 1: boom")
	assert.Contains(t, out, "assistant: B")
}

func TestWriteStructuredRows(t *testing.T) {
	st := batch.NewState(chat.TextPrompts("a", "b"), batch.Config{Mode: chat.ModeStructured}.WithDefaults(), "x.json")
	require.NoError(t, batch.Advance(st,
		&batch.Output{Structured: map[string]any{"n": 1.0, "k": "x"}},
		&batch.Output{Structured: map[string]any{"n": 2.0}},
	))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, st, Options{}))

	assert.Contains(t, buf.String(), `[0] {"n":1}`)
	assert.Contains(t, buf.String(), `[1] {"n":2}`)
}

func TestWriteJSON(t *testing.T) {
	st := textState(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, st, Options{JSON: true}))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, 3, doc.Progress.Total)
	assert.Equal(t, 2, doc.Progress.Completed)
	assert.Equal(t, []string{"A", "B"}, doc.Texts.Flat)
	assert.Empty(t, doc.Chats)
}

func TestShowCmd(t *testing.T) {
	ctx := ctxlog.NewForTUI(context.Background(), io.Discard)
	path := filepath.Join(t.TempDir(), "run.json")

	st := textState(t)
	st.Checkpoint = path
	require.NoError(t, batch.NewStore(path).Save(ctx, st))

	var buf bytes.Buffer

	ShowCmd.Writer = &buf
	ShowCmd.ErrWriter = io.Discard
	ShowCmd.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	require.NoError(t, ShowCmd.Run(ctx, []string{"show", "--json", path}))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, st.ID.String(), doc.Progress.ID)
	assert.Equal(t, path, doc.Progress.Checkpoint)
}
