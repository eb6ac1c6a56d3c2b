// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptValidate(t *testing.T) {
	tests := []struct {
		name    string
		prompt  Prompt
		wantErr error
	}{
		{
			name:   "scalar",
			prompt: TextPrompt("hello"),
		},
		{
			name:    "blank scalar",
			prompt:  TextPrompt("   "),
			wantErr: ErrEmptyPrompt,
		},
		{
			name: "both set",
			prompt: Prompt{
				Text:     "hi",
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
			},
			wantErr: ErrAmbiguousPrompt,
		},
		{
			name: "conversation",
			prompt: Prompt{Messages: []Message{
				{Role: RoleSystem, Content: "be brief"},
				{Role: RoleUser, Content: "hi"},
			}},
		},
		{
			name:    "bad role",
			prompt:  Prompt{Messages: []Message{{Role: "robot", Content: "hi"}}},
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "empty content",
			prompt:  Prompt{Messages: []Message{{Role: RoleUser}}},
			wantErr: ErrInvalidMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prompt.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPromptConversation(t *testing.T) {
	msgs := TextPrompt("hi").Conversation("be brief")
	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	}, msgs)

	p := Prompt{Messages: []Message{
		{Role: RoleSystem, Content: "own system"},
		{Role: RoleUser, Content: "hi"},
	}}
	assert.Equal(t, p.Messages, p.Conversation("ignored"))

	// the prompt's messages must not be aliased
	out := p.Conversation("")
	out[0].Content = "changed"
	assert.Equal(t, "own system", p.Messages[0].Content)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("structured")
	require.NoError(t, err)
	assert.Equal(t, ModeStructured, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeText, m)

	_, err = ParseMode("xml")
	assert.Error(t, err)
}

func TestDecodeStructured(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "plain object",
			in:   `{"a": 1}`,
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "fenced",
			in:   "```json\n{\"name\": \"x\"}\n```",
			want: map[string]any{"name": "x"},
		},
		{
			name: "surrounded by prose",
			in:   "Sure! {\"ok\": true} hope that helps",
			want: map[string]any{"ok": true},
		},
		{
			name:    "array",
			in:      `[1, 2]`,
			wantErr: true,
		},
		{
			name:    "garbage",
			in:      `no json here`,
			wantErr: true,
		},
		{
			name:    "null",
			in:      `null`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeStructured(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrDecodeStructured)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewResponse(t *testing.T) {
	transcript := TextPrompt("q").Conversation("")

	res, err := NewResponse(transcript, "id-1", "m", `{"k":"v"}`, ModeStructured)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, res.Structured)
	assert.Equal(t, "id-1", res.Session.ID)
	assert.Len(t, res.Session.Messages, 2)
	assert.Equal(t, RoleAssistant, res.Session.Messages[1].Role)

	res, err = NewResponse(transcript, "", "m", "plain", ModeText)
	require.NoError(t, err)
	assert.Nil(t, res.Structured)
	assert.Equal(t, "plain", res.Text)

	_, err = NewResponse(transcript, "", "m", "plain", ModeStructured)
	assert.ErrorIs(t, err, ErrDecodeStructured)
}
