// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, content string, status int, seen *completionRequest) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		if status != http.StatusOK {
			http.Error(w, "rate limited", status)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-1",
			"model": "test-model",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func newClient(t *testing.T, url string) chat.Capability {
	t.Helper()
	t.Setenv("TEST_OPENAI_KEY", "test-key")

	cfg := Config{
		BaseURL:      url,
		Model:        "test-model",
		APIKeyEnv:    "TEST_OPENAI_KEY",
		SystemPrompt: "be brief",
	}

	c, err := cfg.New(context.Background())
	require.NoError(t, err)

	return c
}

func TestRespondText(t *testing.T) {
	var seen completionRequest

	srv := newServer(t, "hello there", http.StatusOK, &seen)
	defer srv.Close()

	res, err := newClient(t, srv.URL).Respond(context.Background(), chat.TextPrompt("hi"), chat.ModeText)
	require.NoError(t, err)

	assert.Equal(t, "hello there", res.Text)
	assert.Nil(t, res.Structured)
	assert.Equal(t, "chatcmpl-1", res.Session.ID)
	assert.Len(t, res.Session.Messages, 3)
	assert.Nil(t, seen.ResponseFormat)
	assert.Equal(t, chat.RoleSystem, seen.Messages[0].Role)
}

func TestRespondStructured(t *testing.T) {
	var seen completionRequest

	srv := newServer(t, `{"sentiment":"positive"}`, http.StatusOK, &seen)
	defer srv.Close()

	res, err := newClient(t, srv.URL).Respond(context.Background(), chat.TextPrompt("hi"), chat.ModeStructured)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"sentiment": "positive"}, res.Structured)
	require.NotNil(t, seen.ResponseFormat)
	assert.Equal(t, "json_object", seen.ResponseFormat.Type)
}

func TestRespondHTTPError(t *testing.T) {
	srv := newServer(t, "", http.StatusTooManyRequests, nil)
	defer srv.Close()

	_, err := newClient(t, srv.URL).Respond(context.Background(), chat.TextPrompt("hi"), chat.ModeText)
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "429")
}

func TestNewRequiresModel(t *testing.T) {
	_, err := Config{}.New(context.Background())
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestInstancesAreIndependent(t *testing.T) {
	cfg := Config{Model: "m"}

	a, err := cfg.New(context.Background())
	require.NoError(t, err)

	b, err := cfg.New(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, a.(*Client).http, b.(*Client).http)
}
