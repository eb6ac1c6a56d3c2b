// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package openai implements a chat capability against an OpenAI compatible
// /chat/completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultAPIKeyEnv is the environment variable holding the API key.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
	// DefaultTimeout is the per request timeout.
	DefaultTimeout = 120 * time.Second

	maxErrorBody = 512
)

var (
	// ErrNoModel is returned when the configuration has no model.
	ErrNoModel = errors.New("no model configured")
	// ErrRequestFailed is returned when the endpoint answers with a non 2xx status.
	ErrRequestFailed = errors.New("chat completion request failed")
	// ErrNoChoices is returned when the endpoint answers without any choice.
	ErrNoChoices = errors.New("chat completion returned no choices")
)

var _ chat.Factory = Config{}

// Config is the serializable configuration of the capability.
// It is also the factory: every call to New returns a client with its own connection pool.
type Config struct {
	BaseURL      string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model        string        `json:"model" yaml:"model"`
	APIKeyEnv    string        `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	SystemPrompt string        `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	Temperature  *float64      `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens    int           `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// New implements chat.Factory.
func (c Config) New(ctx context.Context) (chat.Capability, error) {
	if c.Model == "" {
		return nil, ErrNoModel
	}

	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	if c.APIKeyEnv == "" {
		c.APIKeyEnv = DefaultAPIKeyEnv
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = c.Timeout

	ctxlog.Debug(ctx, "openai client created", "model", c.Model, "baseURL", c.BaseURL)

	return &Client{
		cfg:    c,
		apiKey: os.Getenv(c.APIKeyEnv),
		http:   hc,
	}, nil
}

// Client is a chat.Capability bound to one HTTP client.
type Client struct {
	cfg    Config
	apiKey string
	http   *http.Client
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []chat.Message  `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chat.Message `json:"message"`
	} `json:"choices"`
}

// Respond implements chat.Capability.
func (c *Client) Respond(ctx context.Context, prompt chat.Prompt, mode chat.Mode) (chat.Response, error) {
	transcript := prompt.Conversation(c.cfg.SystemPrompt)

	req := completionRequest{
		Model:       c.cfg.Model,
		Messages:    transcript,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if mode == chat.ModeStructured {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return chat.Response{}, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return chat.Response{}, fmt.Errorf("build request: %w", err)
	}

	hreq.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		hreq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return chat.Response{}, errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return chat.Response{}, fmt.Errorf("%w: status %d: %s",
			ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chat.Response{}, fmt.Errorf("decode response: %w", err)
	}

	if len(out.Choices) == 0 {
		return chat.Response{}, ErrNoChoices
	}

	model := out.Model
	if model == "" {
		model = c.cfg.Model
	}

	return chat.NewResponse(transcript, out.ID, model, out.Choices[0].Message.Content, mode)
}
