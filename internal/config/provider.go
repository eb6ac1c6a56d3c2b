// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/chat/execchat"
	"github.com/matt-FFFFFF/chatbatch/internal/chat/openai"
)

// Providers understood by ChatDef.
const (
	ProviderOpenAI = "openai"
	ProviderExec   = "exec"
)

var (
	// ErrNoProvider is returned when the run file has no chat section.
	ErrNoProvider = errors.New("no chat provider configured")
	// ErrUnknownProvider is returned for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown chat provider")
)

// ChatDef selects and configures the chat capability.
// Fields that do not apply to the provider are ignored.
type ChatDef struct {
	Provider     string            `yaml:"provider" hcl:"provider,label"`
	Model        string            `yaml:"model" hcl:"model,optional"`
	SystemPrompt string            `yaml:"system_prompt" hcl:"system_prompt,optional"`
	BaseURL      string            `yaml:"base_url" hcl:"base_url,optional"`
	APIKeyEnv    string            `yaml:"api_key_env" hcl:"api_key_env,optional"`
	Temperature  *float64          `yaml:"temperature" hcl:"temperature,optional"`
	MaxTokens    int               `yaml:"max_tokens" hcl:"max_tokens,optional"`
	Timeout      string            `yaml:"timeout" hcl:"timeout,optional"`
	Command      string            `yaml:"command" hcl:"command,optional"`
	Args         []string          `yaml:"args" hcl:"args,optional"`
	Env          map[string]string `yaml:"env" hcl:"env,optional"`
	Dir          string            `yaml:"dir" hcl:"dir,optional"`
}

// Factory builds the capability factory for the configured provider.
func (c *ChatDef) Factory() (chat.Factory, error) {
	if c == nil {
		return nil, ErrNoProvider
	}

	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderOpenAI, "":
		cfg := openai.Config{
			BaseURL:      c.BaseURL,
			Model:        c.Model,
			APIKeyEnv:    c.APIKeyEnv,
			SystemPrompt: c.SystemPrompt,
			Temperature:  c.Temperature,
			MaxTokens:    c.MaxTokens,
		}

		if c.Timeout != "" {
			d, err := time.ParseDuration(c.Timeout)
			if err != nil {
				return nil, fmt.Errorf("%w: chat timeout: %w", ErrInvalidSetting, err)
			}

			cfg.Timeout = d
		}

		return cfg, nil
	case ProviderExec:
		return execchat.Config{
			Path:         c.Command,
			Args:         c.Args,
			Env:          c.Env,
			Dir:          c.Dir,
			Model:        c.Model,
			SystemPrompt: c.SystemPrompt,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
}
