// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrEmptyPrompt is returned when a prompt has neither text nor messages.
	ErrEmptyPrompt = errors.New("prompt has no text and no messages")
	// ErrAmbiguousPrompt is returned when a prompt sets both text and messages.
	ErrAmbiguousPrompt = errors.New("prompt must set either text or messages, not both")
	// ErrInvalidMessage is returned when a message has an unknown role or no content.
	ErrInvalidMessage = errors.New("invalid message")
)

// Roles understood by the capabilities.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Mode selects how a response is decoded.
type Mode int

const (
	// ModeText keeps the raw text of the response.
	ModeText Mode = iota
	// ModeStructured decodes the response into a JSON object.
	ModeStructured
)

// String implements the Stringer interface for Mode.
func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "none":
		return ModeText, nil
	case "structured", "json", "typed":
		return ModeStructured, nil
	default:
		return ModeText, fmt.Errorf("unknown decoding mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}

	*m = v

	return nil
}

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Prompt is the input of one job.
// A scalar prompt only sets Text, a structured prompt only sets Messages.
type Prompt struct {
	Text     string    `json:"text,omitempty" yaml:"text,omitempty"`
	Messages []Message `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// TextPrompt returns a scalar prompt.
func TextPrompt(s string) Prompt {
	return Prompt{Text: s}
}

// TextPrompts converts a slice of strings to scalar prompts.
func TextPrompts(s ...string) []Prompt {
	ps := make([]Prompt, len(s))
	for i, v := range s {
		ps[i] = TextPrompt(v)
	}

	return ps
}

// IsScalar reports whether the prompt is a single piece of text.
func (p Prompt) IsScalar() bool {
	return len(p.Messages) == 0
}

// Validate checks that the prompt can be sent to a capability.
func (p Prompt) Validate() error {
	if p.Text != "" && len(p.Messages) > 0 {
		return ErrAmbiguousPrompt
	}

	if p.IsScalar() {
		if strings.TrimSpace(p.Text) == "" {
			return ErrEmptyPrompt
		}

		return nil
	}

	for i, m := range p.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidMessage, i, m.Role)
		}

		if m.Content == "" {
			return fmt.Errorf("%w: message %d has no content", ErrInvalidMessage, i)
		}
	}

	return nil
}

// Conversation returns the prompt as a list of messages, prefixed by the system prompt if set.
func (p Prompt) Conversation(system string) []Message {
	var msgs []Message

	if system != "" && (p.IsScalar() || p.Messages[0].Role != RoleSystem) {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}

	if p.IsScalar() {
		return append(msgs, Message{Role: RoleUser, Content: p.Text})
	}

	return append(msgs, slices.Clone(p.Messages)...)
}

// Session is the handle of the exchange that produced a response.
// It carries the full transcript so the conversation can be continued or inspected.
type Session struct {
	ID       string    `json:"id,omitempty"`
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// Response is what a capability returns for one prompt.
type Response struct {
	Text       string         `json:"text,omitempty"`
	Structured map[string]any `json:"structured,omitempty"`
	Session    Session        `json:"session"`
}

// Capability sends one prompt to the remote service and waits for the answer.
type Capability interface {
	Respond(ctx context.Context, prompt Prompt, mode Mode) (Response, error)
}

// Factory builds independent capability instances from a shared configuration.
// Instances must not share mutable state such as connections or sessions.
type Factory interface {
	New(ctx context.Context) (Capability, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Capability, error)

// New implements the Factory interface.
func (f FactoryFunc) New(ctx context.Context) (Capability, error) {
	return f(ctx)
}
