// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/chatbatch/internal/batch"
	"github.com/matt-FFFFFF/chatbatch/internal/chat"
	"github.com/matt-FFFFFF/chatbatch/internal/ctxlog"
	"github.com/spf13/afero"
)

var (
	// ErrInvalidYaml is returned when a YAML run file cannot be decoded.
	ErrInvalidYaml = errors.New("invalid YAML")
	// ErrInvalidHcl is returned when an HCL run file cannot be decoded.
	ErrInvalidHcl = errors.New("invalid HCL")
	// ErrUnknownFormat is returned for files that are neither YAML nor HCL.
	ErrUnknownFormat = errors.New("unknown run file format")
	// ErrNoPrompts is returned when a run file defines no prompts.
	ErrNoPrompts = errors.New("no prompts specified")
	// ErrInvalidPrompt is returned when a prompt entry cannot be understood.
	ErrInvalidPrompt = errors.New("invalid prompt")
	// ErrInvalidSetting is returned when a setting has an unusable value.
	ErrInvalidSetting = errors.New("invalid setting")
)

// DefaultCheckpointExt is appended to the run file name when no checkpoint is configured.
const DefaultCheckpointExt = ".checkpoint.json"

// File is a decoded run file.
type File struct {
	Name        string      `yaml:"name" hcl:"name,optional"`
	Description string      `yaml:"description" hcl:"description,optional"`
	Checkpoint  string      `yaml:"checkpoint" hcl:"checkpoint,optional"`
	Mode        string      `yaml:"mode" hcl:"mode,optional"`
	Strategy    string      `yaml:"strategy" hcl:"strategy,optional"`
	ChunkSize   int         `yaml:"chunk_size" hcl:"chunk_size,optional"`
	Workers     int         `yaml:"workers" hcl:"workers,optional"`
	MaxTries    int         `yaml:"max_tries" hcl:"max_tries,optional"`
	RetryDelay  string      `yaml:"retry_delay" hcl:"retry_delay,optional"`
	RetryJitter float64     `yaml:"retry_jitter" hcl:"retry_jitter,optional"`
	Notify      *bool       `yaml:"notify" hcl:"notify,optional"`
	Prompts     []PromptDef `yaml:"prompts" hcl:"prompt,block"`
	PromptTexts []string    `yaml:"-" hcl:"prompts,optional"`
	PromptsFile string      `yaml:"prompts_file" hcl:"prompts_file,optional"`
	Chat        *ChatDef    `yaml:"chat" hcl:"chat,block"`

	// Source is the path the file was read from.
	Source string `yaml:"-"`
	inputs []chat.Prompt
}

// MessageDef is one message of a conversation prompt.
type MessageDef struct {
	Role    string `yaml:"role" hcl:"role"`
	Content string `yaml:"content" hcl:"content"`
}

// PromptDef is one prompt: a text, or a conversation.
// In YAML a plain string or a list of messages is accepted as a shorthand.
type PromptDef struct {
	Text     string       `yaml:"text" hcl:"text,optional"`
	Messages []MessageDef `yaml:"messages" hcl:"message,block"`
}

// UnmarshalYAML implements yaml.InterfaceUnmarshaler.
func (p *PromptDef) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*p = PromptDef{Text: s}
		return nil
	}

	var msgs []MessageDef
	if err := unmarshal(&msgs); err == nil {
		*p = PromptDef{Messages: msgs}
		return nil
	}

	type plain PromptDef

	var v plain
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("%w: expected a string, a list of messages or an object: %w", ErrInvalidPrompt, err)
	}

	*p = PromptDef(v)

	return nil
}

// Prompt converts the definition to a chat prompt.
func (p PromptDef) Prompt() chat.Prompt {
	if len(p.Messages) == 0 {
		return chat.TextPrompt(p.Text)
	}

	msgs := make([]chat.Message, len(p.Messages))
	for i, m := range p.Messages {
		msgs[i] = chat.Message{Role: strings.ToLower(m.Role), Content: m.Content}
	}

	return chat.Prompt{Text: p.Text, Messages: msgs}
}

// Load reads the run file at src.
// Paths that exist on the local file system are read directly, anything else is fetched with go-getter.
func Load(ctx context.Context, src string) (*File, error) {
	fs := FsFactory()

	if ok, _ := afero.Exists(fs, src); ok {
		return LoadFile(ctx, fs, src)
	}

	tmpDir, err := os.MkdirTemp("", "chatbatch-getter-*")
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	path, err := Fetch(ctx, src, tmpDir)
	if err != nil {
		return nil, err
	}

	f, err := LoadFile(ctx, afero.NewOsFs(), path)
	if err != nil {
		return nil, err
	}

	f.Source = src

	return f, nil
}

// LoadFile reads and decodes the run file at path on fs.
// A prompts file is resolved relative to the run file.
func LoadFile(ctx context.Context, fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read run file %s: %w", path, err)
	}

	f, err := Decode(fs, path, data)
	if err != nil {
		return nil, err
	}

	f.Source = path

	if err := f.resolvePrompts(fs, filepath.Dir(path)); err != nil {
		return nil, err
	}

	ctxlog.Debug(ctx, "run file loaded", "path", path, "prompts", len(f.inputs))

	return f, nil
}

// Decode parses data according to the extension of name.
// fs and the directory of name are used by the HCL file function.
func Decode(fs afero.Fs, name string, data []byte) (*File, error) {
	f := new(File)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		if err := yaml.UnmarshalWithOptions(data, f, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidYaml, name, err)
		}
	case ".hcl":
		if err := decodeHCL(fs, name, data, f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}

	return f, nil
}

func (f *File) resolvePrompts(fs afero.Fs, dir string) error {
	inputs := make([]chat.Prompt, 0, len(f.PromptTexts)+len(f.Prompts))

	for _, t := range f.PromptTexts {
		inputs = append(inputs, chat.TextPrompt(t))
	}

	for _, p := range f.Prompts {
		inputs = append(inputs, p.Prompt())
	}

	if f.PromptsFile != "" {
		path := f.PromptsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		more, err := ReadPrompts(fs, path)
		if err != nil {
			return err
		}

		inputs = append(inputs, more...)
	}

	if len(inputs) == 0 {
		return ErrNoPrompts
	}

	f.inputs = inputs

	return nil
}

// Inputs returns every prompt of the run file in order: inline texts, prompt entries, then the
// prompts file.
func (f *File) Inputs() []chat.Prompt {
	return f.inputs
}

// ReadPrompts reads a prompts file. YAML and JSON files hold a list of prompt entries, any other
// file holds one text prompt per line. Blank lines and lines starting with # are skipped.
func ReadPrompts(fs afero.Fs, path string) ([]chat.Prompt, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		var defs []PromptDef
		if err := yaml.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidYaml, path, err)
		}

		ps := make([]chat.Prompt, len(defs))
		for i, d := range defs {
			ps[i] = d.Prompt()
		}

		return ps, nil
	}

	var ps []chat.Prompt

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024) //nolint:mnd

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ps = append(ps, chat.TextPrompt(line))
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read prompts file %s: %w", path, err)
	}

	return ps, nil
}

// CheckpointPath returns the configured checkpoint, or one derived from the run file name.
func (f *File) CheckpointPath() string {
	if f.Checkpoint != "" {
		return f.Checkpoint
	}

	base := filepath.Base(f.Source)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	if f.Name != "" {
		base = f.Name
	}

	if base == "" || base == "." {
		base = "chatbatch"
	}

	return base + DefaultCheckpointExt
}

// BatchConfig converts the execution settings.
func (f *File) BatchConfig() (batch.Config, error) {
	var cfg batch.Config

	mode, err := chat.ParseMode(f.Mode)
	if err != nil {
		return cfg, fmt.Errorf("%w: mode: %w", ErrInvalidSetting, err)
	}

	cfg.Mode = mode

	if err := cfg.Strategy.UnmarshalText([]byte(f.Strategy)); err != nil {
		return cfg, fmt.Errorf("%w: strategy: %w", ErrInvalidSetting, err)
	}

	cfg.ChunkSize = f.ChunkSize
	cfg.Workers = f.Workers
	cfg.Retry.MaxTries = f.MaxTries
	cfg.Retry.Jitter = f.RetryJitter

	if f.RetryDelay != "" {
		d, err := time.ParseDuration(f.RetryDelay)
		if err != nil {
			return cfg, fmt.Errorf("%w: retry_delay: %w", ErrInvalidSetting, err)
		}

		cfg.Retry.Delay = d
	}

	cfg.Notify = f.Notify == nil || *f.Notify

	return cfg, nil
}
