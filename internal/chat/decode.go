// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package chat

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
)

// ErrDecodeStructured is returned when a response cannot be decoded into a JSON object.
var ErrDecodeStructured = errors.New("response is not a JSON object")

const codeFence = "```"

// DecodeStructured extracts a JSON object from model output.
// Markdown code fences around the object are ignored.
func DecodeStructured(text string) (map[string]any, error) {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, codeFence) {
		s = strings.TrimPrefix(s, codeFence)
		// drop the language tag on the opening fence
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}

		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), codeFence))
	}

	if !strings.HasPrefix(s, "{") {
		start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
		if start < 0 || end <= start {
			return nil, ErrDecodeStructured
		}

		s = s[start : end+1]
	}

	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, errors.Join(ErrDecodeStructured, err)
	}

	if v == nil {
		return nil, ErrDecodeStructured
	}

	return v, nil
}

// NewResponse assembles the response for a completed exchange.
// In structured mode the text must decode into a JSON object.
func NewResponse(transcript []Message, id, model, text string, mode Mode) (Response, error) {
	res := Response{
		Text: text,
		Session: Session{
			ID:       id,
			Model:    model,
			Messages: slices.Concat(transcript, []Message{{Role: RoleAssistant, Content: text}}),
		},
	}

	if mode != ModeStructured {
		return res, nil
	}

	v, err := DecodeStructured(text)
	if err != nil {
		return Response{}, err
	}

	res.Structured = v

	return res, nil
}
