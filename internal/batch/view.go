// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batch

import (
	"maps"
	"slices"

	"github.com/matt-FFFFFF/chatbatch/internal/chat"
)

// Missing marks a completed job whose output has neither text nor structured data.
const Missing = "<missing>"

// TextColumn holds the raw text of a row in a table view.
const TextColumn = "text"

// Values is the projection returned by Texts.
// Either Flat is set, or Columns and Rows describe a table.
type Values struct {
	Flat    []string         `json:"flat,omitempty"`
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`
}

// IsFlat reports whether the values are a flat list of strings.
func (v Values) IsFlat() bool {
	return v.Rows == nil
}

// Len returns the number of values.
func (v Values) Len() int {
	if v.IsFlat() {
		return len(v.Flat)
	}

	return len(v.Rows)
}

// Texts projects the completed outputs.
// When every input is a scalar prompt and every output is text the result is flat. Otherwise each
// output becomes a row holding the fields every structured output shares, text rows use the
// text column.
func Texts(st *State) Values {
	done := st.Outputs[:st.Cursor]

	flat := !slices.ContainsFunc(st.Inputs, func(p chat.Prompt) bool { return !p.IsScalar() }) &&
		!slices.ContainsFunc(done, func(o *Output) bool { return o != nil && o.Structured != nil })

	if flat {
		vals := make([]string, len(done))
		for i, o := range done {
			vals[i] = textOf(o)
		}

		return Values{Flat: vals}
	}

	var (
		shared  map[string]struct{}
		hasText bool
	)

	for _, o := range done {
		if o == nil || o.Structured == nil {
			hasText = true
			continue
		}

		if shared == nil {
			shared = make(map[string]struct{}, len(o.Structured))
			for k := range o.Structured {
				shared[k] = struct{}{}
			}

			continue
		}

		maps.DeleteFunc(shared, func(k string, _ struct{}) bool {
			_, ok := o.Structured[k]
			return !ok
		})
	}

	cols := slices.Sorted(maps.Keys(shared))
	if hasText && !slices.Contains(cols, TextColumn) {
		cols = append(cols, TextColumn)
	}

	rows := make([]map[string]any, len(done))

	for i, o := range done {
		row := make(map[string]any, len(cols))

		if o == nil || o.Structured == nil {
			row[TextColumn] = textOf(o)
		} else {
			for k := range shared {
				row[k] = o.Structured[k]
			}
		}

		rows[i] = row
	}

	return Values{Columns: cols, Rows: rows}
}

func textOf(o *Output) string {
	if o == nil || o.Text == "" {
		return Missing
	}

	return o.Text
}

// Chats returns the session of every completed job.
func Chats(st *State) []chat.Session {
	sessions := make([]chat.Session, st.Cursor)

	for i, o := range st.Outputs[:st.Cursor] {
		if o != nil {
			sessions[i] = o.Session
		}
	}

	return sessions
}

// Summary is the progress of a run.
type Summary struct {
	ID         string  `json:"id"`
	Checkpoint string  `json:"checkpoint"`
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Remaining  int     `json:"remaining"`
	Percent    float64 `json:"percent"`
}

// Progress summarises how far the run has got.
func Progress(st *State) Summary {
	s := Summary{
		ID:         st.ID.String(),
		Checkpoint: st.Checkpoint,
		Total:      len(st.Inputs),
		Completed:  st.Cursor,
		Remaining:  Remaining(st),
	}

	if s.Total > 0 {
		s.Percent = float64(s.Completed) / float64(s.Total) * 100 //nolint:mnd
	}

	return s
}
