// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"io"
	"strings"
)

// Cue is an audible notification.
type Cue int

const (
	// CueComplete signals a finished batch.
	CueComplete Cue = iota
	// CueError signals an aborted batch.
	CueError
	// CueInterrupt signals a batch stopped by an interrupt.
	CueInterrupt
)

// String implements the Stringer interface for Cue.
func (c Cue) String() string {
	switch c {
	case CueComplete:
		return "complete"
	case CueError:
		return "error"
	case CueInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Notifier plays cues.
type Notifier interface {
	Notify(cue Cue)
}

// NopNotifier ignores cues.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Cue) {}

const bell = "\a"

// BellNotifier rings the terminal bell: once on completion, twice on interrupt and three times on error.
type BellNotifier struct {
	W io.Writer
}

// Notify implements Notifier.
func (b BellNotifier) Notify(cue Cue) {
	if b.W == nil {
		return
	}

	n := 1

	switch cue {
	case CueInterrupt:
		n = 2
	case CueError:
		n = 3
	}

	_, _ = io.WriteString(b.W, strings.Repeat(bell, n))
}
