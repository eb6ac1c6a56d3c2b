// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// EventType identifies what happened.
type EventType int

const (
	// EventStarted is emitted once when execution begins.
	EventStarted EventType = iota
	// EventJobCompleted is emitted after a job output is persisted in sequential mode.
	EventJobCompleted
	// EventChunkCommitted is emitted after a whole chunk is persisted in parallel mode.
	EventChunkCommitted
	// EventChunkRetry is emitted when a chunk attempt is rejected and will be retried.
	EventChunkRetry
	// EventInterrupted is emitted when execution stops because of an interrupt.
	EventInterrupted
	// EventFailed is emitted when execution aborts with an error.
	EventFailed
	// EventCompleted is emitted when every job has an output.
	EventCompleted
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventJobCompleted:
		return "job-completed"
	case EventChunkCommitted:
		return "chunk-committed"
	case EventChunkRetry:
		return "chunk-retry"
	case EventInterrupted:
		return "interrupted"
	case EventFailed:
		return "failed"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events follow this type.
func (et EventType) Terminal() bool {
	return et == EventInterrupted || et == EventFailed || et == EventCompleted
}

// Event is a progress update keyed by current/total job count.
type Event struct {
	Type      EventType
	RunID     string
	Current   int // jobs with a persisted output
	Total     int // jobs in the batch
	Chunk     int // chunk index in parallel mode, -1 otherwise
	Attempt   int // attempt number for chunk events
	Message   string
	Err       error
	Timestamp time.Time
}

// Percent returns Current/Total in the range [0, 100].
func (e Event) Percent() float64 {
	if e.Total <= 0 {
		return 0
	}

	return float64(e.Current) / float64(e.Total) * 100 //nolint:mnd
}

// Reporter receives events. Implementations must not block the caller.
type Reporter interface {
	Report(event Event)
	Close()
}

// Listener consumes events forwarded by a ChannelReporter.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(event Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(event Event) {
	f(event)
}

// NullReporter discards every event.
type NullReporter struct{}

// Report implements Reporter.
func (NullReporter) Report(Event) {}

// Close implements Reporter.
func (NullReporter) Close() {}

// NewNullReporter returns a Reporter that discards events.
func NewNullReporter() Reporter {
	return NullReporter{}
}
