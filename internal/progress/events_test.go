// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventType_String(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventStarted, "started"},
		{EventJobCompleted, "job-completed"},
		{EventChunkCommitted, "chunk-committed"},
		{EventChunkRetry, "chunk-retry"},
		{EventInterrupted, "interrupted"},
		{EventFailed, "failed"},
		{EventCompleted, "completed"},
		{EventType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.eventType.String())
		})
	}
}

func TestEventType_Terminal(t *testing.T) {
	assert.True(t, EventCompleted.Terminal())
	assert.True(t, EventFailed.Terminal())
	assert.True(t, EventInterrupted.Terminal())
	assert.False(t, EventChunkRetry.Terminal())
}

func TestEvent_Percent(t *testing.T) {
	assert.InDelta(t, 50.0, Event{Current: 2, Total: 4}.Percent(), 0.001)
	assert.Zero(t, Event{Current: 2}.Percent())
}

func TestNullReporter(t *testing.T) {
	reporter := NewNullReporter()
	require.NotNil(t, reporter)

	reporter.Report(Event{Type: EventStarted, Timestamp: time.Now()})
	reporter.Close()
}

func TestChannelReporter(t *testing.T) {
	defer goleak.VerifyNone(t)

	cr := NewChannelReporter(10)

	var (
		mu  sync.Mutex
		got []EventType
	)

	cr.Listen(ListenerFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()

		got = append(got, e.Type)
	}))

	cr.Report(Event{Type: EventStarted})
	cr.Report(Event{Type: EventJobCompleted, Current: 1, Total: 2})
	cr.Report(Event{Type: EventCompleted, Current: 2, Total: 2})
	cr.Close()

	// reports after close are dropped, closing twice is fine
	cr.Report(Event{Type: EventFailed})
	cr.Close()

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []EventType{EventStarted, EventJobCompleted, EventCompleted}, got)
}

func TestChannelReporter_DropsWhenFull(t *testing.T) {
	cr := NewChannelReporter(1)

	cr.Report(Event{Type: EventStarted})
	cr.Report(Event{Type: EventCompleted})

	assert.Len(t, cr.Events(), 1)
	cr.Close()
}

func TestBellNotifier(t *testing.T) {
	buf := &bytes.Buffer{}
	n := BellNotifier{W: buf}

	n.Notify(CueComplete)
	assert.Equal(t, "\a", buf.String())

	buf.Reset()
	n.Notify(CueInterrupt)
	assert.Equal(t, "\a\a", buf.String())

	buf.Reset()
	n.Notify(CueError)
	assert.Equal(t, "\a\a\a", buf.String())

	BellNotifier{}.Notify(CueError)
	NopNotifier{}.Notify(CueError)
}
