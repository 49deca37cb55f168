package codedoc

import (
	"sync"
	"time"
)

// ProgressEvent reports one job state transition.
type ProgressEvent struct {
	UnitID string    `json:"unitId"`
	State  JobState  `json:"state"`
	At     time.Time `json:"at"`

	// Err carries the failure for failed_retryable and failed_terminal
	// transitions.
	Err error `json:"-"`
}

// ProgressFunc is a callback for reporting analysis progress.
type ProgressFunc func(event ProgressEvent)

// ProgressStream buffers progress events for a presentation layer over a
// bounded channel. Publishing never blocks: when the buffer is full the
// oldest event is dropped so a slow or absent consumer cannot stall the
// scheduler.
type ProgressStream struct {
	mu      sync.Mutex
	ch      chan ProgressEvent
	dropped int
	closed  bool
}

// NewProgressStream creates a stream with the given buffer size.
func NewProgressStream(size int) *ProgressStream {
	if size <= 0 {
		size = 64
	}
	return &ProgressStream{ch: make(chan ProgressEvent, size)}
}

// Publish enqueues an event, dropping the oldest buffered event if the
// channel is full. Safe for concurrent use.
func (s *ProgressStream) Publish(event ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- event:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped++
		default:
		}
	}
}

// Events returns the receive side of the stream.
func (s *ProgressStream) Events() <-chan ProgressEvent {
	return s.ch
}

// Dropped returns the number of events discarded due to a full buffer.
func (s *ProgressStream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close marks the stream finished and closes the channel. Publish becomes a
// no-op afterwards.
func (s *ProgressStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
