package agent

import (
	"context"
	"sync"
)

// Stream delivers loop events to the host. Iterate with Next and Current;
// after Next returns false, Err reports how the run ended and Result holds
// the outcome when the run completed.
//
//	stream := loop.Run(ctx, prompt)
//	for stream.Next() {
//		handle(stream.Current())
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream struct {
	events  chan Event
	current Event

	mu     sync.Mutex
	err    error
	result *Result
}

func newStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 16
	}
	return &Stream{events: make(chan Event, buffer)}
}

// Next advances to the next event. It returns false when the run is over.
func (s *Stream) Next() bool {
	event, ok := <-s.events
	if !ok {
		return false
	}
	s.current = event
	return true
}

// Current returns the event Next advanced to.
func (s *Stream) Current() Event { return s.current }

// Err returns the terminal error of the run, if any. Valid after Next has
// returned false.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Result returns the run outcome. Valid after Next has returned false; nil
// when the run failed.
func (s *Stream) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// emit sends an event unless the consumer is gone.
func (s *Stream) emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// finish records the run outcome and closes the stream.
func (s *Stream) finish(result *Result, err error) {
	s.mu.Lock()
	s.result = result
	s.err = err
	s.mu.Unlock()
	close(s.events)
}
