// Package mock provides test doubles for the speech package interfaces.
//
// Use Source to verify that the caller starts captures with the expected
// Config. Use Stream to feed controlled transcript events to a consumer.
//
// Example:
//
//	st := mock.NewStream()
//	src := &mock.Source{Stream: st}
//	// ... hand src to the code under test, then:
//	st.Emit(types.Final("log four hours framing"))
//	st.Emit(types.End())
//	st.CloseEvents()
package mock

import (
	"context"
	"sync"

	"github.com/crewtrack/fieldvoice/pkg/provider/speech"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

// StartCall records a single invocation of Source.Start.
type StartCall struct {
	// Ctx is the context passed to Start.
	Ctx context.Context
	// Cfg is the Config passed to Start.
	Cfg speech.Config
}

// Source is a mock implementation of speech.Source.
type Source struct {
	mu sync.Mutex

	// Stream is returned by Start. If nil, Start returns a fresh
	// [NewStream].
	Stream speech.Stream

	// StartErr, if non-nil, is returned as the error from Start.
	StartErr error

	// StartCalls records every call to Start.
	StartCalls []StartCall
}

// Start records the call and returns Stream, StartErr.
func (s *Source) Start(ctx context.Context, cfg speech.Config) (speech.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartCalls = append(s.StartCalls, StartCall{Ctx: ctx, Cfg: cfg})
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	if s.Stream != nil {
		return s.Stream, nil
	}
	return NewStream(), nil
}

// Ensure Source implements speech.Source at compile time.
var _ speech.Source = (*Source)(nil)

// Stream is a mock implementation of speech.Stream. Tests drive it with
// [Stream.Emit] and [Stream.CloseEvents].
type Stream struct {
	mu sync.Mutex

	ch     chan types.TranscriptEvent
	closed bool

	// StopErr, AbortErr, and CloseErr are returned by the corresponding
	// methods when non-nil.
	StopErr  error
	AbortErr error
	CloseErr error

	// StopCalls, AbortCalls, and CloseCalls count invocations.
	StopCalls  int
	AbortCalls int
	CloseCalls int
}

// NewStream returns a Stream with a buffered event channel.
func NewStream() *Stream {
	return &Stream{ch: make(chan types.TranscriptEvent, 16)}
}

// Ensure Stream implements speech.Stream at compile time.
var _ speech.Stream = (*Stream)(nil)

// Emit delivers ev to the consumer. Panics when the channel is full —
// tests should size their scripts within the buffer.
func (s *Stream) Emit(ev types.TranscriptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- ev
}

// CloseEvents closes the event channel. Safe to call more than once.
func (s *Stream) CloseEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Events returns the mock event channel.
func (s *Stream) Events() <-chan types.TranscriptEvent {
	return s.ch
}

// Stop records the call, emits an end event, and closes the channel.
func (s *Stream) Stop() error {
	s.mu.Lock()
	s.StopCalls++
	err := s.StopErr
	closed := s.closed
	if !closed && err == nil {
		s.ch <- types.End()
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
	return err
}

// Abort records the call and closes the channel without an end marker.
func (s *Stream) Abort() error {
	s.mu.Lock()
	s.AbortCalls++
	err := s.AbortErr
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
	return err
}

// Close records the call and returns CloseErr.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	return s.CloseErr
}
