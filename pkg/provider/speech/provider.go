// Package speech defines the Source interface for streaming transcript
// providers.
//
// FieldVoice does not perform speech recognition itself — it consumes the
// output of an external recognizer (a phone app, a browser capture layer,
// or a recognizer gateway) as an opaque stream of
// [types.TranscriptEvent] values: interim partials for live feedback,
// authoritative finals for interpretation, an end-of-capture marker, and a
// closed set of error codes.
//
// Implementations must be safe for concurrent use. The event channel is
// goroutine-safe by construction.
package speech

import (
	"context"

	"github.com/crewtrack/fieldvoice/pkg/types"
)

// Config describes the recognition hints for a new capture.
type Config struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// Empty lets the recognizer auto-detect, if supported.
	Language string

	// Hints is a list of vocabulary hints (project names, task titles)
	// that increase recognition probability for uncommon words. Providers
	// that do not support hints ignore it.
	Hints []string
}

// Stream represents one open capture. Events are delivered in order on the
// Events channel; the channel is closed after an end or error event, or
// after Abort.
//
// Callers must call Close when the stream is no longer needed. All methods
// must be safe for concurrent use.
type Stream interface {
	// Events returns the read-only event channel for this capture. The
	// channel is closed when the capture ends, fails, or is aborted.
	Events() <-chan types.TranscriptEvent

	// Stop requests a graceful end-of-capture: the provider flushes any
	// pending finals, emits an end event, and closes the channel.
	Stop() error

	// Abort drops the capture immediately. No further events are emitted;
	// the channel is closed without an end marker.
	Abort() error

	// Close releases all resources. Calling Close more than once is safe
	// and returns nil.
	Close() error
}

// StartError classifies a [Source.Start] failure with one of the closed
// capture error codes so the caller can surface the matching user-facing
// message. Providers wrap connection-level failures with [types.ErrNetwork];
// Start errors that carry no StartError are treated as device failures.
type StartError struct {
	Code types.ErrorCode
	Err  error
}

func (e *StartError) Error() string { return e.Err.Error() }

func (e *StartError) Unwrap() error { return e.Err }

// Source is the abstraction over any streaming transcript provider.
//
// Implementations must be safe for concurrent use; multiple captures may
// be open simultaneously (e.g., one per crew member's device).
type Source interface {
	// Start opens a new capture. The returned Stream is live immediately.
	// Returns an error when the capture cannot be established (device
	// missing, permission denied, ctx already cancelled).
	Start(ctx context.Context, cfg Config) (Stream, error)
}
