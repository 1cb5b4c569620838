// Package types defines the shared types used across all FieldVoice packages.
//
// These types form the lingua franca between the speech source providers, the
// interpretation layer, and the capture controller. They are intentionally
// minimal — each package defines its own domain types, but cross-cutting data
// structures live here to avoid circular imports.
package types

// EventKind discriminates the variants of a [TranscriptEvent].
type EventKind string

const (
	// EventPartial is a low-latency interim recognition guess. Partial text
	// is suitable for live UI feedback but must never be fed to parsing.
	EventPartial EventKind = "partial"

	// EventFinal is an authoritative recognition result. Final text is
	// appended to the accumulated transcript for the active capture.
	EventFinal EventKind = "final"

	// EventEnd signals end-of-capture: the speech source has finished the
	// utterance and no further text events will be delivered.
	EventEnd EventKind = "end"

	// EventError signals a capture failure. The Code field carries one of
	// the well-known [ErrorCode] values.
	EventError EventKind = "error"
)

// TranscriptEvent is a single event delivered by a speech source. It is a
// tagged variant: Kind selects which of the remaining fields are meaningful.
//
//	EventPartial, EventFinal — Text is set.
//	EventEnd                 — no payload.
//	EventError               — Code is set.
//
// Events are transient: they are consumed immediately by the capture
// controller and never retained.
type TranscriptEvent struct {
	Kind EventKind

	// Text is the recognized speech for partial and final events.
	Text string

	// Code classifies the failure for error events.
	Code ErrorCode
}

// Partial returns a partial-text transcript event.
func Partial(text string) TranscriptEvent {
	return TranscriptEvent{Kind: EventPartial, Text: text}
}

// Final returns a final-text transcript event.
func Final(text string) TranscriptEvent {
	return TranscriptEvent{Kind: EventFinal, Text: text}
}

// End returns an end-of-capture event.
func End() TranscriptEvent {
	return TranscriptEvent{Kind: EventEnd}
}

// CaptureError returns an error event with the given code.
func CaptureError(code ErrorCode) TranscriptEvent {
	return TranscriptEvent{Kind: EventError, Code: code}
}

// ErrorCode classifies speech capture failures. The set is fixed by the
// speech source contract; unknown codes are treated as ErrNetwork.
type ErrorCode string

const (
	// ErrNoSpeech means the capture window closed without detecting speech.
	ErrNoSpeech ErrorCode = "no-speech"

	// ErrNoDevice means no capture device was available.
	ErrNoDevice ErrorCode = "no-device"

	// ErrPermission means the capture device exists but access was denied.
	ErrPermission ErrorCode = "permission-denied"

	// ErrNetwork means the connection to the recognizer was lost.
	ErrNetwork ErrorCode = "network"

	// ErrAborted means the user cancelled the capture. Treated as a silent
	// return to idle, never surfaced as an error.
	ErrAborted ErrorCode = "aborted"
)

// RosterEntry is the minimal projection of a domain entity (project, task,
// or activity type) supplied by the caller for the duration of one parse.
// The interpretation layer never mutates or persists roster entries.
type RosterEntry struct {
	// ID is the caller's identifier for the entity, echoed back in results.
	ID string `yaml:"id" json:"id"`

	// Name is the display name matched against the transcript.
	Name string `yaml:"name" json:"name"`

	// Status is the entity's lifecycle state (e.g., "active", "completed").
	// May be empty when the caller does not track status.
	Status string `yaml:"status,omitempty" json:"status,omitempty"`
}
