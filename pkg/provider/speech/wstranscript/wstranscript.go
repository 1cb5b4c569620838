// Package wstranscript provides a speech.Source backed by a recognizer
// gateway's streaming WebSocket feed. The gateway performs the actual speech
// recognition; this package is transport only — it subscribes to a feed of
// JSON transcript events and republishes them as [types.TranscriptEvent]
// values.
package wstranscript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"

	"github.com/crewtrack/fieldvoice/pkg/provider/speech"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

const (
	defaultLanguage = "en-US"

	// eventBuf is the buffer depth of the event channel. Sized to absorb
	// a burst of partials without stalling the read loop.
	eventBuf = 64
)

// Option is a functional option for configuring the Source.
type Option func(*Source)

// WithLanguage sets the default BCP-47 language tag sent to the gateway
// when the capture config leaves it empty.
func WithLanguage(language string) Option {
	return func(s *Source) { s.language = language }
}

// WithToken sets a Bearer token sent in the Authorization header of the
// WebSocket handshake.
func WithToken(token string) Option {
	return func(s *Source) { s.token = token }
}

// Source implements speech.Source backed by a recognizer gateway WebSocket
// endpoint.
type Source struct {
	endpoint string
	language string
	token    string
}

// Compile-time assertion that Source satisfies the speech.Source interface.
var _ speech.Source = (*Source)(nil)

// New creates a Source for the given gateway endpoint
// (e.g., "wss://gateway.example.com/transcripts").
func New(endpoint string, opts ...Option) (*Source, error) {
	if endpoint == "" {
		return nil, errors.New("wstranscript: endpoint must not be empty")
	}
	s := &Source{
		endpoint: endpoint,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Start opens a capture subscription with the gateway. Language and hints
// from cfg are passed as query parameters on the handshake.
func (s *Source) Start(ctx context.Context, cfg speech.Config) (speech.Stream, error) {
	wsURL, err := s.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("wstranscript: build URL: %w", err)
	}

	headers := http.Header{}
	if s.token != "" {
		headers.Set("Authorization", "Bearer "+s.token)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, &speech.StartError{
			Code: types.ErrNetwork,
			Err:  fmt.Errorf("wstranscript: dial: %w", err),
		}
	}

	st := &stream{
		conn:   conn,
		events: make(chan types.TranscriptEvent, eventBuf),
		done:   make(chan struct{}),
	}

	st.wg.Add(1)
	go st.readLoop(ctx)

	return st, nil
}

// buildURL constructs the gateway subscription URL for the given config.
func (s *Source) buildURL(cfg speech.Config) (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = s.language
	}

	q := u.Query()
	q.Set("language", lang)
	q.Set("interim", "true")
	for _, h := range cfg.Hints {
		q.Add("hint", h)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- stream ----

// gatewayEvent is the JSON wire format of one transcript event from the
// gateway feed.
type gatewayEvent struct {
	Type string `json:"type"` // "partial" | "final" | "end" | "error"
	Text string `json:"text,omitempty"`
	Code string `json:"code,omitempty"`
}

// stopMessage is the control message requesting a graceful end-of-capture.
// The gateway responds by flushing pending finals and sending an end event.
const stopMessage = `{"type":"stop"}`

// stream is one live gateway subscription. It implements speech.Stream.
type stream struct {
	conn   *websocket.Conn
	events chan types.TranscriptEvent

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	aborted bool
}

// Events returns the transcript event channel. It is closed after an end or
// error event, or after Abort.
func (s *stream) Events() <-chan types.TranscriptEvent {
	return s.events
}

// Stop requests a graceful end-of-capture. The gateway flushes pending
// finals and sends an end event, after which the read loop closes the
// channel.
func (s *stream) Stop() error {
	if err := s.conn.Write(context.Background(), websocket.MessageText, []byte(stopMessage)); err != nil {
		return fmt.Errorf("wstranscript: stop: %w", err)
	}
	return nil
}

// Abort drops the subscription immediately. The read loop exits and closes
// the event channel without an end marker or error event.
func (s *stream) Abort() error {
	s.mu.Lock()
	s.aborted = true
	s.mu.Unlock()
	s.conn.Close(websocket.StatusNormalClosure, "aborted")
	return nil
}

// Close releases all resources. Safe to call more than once.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.aborted = true
		s.mu.Unlock()
		s.conn.Close(websocket.StatusNormalClosure, "closed")
		s.wg.Wait()
	})
	return nil
}

// readLoop receives JSON messages from the gateway and republishes them on
// the event channel until a terminal event or connection loss.
func (s *stream) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// An aborted or closed stream exits silently; an unexpected
			// connection loss surfaces as a network error.
			s.mu.Lock()
			aborted := s.aborted
			s.mu.Unlock()
			if !aborted {
				s.deliver(types.CaptureError(types.ErrNetwork))
			}
			return
		}

		ev, terminal, ok := parseGatewayEvent(msg)
		if !ok {
			continue
		}
		s.deliver(ev)
		if terminal {
			return
		}
	}
}

// deliver sends ev unless the stream is shutting down.
func (s *stream) deliver(ev types.TranscriptEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// parseGatewayEvent parses a raw gateway message into a TranscriptEvent.
// terminal is true for end and error events, which close the subscription.
// Returns ok=false for unknown or malformed messages, which are ignored.
func parseGatewayEvent(data []byte) (ev types.TranscriptEvent, terminal, ok bool) {
	var ge gatewayEvent
	if err := json.Unmarshal(data, &ge); err != nil {
		return types.TranscriptEvent{}, false, false
	}

	switch ge.Type {
	case "partial":
		return types.Partial(ge.Text), false, true
	case "final":
		return types.Final(ge.Text), false, true
	case "end":
		return types.End(), true, true
	case "error":
		code := types.ErrorCode(ge.Code)
		switch code {
		case types.ErrNoSpeech, types.ErrNoDevice, types.ErrPermission, types.ErrNetwork, types.ErrAborted:
		default:
			code = types.ErrNetwork
		}
		return types.CaptureError(code), true, true
	default:
		return types.TranscriptEvent{}, false, false
	}
}
