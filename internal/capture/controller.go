// Package capture implements the interpretation session controller: a state
// machine that owns one active capture/parse cycle per controller instance.
//
// The controller consumes streaming [types.TranscriptEvent] values from a
// [speech.Source], accumulates final text, and on end-of-capture classifies
// and parses the transcript into a structured result. Interim text is exposed
// for live UI feedback but never fed to parsing.
//
// State flow: idle → listening → processing → {success | error} → idle. The
// success and error states are resting states — StartListening is accepted
// again from either, as well as from idle.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crewtrack/fieldvoice/internal/interpret"
	"github.com/crewtrack/fieldvoice/internal/observe"
	"github.com/crewtrack/fieldvoice/internal/transcript"
	"github.com/crewtrack/fieldvoice/pkg/provider/speech"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

// State is the controller's lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// InvalidStateError reports an operation attempted in a state that does not
// permit it.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return "capture: " + e.Op + " not valid in state " + string(e.State)
}

// errorMessages maps speech-source error codes to the fixed user-facing
// message table. ErrAborted is absent deliberately: an aborted capture
// returns silently to idle.
var errorMessages = map[types.ErrorCode]string{
	types.ErrNoSpeech:   "No speech detected. Try again and speak clearly.",
	types.ErrNoDevice:   "No microphone found. Check that a capture device is connected.",
	types.ErrPermission: "Microphone access was denied. Allow microphone permission and retry.",
	types.ErrNetwork:    "Lost connection to the speech service. Check your network and retry.",
}

// ListenRequest configures one capture cycle.
type ListenRequest struct {
	// Force pins the command type, skipping classification. Empty means
	// classify from the transcript.
	Force interpret.CommandType

	// Projects and Tasks are read-only roster snapshots for this parse.
	Projects []types.RosterEntry
	Tasks    []types.RosterEntry

	// Hints is extra recognition vocabulary forwarded to the speech
	// source alongside the roster names.
	Hints []string

	// Language is the BCP-47 language tag forwarded to the speech source.
	Language string

	// MaxHours and WarnHours override the time-entry sanity bounds. Zero
	// means the parser defaults.
	MaxHours  float64
	WarnHours float64

	// SuggestionFloor and SuggestionLimit override the task suggestion
	// tuning. Zero means the parser defaults.
	SuggestionFloor float64
	SuggestionLimit int
}

// Outcome is the parsed result of one completed capture. Exactly one of the
// three result fields is non-nil, selected by Type.
type Outcome struct {
	// CaptureID identifies the capture cycle that produced this outcome.
	CaptureID string

	// Type is the command type that was parsed (forced or classified).
	Type interpret.CommandType

	TimeEntry *interpret.TimeEntryResult
	Task      *interpret.TaskCommandResult
	DailyLog  *interpret.DailyLogResult
}

// Success reports whether the underlying parse succeeded.
func (o *Outcome) Success() bool {
	switch {
	case o.TimeEntry != nil:
		return o.TimeEntry.Result.Success
	case o.Task != nil:
		return o.Task.Result.Success
	case o.DailyLog != nil:
		return o.DailyLog.Result.Success
	}
	return false
}

// MarshalJSON renders the populated result variant with its command type.
func (o *Outcome) MarshalJSON() ([]byte, error) {
	var result any
	switch {
	case o.TimeEntry != nil:
		result = o.TimeEntry
	case o.Task != nil:
		result = o.Task
	case o.DailyLog != nil:
		result = o.DailyLog
	}
	return json.Marshal(struct {
		CaptureID string                `json:"capture_id"`
		Type      interpret.CommandType `json:"type"`
		Result    any                   `json:"result"`
	}{o.CaptureID, o.Type, result})
}

// Controller is the interpretation session controller. It is safe for
// concurrent use; the state machine, not the caller, enforces that at most
// one capture is active at a time.
type Controller struct {
	source speech.Source
	log    *slog.Logger

	metrics   *observe.Metrics
	corrector *transcript.Corrector

	onState  func(State)
	onResult func(*Outcome)
	onError  func(code types.ErrorCode, message string)

	mu sync.Mutex
	// Guarded by mu.
	state      State
	captureID  string
	stream     speech.Stream
	transcript []string
	interim    string
	lastErr    string
	lastResult *Outcome
	started    time.Time

	// wg tracks the event-loop goroutine so Cancel and tests can
	// synchronise with its exit.
	wg sync.WaitGroup
}

// Option is a functional option for configuring a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger. Default: slog.Default with a
// component attribute.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMetrics enables OTel metric recording for this controller.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithCorrector enables roster-vocabulary transcript correction before
// classification and parsing.
func WithCorrector(tc *transcript.Corrector) Option {
	return func(c *Controller) { c.corrector = tc }
}

// WithStateCallback registers fn to be invoked on every state transition.
// The callback runs outside the controller lock; it must not block for long.
func WithStateCallback(fn func(State)) Option {
	return func(c *Controller) { c.onState = fn }
}

// WithResultCallback registers fn to be invoked with the parsed outcome of
// each completed capture, successful or not.
func WithResultCallback(fn func(*Outcome)) Option {
	return func(c *Controller) { c.onResult = fn }
}

// WithErrorCallback registers fn to be invoked with the user-facing message
// for each capture failure. Aborted captures do not trigger it.
func WithErrorCallback(fn func(code types.ErrorCode, message string)) Option {
	return func(c *Controller) { c.onError = fn }
}

// New constructs a Controller reading from source.
func New(source speech.Source, opts ...Option) *Controller {
	c := &Controller{
		source: source,
		state:  StateIdle,
		log:    slog.Default().With(slog.String("component", "capture")),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InterimTranscript returns the latest partial recognition text, for live
// feedback. Empty outside the listening state.
func (c *Controller) InterimTranscript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interim
}

// Transcript returns the accumulated final transcript so far.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return joinTranscript(c.transcript)
}

// LastError returns the user-facing message of the most recent capture
// failure, or empty.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastResult returns the outcome of the most recent completed capture, or
// nil.
func (c *Controller) LastResult() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// StartListening opens a capture on the speech source and begins consuming
// events. It is rejected (with an error) while a capture is already active:
// only idle, success, and error states accept a new capture.
func (c *Controller) StartListening(ctx context.Context, req ListenRequest) error {
	c.mu.Lock()
	switch c.state {
	case StateIdle, StateSuccess, StateError:
	default:
		state := c.state
		c.mu.Unlock()
		return &InvalidStateError{Op: "StartListening", State: state}
	}

	id := uuid.NewString()
	c.captureID = id
	c.transcript = nil
	c.interim = ""
	c.started = time.Now()
	c.mu.Unlock()

	hints := make([]string, 0, len(req.Hints)+len(req.Projects)+len(req.Tasks))
	hints = append(hints, req.Hints...)
	for _, p := range req.Projects {
		hints = append(hints, p.Name)
	}
	for _, t := range req.Tasks {
		hints = append(hints, t.Name)
	}

	stream, err := c.source.Start(ctx, speech.Config{Language: req.Language, Hints: hints})
	if err != nil {
		c.log.Error("speech source start failed", slog.String("capture_id", id), slog.String("error", err.Error()))
		c.fail(ctx, id, startErrorCode(err))
		return err
	}

	c.mu.Lock()
	c.stream = stream
	c.mu.Unlock()
	c.transition(StateListening)

	if c.metrics != nil {
		c.metrics.ActiveCaptures.Add(ctx, 1)
	}
	c.log.Info("capture started", slog.String("capture_id", id))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.eventLoop(ctx, id, req, stream)
	}()
	return nil
}

// StopListening requests a graceful end-of-capture. The speech source
// flushes pending finals and emits an end event, which drives processing.
// A no-op outside the listening state.
func (c *Controller) StopListening() {
	c.mu.Lock()
	stream := c.stream
	active := c.state == StateListening
	c.mu.Unlock()
	if !active || stream == nil {
		return
	}
	if err := stream.Stop(); err != nil {
		c.log.Warn("stream stop failed", slog.String("error", err.Error()))
	}
}

// Cancel aborts the active capture, discards the accumulated transcript, and
// returns to idle without invoking a parser. Valid from any state; a no-op
// in idle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	stream := c.stream
	c.stream = nil
	c.transcript = nil
	c.interim = ""
	id := c.captureID
	// Invalidate the capture ID so the event loop's processing and
	// failure paths become no-ops for this capture.
	c.captureID = ""
	c.mu.Unlock()

	if stream != nil {
		if err := stream.Abort(); err != nil {
			c.log.Warn("stream abort failed", slog.String("error", err.Error()))
		}
		_ = stream.Close()
	}
	c.log.Info("capture cancelled", slog.String("capture_id", id))
	c.transition(StateIdle)
}

// Reset performs Cancel plus clears the last error and result, returning
// the controller fully to its initial state.
func (c *Controller) Reset() {
	c.Cancel()
	c.mu.Lock()
	c.lastErr = ""
	c.lastResult = nil
	c.captureID = ""
	c.mu.Unlock()
}

// Wait blocks until the event-loop goroutine of the most recent capture has
// exited. Primarily useful in tests.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// eventLoop consumes the stream until it closes or delivers a terminal
// event, then drives processing.
func (c *Controller) eventLoop(ctx context.Context, id string, req ListenRequest, stream speech.Stream) {
	defer func() {
		_ = stream.Close()
		if c.metrics != nil {
			c.metrics.ActiveCaptures.Add(ctx, -1)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = stream.Abort()
			c.abortSilently(id)
			return
		case ev, ok := <-stream.Events():
			if !ok {
				// Channel closed without an explicit end event: an
				// abort, or a provider that closes instead of
				// emitting end. Process what we have.
				c.process(ctx, id, req)
				return
			}
			switch ev.Kind {
			case types.EventPartial:
				c.mu.Lock()
				if c.captureID == id {
					c.interim = ev.Text
				}
				c.mu.Unlock()
			case types.EventFinal:
				c.mu.Lock()
				if c.captureID == id {
					c.transcript = append(c.transcript, ev.Text)
					c.interim = ""
				}
				c.mu.Unlock()
			case types.EventEnd:
				c.process(ctx, id, req)
				return
			case types.EventError:
				if ev.Code == types.ErrAborted {
					c.abortSilently(id)
					return
				}
				c.fail(ctx, id, ev.Code)
				return
			}
		}
	}
}

// process runs classification and the matching domain parser over the
// accumulated transcript, then transitions to success or error.
func (c *Controller) process(ctx context.Context, id string, req ListenRequest) {
	c.mu.Lock()
	if c.captureID != id || c.state != StateListening {
		// A concurrent Cancel already won.
		c.mu.Unlock()
		return
	}
	transcript := joinTranscript(c.transcript)
	c.interim = ""
	c.stream = nil
	started := c.started
	c.mu.Unlock()

	if transcript == "" {
		c.fail(ctx, id, types.ErrNoSpeech)
		return
	}

	c.transition(StateProcessing)

	ctx, span := observe.StartSpan(ctx, "capture.process")
	defer span.End()

	if c.corrector != nil {
		corrected, fixes := c.corrector.Correct(transcript, rosterNames(req))
		for _, fix := range fixes {
			c.log.Debug("transcript corrected",
				slog.String("capture_id", id),
				slog.String("from", fix.From),
				slog.String("to", fix.To),
			)
		}
		transcript = corrected
	}

	cmdType := req.Force
	if cmdType == "" {
		cmdType = interpret.Classify(transcript)
		if c.metrics != nil {
			c.metrics.RecordClassification(ctx, string(cmdType))
		}
	}

	outcome := &Outcome{CaptureID: id, Type: cmdType}
	switch cmdType {
	case interpret.CommandTimeEntry:
		r := interpret.ParseTimeEntry(transcript, interpret.TimeEntryContext{
			Projects:  req.Projects,
			MaxHours:  req.MaxHours,
			WarnHours: req.WarnHours,
		})
		outcome.TimeEntry = &r
	case interpret.CommandTask:
		r := interpret.ParseTaskCommand(transcript, interpret.TaskContext{
			Tasks:           req.Tasks,
			SuggestionFloor: req.SuggestionFloor,
			SuggestionLimit: req.SuggestionLimit,
		})
		outcome.Task = &r
	default:
		r := interpret.ParseDailyLog(transcript, interpret.DailyLogContext{Projects: req.Projects})
		outcome.DailyLog = &r
	}

	status := "failure"
	if outcome.Success() {
		status = "success"
	}
	if c.metrics != nil {
		c.metrics.RecordInterpret(ctx, string(cmdType), status, time.Since(started).Seconds())
		recordMatchConfidences(ctx, c.metrics, outcome)
	}
	c.log.Info("capture processed",
		slog.String("capture_id", id),
		slog.String("command_type", string(cmdType)),
		slog.String("status", status),
	)

	c.mu.Lock()
	if c.captureID != id {
		// Cancelled while the parser ran; the result must not surface.
		c.mu.Unlock()
		return
	}
	c.lastResult = outcome
	if outcome.Success() {
		c.lastErr = ""
	} else {
		c.lastErr = parseError(outcome)
	}
	c.mu.Unlock()

	if outcome.Success() {
		c.transition(StateSuccess)
	} else {
		c.transition(StateError)
	}
	if c.onResult != nil {
		c.onResult(outcome)
	}
}

// fail records a capture error, notifies the error callback, and moves to
// the error state.
func (c *Controller) fail(ctx context.Context, id string, code types.ErrorCode) {
	msg, ok := errorMessages[code]
	if !ok {
		msg = errorMessages[types.ErrNetwork]
		code = types.ErrNetwork
	}

	c.mu.Lock()
	if c.captureID != id {
		c.mu.Unlock()
		return
	}
	c.stream = nil
	c.transcript = nil
	c.interim = ""
	c.lastErr = msg
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCaptureError(ctx, string(code))
	}
	c.log.Warn("capture failed", slog.String("capture_id", id), slog.String("code", string(code)))

	c.transition(StateError)
	if c.onError != nil {
		c.onError(code, msg)
	}
}

// abortSilently returns to idle with no error surfaced. Used for
// user-aborted captures and context cancellation.
func (c *Controller) abortSilently(id string) {
	c.mu.Lock()
	if c.captureID != id {
		c.mu.Unlock()
		return
	}
	c.stream = nil
	c.transcript = nil
	c.interim = ""
	c.mu.Unlock()

	c.log.Info("capture aborted", slog.String("capture_id", id))
	c.transition(StateIdle)
}

// transition updates the state and invokes the state callback outside the
// lock.
func (c *Controller) transition(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.onState != nil {
		c.onState(s)
	}
}

// startErrorCode resolves the capture error code of a source start failure.
// Sources classify their own failures via [speech.StartError]; anything
// unclassified is treated as a missing capture device.
func startErrorCode(err error) types.ErrorCode {
	var se *speech.StartError
	if errors.As(err, &se) {
		return se.Code
	}
	return types.ErrNoDevice
}

// recordMatchConfidences feeds the component entity-match scores of a
// completed parse into the match confidence histogram, one observation per
// matched entity.
func recordMatchConfidences(ctx context.Context, m *observe.Metrics, o *Outcome) {
	switch {
	case o.TimeEntry != nil:
		if o.TimeEntry.ActivityType != "" {
			m.RecordMatchConfidence(ctx, "activity", o.TimeEntry.ActivityConfidence)
		}
		if o.TimeEntry.ProjectID != "" {
			m.RecordMatchConfidence(ctx, "project", o.TimeEntry.ProjectConfidence)
		}
	case o.Task != nil:
		if o.Task.TaskID != "" {
			m.RecordMatchConfidence(ctx, "task", o.Task.TaskMatchConfidence)
		}
	case o.DailyLog != nil:
		if o.DailyLog.ProjectID != "" {
			m.RecordMatchConfidence(ctx, "project", o.DailyLog.ProjectConfidence)
		}
	}
}

// parseError extracts the failure message of the populated result variant.
func parseError(o *Outcome) string {
	switch {
	case o.TimeEntry != nil:
		return o.TimeEntry.Result.Error
	case o.Task != nil:
		return o.Task.Result.Error
	case o.DailyLog != nil:
		return o.DailyLog.Result.Error
	}
	return ""
}

// rosterNames collects the project and task names of a request into one
// correction vocabulary.
func rosterNames(req ListenRequest) []string {
	names := make([]string, 0, len(req.Projects)+len(req.Tasks))
	for _, p := range req.Projects {
		names = append(names, p.Name)
	}
	for _, t := range req.Tasks {
		names = append(names, t.Name)
	}
	return names
}

// joinTranscript concatenates final segments with single spaces.
func joinTranscript(segments []string) string {
	out := ""
	for _, s := range segments {
		if s == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += s
	}
	return out
}
