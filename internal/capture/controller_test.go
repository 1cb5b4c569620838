package capture_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/crewtrack/fieldvoice/internal/capture"
	"github.com/crewtrack/fieldvoice/internal/interpret"
	"github.com/crewtrack/fieldvoice/internal/observe"
	"github.com/crewtrack/fieldvoice/internal/transcript"
	"github.com/crewtrack/fieldvoice/pkg/provider/speech"
	"github.com/crewtrack/fieldvoice/pkg/provider/speech/mock"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

var testProjects = []types.RosterEntry{
	{ID: "p1", Name: "Smith House", Status: "active"},
	{ID: "p2", Name: "Downtown Office", Status: "active"},
}

var testTasks = []types.RosterEntry{
	{ID: "t1", Name: "Drywall installation", Status: "in_progress"},
	{ID: "t2", Name: "Electrical rough-in", Status: "pending"},
}

// waitInterim polls until the controller reports the expected interim
// transcript or the deadline passes.
func waitInterim(t *testing.T, c *capture.Controller, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.InterimTranscript() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("interim transcript = %q, want %q", c.InterimTranscript(), want)
}

func TestController_SuccessfulTimeEntryFlow(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}

	var states []capture.State
	var result *capture.Outcome
	c := capture.New(src,
		capture.WithStateCallback(func(s capture.State) { states = append(states, s) }),
		capture.WithResultCallback(func(o *capture.Outcome) { result = o }),
	)

	st.Emit(types.Partial("log four"))
	st.Emit(types.Final("log 4 hours framing at smith house"))
	st.Emit(types.End())

	if err := c.StartListening(context.Background(), capture.ListenRequest{Projects: testProjects}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	if got := c.State(); got != capture.StateSuccess {
		t.Fatalf("state = %q, want success", got)
	}
	if result == nil {
		t.Fatal("result callback not invoked")
	}
	if result.Type != interpret.CommandTimeEntry {
		t.Errorf("command type = %q, want time_entry", result.Type)
	}
	if result.TimeEntry == nil || !result.TimeEntry.Result.Success {
		t.Fatalf("time entry result = %+v, want success", result.TimeEntry)
	}
	if result.TimeEntry.Hours != 4 {
		t.Errorf("hours = %v, want 4", result.TimeEntry.Hours)
	}
	if result.TimeEntry.ProjectID != "p1" {
		t.Errorf("project = %q, want p1", result.TimeEntry.ProjectID)
	}

	// listening → processing → success, in order.
	want := []capture.State{capture.StateListening, capture.StateProcessing, capture.StateSuccess}
	if len(states) != len(want) {
		t.Fatalf("state transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("state transitions = %v, want %v", states, want)
		}
	}
}

func TestController_InterimNeverFedToParsing(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}
	c := capture.New(src)

	if err := c.StartListening(context.Background(), capture.ListenRequest{}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}

	st.Emit(types.Partial("log ninety nine hours"))
	waitInterim(t, c, "log ninety nine hours")

	if got := c.Transcript(); got != "" {
		t.Errorf("accumulated transcript = %q, want empty while only partials arrived", got)
	}

	st.Emit(types.Final("log 2 hours painting"))
	st.Emit(types.End())
	c.Wait()

	res := c.LastResult()
	if res == nil || res.TimeEntry == nil {
		t.Fatalf("result = %+v, want time entry", res)
	}
	if res.TimeEntry.Hours != 2 {
		t.Errorf("hours = %v, want 2 (partial text must not contribute)", res.TimeEntry.Hours)
	}
}

func TestController_FinalsAccumulateAcrossEvents(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}
	c := capture.New(src)

	st.Emit(types.Final("log 4 hours"))
	st.Emit(types.Final("framing at smith house"))
	st.Emit(types.End())

	if err := c.StartListening(context.Background(), capture.ListenRequest{Projects: testProjects}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	res := c.LastResult()
	if res == nil || res.TimeEntry == nil || !res.TimeEntry.Result.Success {
		t.Fatalf("result = %+v, want successful time entry", res)
	}
	if res.TimeEntry.RawTranscript != "log 4 hours framing at smith house" {
		t.Errorf("raw transcript = %q, want joined finals", res.TimeEntry.RawTranscript)
	}
}

func TestController_ForcedTypeSkipsClassification(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}
	c := capture.New(src)

	// "log drywall installation complete" would classify as time_entry
	// ("log" keyword); forcing task must override.
	st.Emit(types.Final("mark drywall installation complete"))
	st.Emit(types.End())

	req := capture.ListenRequest{Force: interpret.CommandTask, Tasks: testTasks}
	if err := c.StartListening(context.Background(), req); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	res := c.LastResult()
	if res == nil || res.Task == nil {
		t.Fatalf("result = %+v, want task result", res)
	}
	if res.Type != interpret.CommandTask {
		t.Errorf("type = %q, want task", res.Type)
	}
	if res.Task.TaskID != "t1" {
		t.Errorf("task ID = %q, want t1", res.Task.TaskID)
	}
}

func TestController_CaptureErrorMapsToMessage(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}

	var gotCode types.ErrorCode
	var gotMsg string
	c := capture.New(src,
		capture.WithErrorCallback(func(code types.ErrorCode, msg string) {
			gotCode, gotMsg = code, msg
		}),
	)

	st.Emit(types.CaptureError(types.ErrNetwork))

	if err := c.StartListening(context.Background(), capture.ListenRequest{}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	if got := c.State(); got != capture.StateError {
		t.Fatalf("state = %q, want error", got)
	}
	if gotCode != types.ErrNetwork {
		t.Errorf("error code = %q, want network", gotCode)
	}
	if gotMsg == "" || c.LastError() != gotMsg {
		t.Errorf("LastError = %q, callback message = %q, want matching non-empty", c.LastError(), gotMsg)
	}
}

func TestController_AbortedReturnsSilentlyToIdle(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}

	errCalled := false
	c := capture.New(src,
		capture.WithErrorCallback(func(types.ErrorCode, string) { errCalled = true }),
	)

	st.Emit(types.Final("log 4 hours"))
	st.Emit(types.CaptureError(types.ErrAborted))

	if err := c.StartListening(context.Background(), capture.ListenRequest{}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	if got := c.State(); got != capture.StateIdle {
		t.Fatalf("state = %q, want idle", got)
	}
	if errCalled {
		t.Error("error callback invoked for user abort")
	}
	if c.LastError() != "" {
		t.Errorf("LastError = %q, want empty", c.LastError())
	}
	if c.LastResult() != nil {
		t.Error("aborted capture produced a result")
	}
}

func TestController_EndWithoutSpeechIsNoSpeechError(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}
	c := capture.New(src)

	st.Emit(types.Partial("uh"))
	st.Emit(types.End())

	if err := c.StartListening(context.Background(), capture.ListenRequest{}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	if got := c.State(); got != capture.StateError {
		t.Fatalf("state = %q, want error", got)
	}
	if c.LastError() == "" {
		t.Error("LastError empty, want no-speech message")
	}
}

func TestController_CancelWhileIdleIsNoOp(t *testing.T) {
	t.Parallel()

	c := capture.New(&mock.Source{})
	c.Cancel()
	if got := c.State(); got != capture.StateIdle {
		t.Errorf("state after idle Cancel = %q, want idle", got)
	}
}

func TestController_CancelWhileListeningAbortsAndDiscards(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}
	c := capture.New(src)

	if err := c.StartListening(context.Background(), capture.ListenRequest{}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	st.Emit(types.Final("log 4 hours framing"))

	c.Cancel()
	c.Wait()

	if got := c.State(); got != capture.StateIdle {
		t.Fatalf("state = %q, want idle", got)
	}
	if st.AbortCalls == 0 {
		t.Error("Cancel did not abort the stream")
	}
	if c.LastResult() != nil {
		t.Error("cancelled capture produced a result")
	}
	if got := c.Transcript(); got != "" {
		t.Errorf("transcript after Cancel = %q, want empty", got)
	}
}

func TestController_CancelDuringProcessingDropsResult(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}

	// Cancel from inside the processing transition, after the transcript
	// is committed but before the parser's outcome is published.
	var c *capture.Controller
	resultSeen := false
	c = capture.New(src,
		capture.WithStateCallback(func(s capture.State) {
			if s == capture.StateProcessing {
				c.Cancel()
			}
		}),
		capture.WithResultCallback(func(*capture.Outcome) { resultSeen = true }),
	)

	st.Emit(types.Final("log 4 hours framing"))
	st.Emit(types.End())

	if err := c.StartListening(context.Background(), capture.ListenRequest{Projects: testProjects}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	if got := c.State(); got != capture.StateIdle {
		t.Fatalf("state = %q, want idle after Cancel", got)
	}
	if resultSeen {
		t.Error("result callback fired for a cancelled capture")
	}
	if c.LastResult() != nil {
		t.Error("cancelled capture published a result")
	}
}

func TestController_StartWhileListeningRejected(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}
	c := capture.New(src)

	if err := c.StartListening(context.Background(), capture.ListenRequest{}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	t.Cleanup(func() { c.Cancel(); c.Wait() })

	err := c.StartListening(context.Background(), capture.ListenRequest{})
	var ise *capture.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("second StartListening error = %v, want InvalidStateError", err)
	}
	if ise.State != capture.StateListening {
		t.Errorf("rejected in state %q, want listening", ise.State)
	}
	if len(src.StartCalls) != 1 {
		t.Errorf("source started %d times, want 1", len(src.StartCalls))
	}
}

func TestController_RestartAllowedFromRestingStates(t *testing.T) {
	t.Parallel()

	st1 := mock.NewStream()
	src := &mock.Source{Stream: st1}
	c := capture.New(src)

	st1.Emit(types.Final("log 3 hours painting"))
	st1.Emit(types.End())
	if err := c.StartListening(context.Background(), capture.ListenRequest{}); err != nil {
		t.Fatalf("first StartListening: %v", err)
	}
	c.Wait()
	if got := c.State(); got != capture.StateSuccess {
		t.Fatalf("state = %q, want success", got)
	}

	st2 := mock.NewStream()
	src.Stream = st2
	st2.Emit(types.Final("log 5 hours roofing"))
	st2.Emit(types.End())
	if err := c.StartListening(context.Background(), capture.ListenRequest{}); err != nil {
		t.Fatalf("second StartListening from success: %v", err)
	}
	c.Wait()

	res := c.LastResult()
	if res == nil || res.TimeEntry == nil || res.TimeEntry.Hours != 5 {
		t.Fatalf("second capture result = %+v, want 5 hours", res)
	}
}

func TestController_ResetClearsErrorAndResult(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}
	c := capture.New(src)

	st.Emit(types.CaptureError(types.ErrNoSpeech))
	if err := c.StartListening(context.Background(), capture.ListenRequest{}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()
	if c.LastError() == "" {
		t.Fatal("expected a capture error before Reset")
	}

	c.Reset()

	if got := c.State(); got != capture.StateIdle {
		t.Errorf("state after Reset = %q, want idle", got)
	}
	if c.LastError() != "" {
		t.Errorf("LastError after Reset = %q, want empty", c.LastError())
	}
	if c.LastResult() != nil {
		t.Error("LastResult after Reset is non-nil")
	}
}

func TestController_RosterNamesForwardedAsHints(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}
	c := capture.New(src)

	st.Emit(types.End())
	req := capture.ListenRequest{
		Projects: testProjects,
		Tasks:    testTasks,
		Hints:    []string{"rebar"},
		Language: "en-US",
	}
	if err := c.StartListening(context.Background(), req); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	if len(src.StartCalls) != 1 {
		t.Fatalf("source started %d times, want 1", len(src.StartCalls))
	}
	cfg := src.StartCalls[0].Cfg
	if cfg.Language != "en-US" {
		t.Errorf("language = %q, want en-US", cfg.Language)
	}
	wantHints := map[string]bool{"rebar": false, "Smith House": false, "Drywall installation": false}
	for _, h := range cfg.Hints {
		if _, ok := wantHints[h]; ok {
			wantHints[h] = true
		}
	}
	for h, seen := range wantHints {
		if !seen {
			t.Errorf("hint %q not forwarded (got %v)", h, cfg.Hints)
		}
	}
}

func TestController_TuningOverridesReachParsers(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}

	var result *capture.Outcome
	c := capture.New(src,
		capture.WithResultCallback(func(o *capture.Outcome) { result = o }),
	)

	st.Emit(types.Final("log 10 hours framing"))
	st.Emit(types.End())

	req := capture.ListenRequest{
		Projects: testProjects,
		MaxHours: 8,
	}
	if err := c.StartListening(context.Background(), req); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	// 10 hours exceeds the tightened bound, so the parse must fail even
	// though the default bound of 24 would allow it.
	if got := c.State(); got != capture.StateError {
		t.Fatalf("state = %q, want error", got)
	}
	if result == nil || result.TimeEntry == nil {
		t.Fatal("expected a time entry outcome")
	}
	if result.TimeEntry.Result.Success {
		t.Error("parse succeeded despite exceeding MaxHours")
	}
}

func TestController_CorrectorSnapsMisheardRosterNames(t *testing.T) {
	t.Parallel()

	st := mock.NewStream()
	src := &mock.Source{Stream: st}

	var result *capture.Outcome
	c := capture.New(src,
		capture.WithCorrector(transcript.New()),
		capture.WithResultCallback(func(o *capture.Outcome) { result = o }),
	)

	st.Emit(types.Final("log 4 hours framing at smith haus"))
	st.Emit(types.End())

	if err := c.StartListening(context.Background(), capture.ListenRequest{Projects: testProjects}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	if result == nil || result.TimeEntry == nil {
		t.Fatal("expected a time entry outcome")
	}
	if !result.TimeEntry.Result.Success {
		t.Fatalf("parse failed: %+v", result.TimeEntry)
	}
	if result.TimeEntry.ProjectID != "p1" {
		t.Errorf("project = %q, want p1 via corrected name", result.TimeEntry.ProjectID)
	}
}

func TestController_MatchConfidenceObserved(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	st := mock.NewStream()
	src := &mock.Source{Stream: st}
	c := capture.New(src, capture.WithMetrics(m))

	st.Emit(types.Final("log 4 hours framing at smith house"))
	st.Emit(types.End())

	if err := c.StartListening(context.Background(), capture.ListenRequest{Projects: testProjects}); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	c.Wait()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var hist *metricdata.Metrics
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == "fieldvoice.match.confidence" {
				hist = &sm.Metrics[i]
			}
		}
	}
	if hist == nil {
		t.Fatal("histogram fieldvoice.match.confidence not found")
	}
	hd, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", hist.Data)
	}

	kinds := map[string]bool{}
	for _, dp := range hd.DataPoints {
		kind, _ := dp.Attributes.Value(attribute.Key("kind"))
		kinds[kind.AsString()] = true
		if dp.Count == 0 {
			t.Errorf("kind %q has no observations", kind.AsString())
		}
	}
	for _, want := range []string{"activity", "project"} {
		if !kinds[want] {
			t.Errorf("no confidence observation for kind %q (got %v)", want, kinds)
		}
	}
}

func TestController_SourceStartFailureMovesToError(t *testing.T) {
	t.Parallel()

	src := &mock.Source{StartErr: errors.New("device busy")}
	c := capture.New(src)

	err := c.StartListening(context.Background(), capture.ListenRequest{})
	if err == nil {
		t.Fatal("StartListening returned nil error")
	}
	if got := c.State(); got != capture.StateError {
		t.Errorf("state = %q, want error", got)
	}
	if c.LastError() == "" {
		t.Error("LastError empty after source failure")
	}
}

func TestController_StartFailureCodeFromSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		startErr error
		wantCode types.ErrorCode
	}{
		{
			"classified dial failure",
			&speech.StartError{Code: types.ErrNetwork, Err: errors.New("dial tcp: connection refused")},
			types.ErrNetwork,
		},
		{
			"classified permission failure",
			&speech.StartError{Code: types.ErrPermission, Err: errors.New("handshake: 403")},
			types.ErrPermission,
		},
		{
			"unclassified failure defaults to device",
			errors.New("device busy"),
			types.ErrNoDevice,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var gotCode types.ErrorCode
			c := capture.New(&mock.Source{StartErr: tc.startErr},
				capture.WithErrorCallback(func(code types.ErrorCode, _ string) { gotCode = code }),
			)

			if err := c.StartListening(context.Background(), capture.ListenRequest{}); err == nil {
				t.Fatal("StartListening returned nil error")
			}
			if gotCode != tc.wantCode {
				t.Errorf("error code = %q, want %q", gotCode, tc.wantCode)
			}
		})
	}
}
