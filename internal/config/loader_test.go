package config_test

import (
	"strings"
	"testing"

	"github.com/crewtrack/fieldvoice/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_level: debug
speech:
  source: websocket
  url: wss://gateway.example.com/transcripts
  language: en-US
  hints:
    - rebar
    - soffit
interpreter:
  max_hours: 20
  warn_hours: 10
  suggestion_floor: 0.4
  suggestion_limit: 5
rosters:
  projects_file: projects.yaml
  tasks_file: tasks.yaml
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Speech.Source != config.SourceWebSocket {
		t.Errorf("speech.source = %q, want websocket", cfg.Speech.Source)
	}
	if len(cfg.Speech.Hints) != 2 {
		t.Errorf("speech.hints = %v, want 2 entries", cfg.Speech.Hints)
	}
	if cfg.Interpreter.MaxHours != 20 {
		t.Errorf("interpreter.max_hours = %v, want 20", cfg.Interpreter.MaxHours)
	}
	if cfg.Rosters.TasksFile != "tasks.yaml" {
		t.Errorf("rosters.tasks_file = %q", cfg.Rosters.TasksFile)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_levle: info
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for misspelled field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_WebSocketRequiresURL(t *testing.T) {
	t.Parallel()
	yaml := `
speech:
  source: websocket
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for websocket source without url, got nil")
	}
	if !strings.Contains(err.Error(), "speech.url") {
		t.Errorf("error should mention speech.url, got: %v", err)
	}
}

func TestValidate_WebSocketURLScheme(t *testing.T) {
	t.Parallel()
	yaml := `
speech:
  source: websocket
  url: https://gateway.example.com/transcripts
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for non-websocket scheme, got nil")
	}
	if !strings.Contains(err.Error(), "ws://") {
		t.Errorf("error should mention the required scheme, got: %v", err)
	}
}

func TestValidate_FallbackURLScheme(t *testing.T) {
	t.Parallel()
	yaml := `
speech:
  source: websocket
  url: wss://gateway.example.com/transcripts
  fallback_url: https://backup.example.com/transcripts
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for non-websocket fallback scheme, got nil")
	}
	if !strings.Contains(err.Error(), "speech.fallback_url") {
		t.Errorf("error should mention speech.fallback_url, got: %v", err)
	}
}

func TestValidate_UnknownSourceKind(t *testing.T) {
	t.Parallel()
	yaml := `
speech:
  source: carrier-pigeon
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown source kind, got nil")
	}
}

func TestValidate_WarnHoursAboveMaxHours(t *testing.T) {
	t.Parallel()
	yaml := `
interpreter:
  max_hours: 10
  warn_hours: 16
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for warn_hours > max_hours, got nil")
	}
	if !strings.Contains(err.Error(), "warn_hours") {
		t.Errorf("error should mention warn_hours, got: %v", err)
	}
}

func TestValidate_SuggestionFloorRange(t *testing.T) {
	t.Parallel()
	yaml := `
interpreter:
  suggestion_floor: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for suggestion_floor out of range, got nil")
	}
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
speech:
  source: websocket
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") || !strings.Contains(errStr, "speech.url") {
		t.Errorf("joined error should list both failures, got: %v", err)
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()
	if err := config.Validate(&config.Config{}); err != nil {
		t.Fatalf("zero config should validate, got: %v", err)
	}
}
