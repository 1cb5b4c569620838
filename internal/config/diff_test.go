package config_test

import (
	"testing"

	"github.com/crewtrack/fieldvoice/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Speech: config.SpeechConfig{
			Source:   config.SourceWebSocket,
			URL:      "wss://gateway.example.com/transcripts",
			Language: "en-US",
		},
		Interpreter: config.InterpreterConfig{MaxHours: 24, WarnHours: 12},
		Rosters:     config.RostersConfig{ProjectsFile: "projects.yaml", TasksFile: "tasks.yaml"},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	d := config.Diff(old, new)
	if d.Any() {
		t.Errorf("identical configs produced diff %+v", d)
	}
}

func TestDiff_LogLevelChange(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("LogLevelChanged = false, want true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if d.InterpreterChanged || d.SpeechChanged || d.RostersChanged {
		t.Errorf("unrelated change flags set: %+v", d)
	}
}

func TestDiff_InterpreterTuningChange(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Interpreter.WarnHours = 10

	d := config.Diff(old, new)
	if !d.InterpreterChanged {
		t.Error("InterpreterChanged = false, want true")
	}
}

func TestDiff_RosterPathChange(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Rosters.TasksFile = "tasks-v2.yaml"

	d := config.Diff(old, new)
	if !d.RostersChanged {
		t.Error("RostersChanged = false, want true")
	}
}

func TestDiff_SpeechChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"source kind", func(c *config.Config) { c.Speech.Source = config.SourceMock }},
		{"url", func(c *config.Config) { c.Speech.URL = "wss://other.example.com/transcripts" }},
		{"fallback url", func(c *config.Config) { c.Speech.FallbackURL = "wss://backup.example.com/transcripts" }},
		{"token", func(c *config.Config) { c.Speech.Token = "rotated" }},
		{"language", func(c *config.Config) { c.Speech.Language = "es-MX" }},
		{"hints", func(c *config.Config) { c.Speech.Hints = []string{"rebar"} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old, new := baseConfig(), baseConfig()
			tc.mutate(new)
			if d := config.Diff(old, new); !d.SpeechChanged {
				t.Errorf("SpeechChanged = false after %s change", tc.name)
			}
		})
	}
}
