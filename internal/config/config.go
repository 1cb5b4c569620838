// Package config provides the configuration schema, loader, speech source
// registry, and file watcher for the FieldVoice interpreter.
package config

// LogLevel controls log verbosity for the FieldVoice server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SourceKind selects the speech source implementation.
type SourceKind string

const (
	// SourceMock is the scripted in-memory source, for development and tests.
	SourceMock SourceKind = "mock"

	// SourceWebSocket subscribes to a recognizer gateway's WebSocket feed
	// of JSON transcript events.
	SourceWebSocket SourceKind = "websocket"
)

// IsValid reports whether k is a recognised source kind.
func (k SourceKind) IsValid() bool {
	return k == SourceMock || k == SourceWebSocket
}

// Config is the root configuration structure for FieldVoice.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Speech      SpeechConfig      `yaml:"speech"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
	Rosters     RostersConfig     `yaml:"rosters"`
}

// ServerConfig holds network and logging settings for the listen server.
type ServerConfig struct {
	// ListenAddr is the TCP address the health/metrics server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// SpeechConfig selects and configures the speech source.
type SpeechConfig struct {
	// Source selects the registered speech source implementation.
	Source SourceKind `yaml:"source"`

	// URL is the recognizer gateway endpoint for the websocket source
	// (e.g., "wss://gateway.example.com/transcripts"). Ignored for mock.
	URL string `yaml:"url"`

	// FallbackURL is an optional secondary gateway endpoint. When set,
	// captures fail over to it if the primary gateway cannot be reached.
	// Ignored for mock.
	FallbackURL string `yaml:"fallback_url"`

	// Token is the bearer token presented to the recognizer gateway.
	// Ignored for mock.
	Token string `yaml:"token"`

	// Language is the BCP-47 language tag forwarded to the recognizer.
	Language string `yaml:"language"`

	// Hints is extra recognition vocabulary forwarded alongside roster
	// names on every capture.
	Hints []string `yaml:"hints"`
}

// InterpreterConfig tunes the domain parsers. Zero values mean the built-in
// defaults.
type InterpreterConfig struct {
	// MaxHours is the rejection bound for a single time entry. Default 24.
	MaxHours float64 `yaml:"max_hours"`

	// WarnHours is the warning bound for a single time entry. Default 12.
	WarnHours float64 `yaml:"warn_hours"`

	// SuggestionFloor is the minimum name similarity for "did you mean"
	// task suggestions, in [0, 1]. Default 0.3.
	SuggestionFloor float64 `yaml:"suggestion_floor"`

	// SuggestionLimit caps the number of task suggestions. Default 3.
	SuggestionLimit int `yaml:"suggestion_limit"`
}

// RostersConfig points at the YAML roster files supplying the project and
// task snapshots for each parse.
type RostersConfig struct {
	// ProjectsFile is the path to the projects roster YAML file.
	ProjectsFile string `yaml:"projects_file"`

	// TasksFile is the path to the tasks roster YAML file.
	TasksFile string `yaml:"tasks_file"`
}
