package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Speech source
	if cfg.Speech.Source != "" && !cfg.Speech.Source.IsValid() {
		errs = append(errs, fmt.Errorf("speech.source %q is invalid; valid values: mock, websocket", cfg.Speech.Source))
	}
	if cfg.Speech.Source == SourceWebSocket {
		switch {
		case cfg.Speech.URL == "":
			errs = append(errs, errors.New("speech.url is required when speech.source is websocket"))
		case !strings.HasPrefix(cfg.Speech.URL, "ws://") && !strings.HasPrefix(cfg.Speech.URL, "wss://"):
			errs = append(errs, fmt.Errorf("speech.url %q must use a ws:// or wss:// scheme", cfg.Speech.URL))
		}
	}
	if u := cfg.Speech.FallbackURL; u != "" && !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
		errs = append(errs, fmt.Errorf("speech.fallback_url %q must use a ws:// or wss:// scheme", u))
	}

	// Interpreter tuning
	if cfg.Interpreter.MaxHours < 0 {
		errs = append(errs, fmt.Errorf("interpreter.max_hours %.4g must not be negative", cfg.Interpreter.MaxHours))
	}
	if cfg.Interpreter.WarnHours < 0 {
		errs = append(errs, fmt.Errorf("interpreter.warn_hours %.4g must not be negative", cfg.Interpreter.WarnHours))
	}
	if cfg.Interpreter.MaxHours > 0 && cfg.Interpreter.WarnHours > cfg.Interpreter.MaxHours {
		errs = append(errs, fmt.Errorf("interpreter.warn_hours %.4g exceeds interpreter.max_hours %.4g", cfg.Interpreter.WarnHours, cfg.Interpreter.MaxHours))
	}
	if cfg.Interpreter.SuggestionFloor < 0 || cfg.Interpreter.SuggestionFloor > 1 {
		errs = append(errs, fmt.Errorf("interpreter.suggestion_floor %.4g is out of range [0, 1]", cfg.Interpreter.SuggestionFloor))
	}
	if cfg.Interpreter.SuggestionLimit < 0 {
		errs = append(errs, fmt.Errorf("interpreter.suggestion_limit %d must not be negative", cfg.Interpreter.SuggestionLimit))
	}

	return errors.Join(errs...)
}
