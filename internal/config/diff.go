package config

import "slices"

// ConfigDiff describes what changed between two configs. Only fields that
// can be safely hot-reloaded are tracked; a speech source change requires a
// restart and is reported so the watcher callback can log it.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// InterpreterChanged is true when any parser tuning value changed.
	// Tuning applies per parse, so it takes effect on the next capture.
	InterpreterChanged bool

	// RostersChanged is true when a roster file path changed. Roster
	// contents are re-read per capture, so path changes apply immediately.
	RostersChanged bool

	// SpeechChanged is true when the source selection or its settings
	// changed. Applying it requires reconnecting the source.
	SpeechChanged bool
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.InterpreterChanged || d.RostersChanged || d.SpeechChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Interpreter != new.Interpreter {
		d.InterpreterChanged = true
	}
	if old.Rosters != new.Rosters {
		d.RostersChanged = true
	}
	if old.Speech.Source != new.Speech.Source ||
		old.Speech.URL != new.Speech.URL ||
		old.Speech.FallbackURL != new.Speech.FallbackURL ||
		old.Speech.Token != new.Speech.Token ||
		old.Speech.Language != new.Speech.Language ||
		!slices.Equal(old.Speech.Hints, new.Speech.Hints) {
		d.SpeechChanged = true
	}

	return d
}
