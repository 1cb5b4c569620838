package interpret_test

import (
	"testing"

	"github.com/crewtrack/fieldvoice/internal/interpret"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want interpret.CommandType
	}{
		{"Log 4 hours framing", interpret.CommandTimeEntry},
		{"Mark drywall complete", interpret.CommandTask},
		{"Today was sunny, 5 crew", interpret.CommandDailyLog},
		{"Record 30 minutes cleanup", interpret.CommandTimeEntry},
		{"Start the rough plumbing task", interpret.CommandTask},
		{"Lumber delivery came in, progress on the roof", interpret.CommandDailyLog},
	}
	for _, tc := range tests {
		if got := interpret.Classify(tc.in); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassify_TieBreakOrder(t *testing.T) {
	t.Parallel()

	// An empty transcript scores zero everywhere; the fixed tie-break makes
	// time_entry win ties against both other types.
	if got := interpret.Classify(""); got != interpret.CommandTimeEntry {
		t.Errorf("Classify(\"\") = %q, want time_entry on all-zero tie", got)
	}

	// "task" keyword alone vs nothing: task beats daily_log.
	if got := interpret.Classify("task"); got != interpret.CommandTask {
		t.Errorf("Classify(\"task\") = %q, want task", got)
	}
}
