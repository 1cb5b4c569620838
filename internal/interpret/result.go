// Package interpret turns free-form spoken transcripts into structured
// contractor-domain commands: time entries, daily field logs, and task state
// transitions.
//
// The parsers are pure functions over (transcript, context) pairs. They
// never panic and never return Go errors for bad input — every failure path
// produces a discriminated result value with Success=false, an explanation,
// and optional "did you mean" suggestions, so a caller can surface the
// outcome to the user directly. Rosters passed in the context are read-only
// snapshots valid for the duration of one call, which makes every parser
// trivially safe to invoke from concurrent capture controllers.
package interpret

import (
	"math"
)

// Result is the shape shared by every parse outcome. Exactly one of the
// success and failure field groups is meaningful, selected by Success.
type Result struct {
	// Success discriminates the variant: true means the domain fields of
	// the embedding struct are populated; false means Error explains why.
	Success bool `json:"success"`

	// Confidence is a heuristic score in [0, 1], rounded to 2 decimals.
	// Not a calibrated probability. Zero on failure.
	Confidence float64 `json:"confidence"`

	// RawTranscript echoes the input for auditing and retry flows.
	RawTranscript string `json:"raw_transcript"`

	// Warnings lists plausible-but-risky aspects of a successful result
	// (long duration, unmatched project, redundant action). Warnings never
	// fail a parse.
	Warnings []string `json:"warnings,omitempty"`

	// Error is the user-facing explanation when Success is false.
	Error string `json:"error,omitempty"`

	// Suggestions offers near-miss roster entries to guide the user's next
	// attempt when Success is false.
	Suggestions []string `json:"suggestions,omitempty"`
}

// TimeEntryResult is the outcome of [ParseTimeEntry].
type TimeEntryResult struct {
	Result

	// Hours is the extracted duration in hours.
	Hours float64 `json:"hours,omitempty"`

	// Description is a human-readable summary of the work performed.
	Description string `json:"description,omitempty"`

	// ProjectID and ProjectName identify the matched project, when any.
	ProjectID   string `json:"project_id,omitempty"`
	ProjectName string `json:"project_name,omitempty"`

	// ActivityType is the matched trade taxonomy key (e.g., "framing").
	ActivityType string `json:"activity_type,omitempty"`

	// ActivityConfidence and ProjectConfidence are the component match
	// scores feeding the aggregate Confidence. Zero when the entity did
	// not match. Not serialized.
	ActivityConfidence float64 `json:"-"`
	ProjectConfidence  float64 `json:"-"`
}

// TaskAction is the state transition requested for a task.
type TaskAction string

const (
	ActionComplete TaskAction = "complete"
	ActionStart    TaskAction = "start"
	ActionPause    TaskAction = "pause"
	ActionUpdate   TaskAction = "update"
	ActionAssign   TaskAction = "assign"
)

// TaskUpdates carries the field changes inferred from the transcript.
// Empty fields mean "leave unchanged".
type TaskUpdates struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// TaskCommandResult is the outcome of [ParseTaskCommand].
type TaskCommandResult struct {
	Result

	// TaskID and TaskName identify the matched roster task.
	TaskID   string `json:"task_id,omitempty"`
	TaskName string `json:"task_name,omitempty"`

	// Action is the detected state transition.
	Action TaskAction `json:"action,omitempty"`

	// Updates holds inferred field changes. Nil when the action implies no
	// explicit update.
	Updates *TaskUpdates `json:"updates,omitempty"`

	// TaskMatchConfidence is the roster-match component of the aggregate
	// Confidence. Zero when no task matched. Not serialized.
	TaskMatchConfidence float64 `json:"-"`
}

// DailyLogResult is the outcome of [ParseDailyLog].
type DailyLogResult struct {
	Result

	// ProjectID and ProjectName identify the matched project, when any.
	ProjectID   string `json:"project_id,omitempty"`
	ProjectName string `json:"project_name,omitempty"`

	// ProjectConfidence is the project-match component of the aggregate
	// Confidence. Zero when no project matched. Not serialized.
	ProjectConfidence float64 `json:"-"`

	// CrewCount is the number of workers on site; 0 when not mentioned.
	CrewCount int `json:"crew_count,omitempty"`

	// Weather summarizes the mentioned site conditions.
	Weather string `json:"weather,omitempty"`

	// WorkCompleted is the free-text progress summary.
	WorkCompleted string `json:"work_completed,omitempty"`

	// Blockers lists clauses describing delays or issues.
	Blockers []string `json:"blockers,omitempty"`

	// Deliveries lists clauses describing material arrivals.
	Deliveries []string `json:"deliveries,omitempty"`
}

// failure builds the failure variant of [Result].
func failure(raw, msg string, suggestions ...string) Result {
	return Result{RawTranscript: raw, Error: msg, Suggestions: suggestions}
}

// round2 rounds a confidence value to 2 decimal places and clamps it to
// [0, 1].
func round2(v float64) float64 {
	v = math.Round(v*100) / 100
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
