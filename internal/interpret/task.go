package interpret

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/crewtrack/fieldvoice/internal/match"
	"github.com/crewtrack/fieldvoice/internal/similarity"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

// TaskContext carries the roster snapshot for one task-command parse.
type TaskContext struct {
	// Tasks is the caller's task roster. May be empty.
	Tasks []types.RosterEntry

	// SuggestionFloor overrides the minimum similarity for "did you mean"
	// suggestions. Zero means the default 0.3.
	SuggestionFloor float64

	// SuggestionLimit overrides the maximum number of suggestions. Zero
	// means the default 3.
	SuggestionLimit int
}

// suggestionBounds resolves the configured or default suggestion tuning.
func (tc TaskContext) suggestionBounds() (floor float64, limit int) {
	floor, limit = suggestionFloor, suggestionLimit
	if tc.SuggestionFloor > 0 {
		floor = tc.SuggestionFloor
	}
	if tc.SuggestionLimit > 0 {
		limit = tc.SuggestionLimit
	}
	return floor, limit
}

// suggestionFloor and suggestionLimit bound the "did you mean" list
// returned when no task matches.
const (
	suggestionFloor = 0.3
	suggestionLimit = 3
)

// directActionConfidence is the confidence assigned to an explicit action
// keyword hit.
const directActionConfidence = 0.9

// actionOrder fixes detection precedence when a transcript contains words
// from several action vocabularies ("start" and "update" both present).
var actionOrder = []TaskAction{
	ActionComplete, ActionStart, ActionPause, ActionAssign, ActionUpdate,
}

// actionKeywords maps each task action to its trigger vocabulary.
var actionKeywords = map[TaskAction][]string{
	ActionComplete: {"complete", "completed", "finish", "finished", "done", "close"},
	ActionStart:    {"start", "started", "begin", "resume"},
	ActionPause:    {"pause", "paused", "hold"},
	ActionAssign:   {"assign", "assigned"},
	ActionUpdate:   {"update", "change", "set", "move"},
}

// impliedStatus is the task status each action drives toward; used for the
// idempotent re-issue warning and the default update for bare "complete".
var impliedStatus = map[TaskAction]string{
	ActionComplete: "completed",
	ActionStart:    "in_progress",
	ActionPause:    "blocked",
	ActionAssign:   "assigned",
}

// statusOrder and statusKeywords drive explicit status-update inference.
var statusOrder = []string{"pending", "assigned", "in_progress", "blocked", "review", "completed"}

var statusKeywords = map[string][]string{
	"pending":     {"pending", "not started"},
	"assigned":    {"assigned"},
	"in_progress": {"in progress", "started", "start", "working", "underway"},
	"blocked":     {"blocked", "stuck", "waiting", "on hold", "hold"},
	"review":      {"review", "in review", "needs review"},
	"completed":   {"completed", "complete", "done", "finished"},
}

// priorityKeywords drives priority-update inference.
var priorityKeywords = map[string][]string{
	"high":   {"high", "urgent", "critical", "asap"},
	"medium": {"medium", "normal"},
	"low":    {"low", "minor", "whenever"},
}

// taskFillers are dropped when extracting the spoken task name.
var taskFillers = map[string]struct{}{
	"mark": {}, "task": {}, "the": {}, "a": {}, "an": {}, "as": {},
	"to": {}, "on": {}, "for": {}, "my": {}, "this": {}, "that": {},
	"please": {}, "priority": {}, "status": {}, "is": {}, "it": {},
}

// ParseTaskCommand interprets transcript as a task state transition:
// detect the requested action, extract the spoken task name, resolve it
// against the roster, and infer status/priority updates.
//
// When no roster task matches, the failure carries up to three "did you
// mean" suggestions ranked by name similarity. A matched task whose status
// already equals the action's implied status succeeds with a warning. The
// aggregate confidence weighs the action at 40% and the task match at 60%.
func ParseTaskCommand(transcript string, tc TaskContext) (res TaskCommandResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("interpret: task parse panicked", "transcript", transcript, "panic", r)
			res = TaskCommandResult{Result: failure(transcript, "could not interpret the task command")}
		}
	}()

	norm := similarity.Normalize(transcript)
	if norm == "" {
		return TaskCommandResult{Result: failure(transcript, "empty transcript")}
	}

	action, actionConf := detectAction(norm)
	if action == "" {
		return TaskCommandResult{Result: failure(transcript,
			"could not tell what to do with the task — say e.g. \"mark framing complete\"")}
	}

	name := extractTaskName(norm, action)
	if name == "" {
		return TaskCommandResult{Result: failure(transcript, "could not hear which task you meant")}
	}

	candidate := match.Task(name, tc.Tasks)
	if candidate == nil {
		floor, limit := tc.suggestionBounds()
		suggestions := match.TaskSuggestions(name, tc.Tasks, floor, limit)
		return TaskCommandResult{Result: failure(transcript,
			fmt.Sprintf("no task matching %q", name), suggestions...)}
	}

	updates := inferUpdates(norm, action)

	var warnings []string
	if implied := impliedStatus[action]; implied != "" {
		if current := currentStatus(candidate.ID, tc.Tasks); current == implied {
			warnings = append(warnings, fmt.Sprintf("task %q is already %s", candidate.Label,
				strings.ReplaceAll(implied, "_", " ")))
		}
	}

	return TaskCommandResult{
		Result: Result{
			Success:       true,
			Confidence:    round2(0.4*actionConf + 0.6*candidate.Confidence),
			RawTranscript: transcript,
			Warnings:      warnings,
		},
		TaskID:              candidate.ID,
		TaskName:            candidate.Label,
		Action:              action,
		Updates:             updates,
		TaskMatchConfidence: candidate.Confidence,
	}
}

// detectAction returns the first action (in fixed precedence order) whose
// vocabulary appears in the normalized transcript.
func detectAction(norm string) (TaskAction, float64) {
	present := tokenSet(norm)
	for _, action := range actionOrder {
		for _, kw := range actionKeywords[action] {
			if _, ok := present[kw]; ok {
				return action, directActionConfidence
			}
		}
	}
	return "", 0
}

// extractTaskName strips action keywords, update vocabulary, and filler
// words from the transcript, leaving the spoken task name.
func extractTaskName(norm string, action TaskAction) string {
	drop := map[string]struct{}{}
	for _, kws := range actionKeywords {
		for _, kw := range kws {
			drop[kw] = struct{}{}
		}
	}
	for _, kws := range statusKeywords {
		for _, kw := range kws {
			for _, w := range strings.Fields(kw) {
				drop[w] = struct{}{}
			}
		}
	}
	for _, kws := range priorityKeywords {
		for _, kw := range kws {
			drop[kw] = struct{}{}
		}
	}

	var kept []string
	for _, t := range strings.Fields(norm) {
		if _, ok := drop[t]; ok {
			continue
		}
		if _, ok := taskFillers[t]; ok {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

// inferUpdates derives status and priority changes from the secondary
// keyword tables. A bare complete action with no explicit status defaults
// to {status: completed}.
func inferUpdates(norm string, action TaskAction) *TaskUpdates {
	u := &TaskUpdates{}

	implied := impliedStatus[action]
	var hits []string
	for _, status := range statusOrder {
		for _, kw := range statusKeywords[status] {
			if containsPhrase(norm, kw) {
				hits = append(hits, status)
				break
			}
		}
	}
	for _, h := range hits {
		if h == implied {
			u.Status = h
			break
		}
	}
	if u.Status == "" && len(hits) > 0 {
		u.Status = hits[0]
	}

	for _, priority := range []string{"high", "medium", "low"} {
		for _, kw := range priorityKeywords[priority] {
			if containsPhrase(norm, kw) {
				u.Priority = priority
				break
			}
		}
		if u.Priority != "" {
			break
		}
	}

	if u.Status == "" && action == ActionComplete {
		u.Status = "completed"
	}
	if u.Status == "" && u.Priority == "" {
		return nil
	}
	return u
}

// currentStatus returns the roster status for the given task ID.
func currentStatus(id string, tasks []types.RosterEntry) string {
	for _, t := range tasks {
		if t.ID == id {
			return strings.ToLower(t.Status)
		}
	}
	return ""
}

// containsPhrase reports whether the normalized text contains kw as a whole
// word or phrase.
func containsPhrase(norm, kw string) bool {
	if !strings.Contains(kw, " ") {
		_, ok := tokenSet(norm)[kw]
		return ok
	}
	return strings.Contains(" "+norm+" ", " "+kw+" ")
}

// tokenSet returns the set of whitespace-separated tokens in norm.
func tokenSet(norm string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range strings.Fields(norm) {
		set[t] = struct{}{}
	}
	return set
}
