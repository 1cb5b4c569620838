package interpret

import (
	"regexp"

	"github.com/crewtrack/fieldvoice/internal/similarity"
)

// CommandType is the high-level intent a transcript is classified into
// before domain-specific parsing.
type CommandType string

const (
	CommandTimeEntry CommandType = "time_entry"
	CommandDailyLog  CommandType = "daily_log"
	CommandTask      CommandType = "task"
)

// Keyword vocabularies per command type. Read-only configuration data; the
// classifier counts how many of each list appear in the normalized
// transcript.
var (
	timeEntryKeywords = []string{
		"log", "record", "add", "hours", "hour", "worked", "spent",
		"time", "clock", "billed",
	}
	dailyLogKeywords = []string{
		"today", "weather", "crew", "progress", "daily", "report",
		"delivery", "delivered", "inspection", "visitors", "conditions",
	}
	taskKeywords = []string{
		"mark", "complete", "completed", "start", "started", "pause",
		"finish", "finished", "done", "task", "assign", "update",
	}
)

// Bonus patterns tip the balance for phrasings that are near-certain
// signals of one command type.
var (
	bonusDuration = regexp.MustCompile(`\d+\s*(hours?|minutes?)`)
	bonusTaskDone = regexp.MustCompile(`mark.*(complete|done|finished)`)
	bonusDaily    = regexp.MustCompile(`today|weather|crew|inspection|delivery`)
)

// Classify scores transcript against the three vocabularies and returns the
// winning command type.
//
// The tie-break is fixed and deliberate: time_entry wins ties against both
// other types, task wins ties against daily_log, and daily_log is the
// fallback when nothing scores. Tests depend on this exact ordering.
func Classify(transcript string) CommandType {
	norm := similarity.Normalize(transcript)

	timeScore := keywordHits(norm, timeEntryKeywords)
	dailyScore := keywordHits(norm, dailyLogKeywords)
	taskScore := keywordHits(norm, taskKeywords)

	if bonusDuration.MatchString(norm) {
		timeScore += 3
	}
	if bonusTaskDone.MatchString(norm) {
		taskScore += 3
	}
	if bonusDaily.MatchString(norm) {
		dailyScore += 2
	}

	switch {
	case timeScore >= dailyScore && timeScore >= taskScore:
		return CommandTimeEntry
	case taskScore >= dailyScore:
		return CommandTask
	default:
		return CommandDailyLog
	}
}

// keywordHits counts how many keywords appear as whole words in the
// normalized text.
func keywordHits(norm string, keywords []string) int {
	present := make(map[string]struct{})
	for _, t := range similarity.Tokens(norm) {
		present[t] = struct{}{}
	}
	hits := 0
	for _, kw := range keywords {
		if _, ok := present[kw]; ok {
			hits++
		}
	}
	return hits
}
