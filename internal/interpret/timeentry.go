package interpret

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/crewtrack/fieldvoice/internal/match"
	"github.com/crewtrack/fieldvoice/internal/similarity"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

// Duration sanity bounds. Entries above maxPlausibleHours are rejected
// outright; entries above warnHours succeed with a warning attached.
const (
	maxPlausibleHours = 24
	warnHours         = 12
)

// TimeEntryContext carries the roster snapshot for one time-entry parse.
type TimeEntryContext struct {
	// Projects is the caller's project roster. May be empty.
	Projects []types.RosterEntry

	// MaxHours overrides the rejection bound. Zero means the default 24.
	MaxHours float64

	// WarnHours overrides the warning bound. Zero means the default 12.
	WarnHours float64
}

// bounds resolves the configured or default duration sanity bounds.
func (tc TimeEntryContext) bounds() (maxH, warnH float64) {
	maxH, warnH = maxPlausibleHours, warnHours
	if tc.MaxHours > 0 {
		maxH = tc.MaxHours
	}
	if tc.WarnHours > 0 {
		warnH = tc.WarnHours
	}
	return maxH, warnH
}

// commandVerbs are the leading command words stripped from the extracted
// description ("log 4 hours framing" → "framing").
var commandVerbs = map[string]struct{}{
	"log": {}, "record": {}, "add": {}, "worked": {}, "work": {},
	"spent": {}, "did": {}, "today": {}, "i": {}, "please": {},
}

// descriptionIndicators are dropped from descriptions alongside the matched
// project name; they carry no information once the project is resolved.
var descriptionIndicators = map[string]struct{}{
	"at": {}, "on": {}, "for": {}, "the": {}, "a": {}, "an": {},
	"project": {}, "job": {}, "site": {},
}

// ParseTimeEntry interprets transcript as a time entry: a duration, an
// optional activity type, an optional project, and a description.
//
// Failure cases: empty transcript, no extractable duration, and durations
// above 24 hours (implausible, rejected rather than warned). Durations
// above 12 hours succeed with a warning. The aggregate confidence weighs
// the duration at 50% and the activity and project matches at 25% each.
func ParseTimeEntry(transcript string, tc TimeEntryContext) (res TimeEntryResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("interpret: time entry parse panicked", "transcript", transcript, "panic", r)
			res = TimeEntryResult{Result: failure(transcript, "could not interpret the time entry")}
		}
	}()

	if similarity.Normalize(transcript) == "" {
		return TimeEntryResult{Result: failure(transcript, "empty transcript")}
	}

	dur := ParseDuration(transcript)
	if dur.Hours <= 0 {
		return TimeEntryResult{Result: failure(transcript,
			"could not find the number of hours — try something like \"log 4 hours framing\"")}
	}
	maxH, warnH := tc.bounds()
	if dur.Hours > maxH {
		return TimeEntryResult{Result: failure(transcript,
			fmt.Sprintf("%.4g hours is more than a day — please re-record the entry", dur.Hours))}
	}

	var warnings []string
	if dur.Hours > warnH {
		warnings = append(warnings, fmt.Sprintf("%.4g hours is unusually long for one entry", dur.Hours))
	}

	// Activity and project matching run on the original transcript, not on
	// the duration remainder, so time tokens never mask an entity name.
	activity := match.Activity(transcript)
	project := match.Project(transcript, tc.Projects)

	if project == nil && len(tc.Projects) > 0 {
		warnings = append(warnings, "no project matched — the entry will need a project assigned")
	}

	description := extractDescription(dur.Remaining, activity, project)

	var activityConf, projectConf float64
	res = TimeEntryResult{
		Result: Result{
			Success:       true,
			RawTranscript: transcript,
			Warnings:      warnings,
		},
		Hours:       dur.Hours,
		Description: description,
	}
	if activity != nil {
		res.ActivityType = activity.ID
		activityConf = activity.Confidence
		res.ActivityConfidence = activityConf
	}
	if project != nil {
		res.ProjectID = project.ID
		res.ProjectName = project.Label
		projectConf = project.Confidence
		res.ProjectConfidence = projectConf
	}
	res.Confidence = round2(0.5*dur.Confidence + 0.25*activityConf + 0.25*projectConf)
	return res
}

// extractDescription builds a human description from the duration parser's
// remainder: command verbs, indicator words, and the matched project's name
// tokens are stripped. When fewer than 10 characters survive, the matched
// activity label (optionally suffixed with the remainder) is used instead.
func extractDescription(remaining string, activity, project *match.Candidate) string {
	projectTokens := map[string]struct{}{}
	if project != nil {
		for _, t := range similarity.Tokens(project.Label) {
			projectTokens[t] = struct{}{}
		}
	}

	var kept []string
	for _, t := range similarity.Tokens(remaining) {
		if _, ok := commandVerbs[t]; ok {
			continue
		}
		if _, ok := descriptionIndicators[t]; ok {
			continue
		}
		if _, ok := projectTokens[t]; ok {
			continue
		}
		kept = append(kept, t)
	}
	desc := strings.Join(kept, " ")

	if len(desc) >= 10 {
		return desc
	}
	if activity != nil {
		if desc != "" && !strings.EqualFold(desc, activity.Label) {
			return activity.Label + " - " + desc
		}
		return activity.Label
	}
	return desc
}
