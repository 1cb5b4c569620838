package interpret

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/crewtrack/fieldvoice/internal/match"
	"github.com/crewtrack/fieldvoice/internal/similarity"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

// DailyLogContext carries the roster snapshot for one daily-log parse.
type DailyLogContext struct {
	// Projects is the caller's project roster. May be empty.
	Projects []types.RosterEntry
}

// clauseSplit breaks the original transcript into clauses on punctuation,
// before normalization erases it. Each clause is classified independently.
var clauseSplit = regexp.MustCompile(`[.,;!?]+`)

// reCrewCount matches "5 crew", "three guys", "12 workers".
var reCrewCount = regexp.MustCompile(`\b(\d+|[a-z]+)\s+(crew|guys|workers|people|hands|men|man)\b`)

// Clause classification vocabularies. A clause belongs to the first
// category whose keyword it contains; everything unclassified becomes the
// work summary.
var (
	weatherTerms = []string{
		"sunny", "clear", "rain", "rained", "rainy", "raining", "cloudy", "overcast",
		"windy", "wind", "cold", "hot", "snow", "snowing", "storm",
		"stormy", "humid", "freezing", "weather",
	}
	blockerTerms = []string{
		"blocked", "blocker", "waiting", "delay", "delayed", "issue",
		"problem", "shortage", "stuck", "failed", "missing", "short",
	}
	deliveryTerms = []string{
		"delivery", "delivered", "arrived", "shipment", "materials",
		"dropped off", "picked up",
	}
)

// ParseDailyLog interprets transcript as a daily field log: crew count,
// weather conditions, work progress, blockers, and material deliveries,
// plus an optional project match.
//
// The transcript is split into clauses on punctuation; each clause is
// assigned to the first category whose vocabulary it contains, and
// unclassified clauses form the work summary. Fails when no field can be
// extracted at all. The aggregate confidence weighs extracted content at
// 50% and the project and crew-count signals at 25% each.
func ParseDailyLog(transcript string, dc DailyLogContext) (res DailyLogResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("interpret: daily log parse panicked", "transcript", transcript, "panic", r)
			res = DailyLogResult{Result: failure(transcript, "could not interpret the daily log")}
		}
	}()

	norm := similarity.Normalize(transcript)
	if norm == "" {
		return DailyLogResult{Result: failure(transcript, "empty transcript")}
	}

	crew, crewConf := extractCrewCount(norm)

	var weather, work []string
	var blockers, deliveries []string
	for _, clause := range splitClauses(transcript) {
		switch {
		case containsAny(clause, weatherTerms):
			weather = append(weather, clause)
		case containsAny(clause, blockerTerms):
			blockers = append(blockers, clause)
		case containsAny(clause, deliveryTerms):
			deliveries = append(deliveries, clause)
		case reCrewCount.MatchString(clause) && len(similarity.Tokens(clause)) <= 3:
			// Bare headcount clause ("5 crew"); already captured above.
		default:
			work = append(work, clause)
		}
	}

	project := match.Project(transcript, dc.Projects)

	hasContent := crew > 0 || len(weather) > 0 || len(blockers) > 0 ||
		len(deliveries) > 0 || len(work) > 0
	if !hasContent {
		return DailyLogResult{Result: failure(transcript,
			"could not find any log details — mention crew, weather, or progress")}
	}

	var warnings []string
	if project == nil && len(dc.Projects) > 0 {
		warnings = append(warnings, "no project matched — the log will need a project assigned")
	}

	var projectConf float64
	res = DailyLogResult{
		Result: Result{
			Success:       true,
			RawTranscript: transcript,
			Warnings:      warnings,
		},
		CrewCount:     crew,
		Weather:       strings.Join(weather, "; "),
		WorkCompleted: strings.Join(work, "; "),
		Blockers:      blockers,
		Deliveries:    deliveries,
	}
	if project != nil {
		res.ProjectID = project.ID
		res.ProjectName = project.Label
		projectConf = project.Confidence
		res.ProjectConfidence = projectConf
	}

	contentConf := 0.0
	if hasContent {
		contentConf = 0.9
	}
	res.Confidence = round2(0.5*contentConf + 0.25*projectConf + 0.25*crewConf)
	return res
}

// extractCrewCount finds a worker headcount in the normalized transcript.
// Digits and spelled-out numbers both count ("5 crew", "three guys").
func extractCrewCount(norm string) (int, float64) {
	m := reCrewCount.FindStringSubmatch(norm)
	if m == nil {
		return 0, 0
	}
	if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
		return n, 0.9
	}
	if v, ok := numberWords[m[1]]; ok && v > 0 {
		return int(v), 0.85
	}
	return 0, 0
}

// splitClauses breaks the raw transcript on punctuation and returns the
// normalized, non-empty clauses.
func splitClauses(transcript string) []string {
	var out []string
	for _, c := range clauseSplit.Split(transcript, -1) {
		if n := similarity.Normalize(c); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// containsAny reports whether the normalized clause contains any of the
// given terms as a whole word or phrase.
func containsAny(clause string, terms []string) bool {
	for _, t := range terms {
		if containsPhrase(clause, t) {
			return true
		}
	}
	return false
}
