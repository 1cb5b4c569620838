package match

import (
	"strings"

	"github.com/crewtrack/fieldvoice/internal/similarity"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

// projectLadder tunes the shared scoring ladder for project names, which
// tend to be multi-word ("Smith House Remodel") and arrive surrounded by
// prose.
var projectLadder = ladder{
	simWeight:     0.9,
	perWordFloor:  0.85,
	perWordWeight: 0.8,
	minTokenLen:   4,
}

// liveProjectStatuses are the lifecycle states a crew member would plausibly
// log time against. When any live project exists the search roster is
// restricted to them; otherwise the full roster is used.
var liveProjectStatuses = map[string]struct{}{
	"active":   {},
	"planning": {},
	"bidding":  {},
}

// projectIndicators are the words that typically precede a spoken project
// name ("4 hours framing at the smith house"). The matcher preferentially
// scores the text following the last indicator.
var projectIndicators = map[string]struct{}{
	"at": {}, "on": {}, "for": {}, "the": {}, "project": {}, "job": {},
	"site": {}, "house": {}, "property": {}, "location": {}, "building": {},
}

// Project resolves the best-matching project for transcript, or nil when no
// roster entry scores above the candidate floor.
func Project(transcript string, projects []types.RosterEntry) *Candidate {
	roster := liveProjects(projects)
	if len(roster) == 0 {
		return nil
	}

	// Score the whole transcript and, when an indicator word is present,
	// the tail following it. The tail usually isolates the project name
	// from command verbs and activity words.
	texts := []string{transcript}
	if tail := afterIndicator(transcript); tail != "" {
		texts = append(texts, tail)
	}

	var best *Candidate
	for _, entry := range roster {
		score := 0.0
		for _, text := range texts {
			if s := projectLadder.score(text, entry.Name); s > score {
				score = s
			}
		}
		if score < minCandidateConfidence {
			continue
		}
		if best == nil || score > best.Confidence {
			best = &Candidate{ID: entry.ID, Label: entry.Name, Confidence: score}
		}
	}
	return best
}

// liveProjects filters the roster to live statuses, falling back to the
// full roster when none qualify.
func liveProjects(projects []types.RosterEntry) []types.RosterEntry {
	var live []types.RosterEntry
	for _, p := range projects {
		if _, ok := liveProjectStatuses[strings.ToLower(p.Status)]; ok {
			live = append(live, p)
		}
	}
	if len(live) > 0 {
		return live
	}
	return projects
}

// afterIndicator returns the normalized text following the first project
// indicator word, or "" when no indicator is present or nothing follows it.
// The first indicator is used because trailing indicators ("house", "site")
// are frequently part of the project name itself.
func afterIndicator(transcript string) string {
	tokens := similarity.Tokens(transcript)
	for i, t := range tokens {
		if _, ok := projectIndicators[t]; ok {
			if i+1 >= len(tokens) {
				return ""
			}
			return strings.Join(tokens[i+1:], " ")
		}
	}
	return ""
}
