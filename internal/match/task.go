package match

import (
	"sort"

	"github.com/crewtrack/fieldvoice/internal/similarity"
	"github.com/crewtrack/fieldvoice/pkg/types"
)

// taskLadder tunes the shared ladder for task titles. Task matching runs on
// an already-extracted candidate name rather than the whole transcript, so
// it can afford a higher similarity weight and a stricter per-word rung.
var taskLadder = ladder{
	simWeight:     0.95,
	perWordFloor:  0.9,
	perWordWeight: 0.85,
	minTokenLen:   3,
}

// Task resolves the best-matching task for the extracted name, or nil when
// no roster entry scores above the candidate floor.
func Task(name string, tasks []types.RosterEntry) *Candidate {
	var best *Candidate
	for _, entry := range tasks {
		score := taskLadder.score(name, entry.Name)
		if score < minCandidateConfidence {
			continue
		}
		if best == nil || score > best.Confidence {
			best = &Candidate{ID: entry.ID, Label: entry.Name, Confidence: score}
		}
	}
	return best
}

// TaskSuggestions returns up to limit roster names whose similarity to the
// extracted name exceeds floor, best first. Used to build "did you mean"
// hints when no task matched outright.
func TaskSuggestions(name string, tasks []types.RosterEntry, floor float64, limit int) []string {
	type scored struct {
		label string
		score float64
	}
	var near []scored
	for _, entry := range tasks {
		if s := similarity.Score(name, entry.Name); s > floor {
			near = append(near, scored{label: entry.Name, score: s})
		}
	}
	sort.Slice(near, func(i, j int) bool { return near[i].score > near[j].score })

	if limit > 0 && len(near) > limit {
		near = near[:limit]
	}
	out := make([]string, len(near))
	for i, s := range near {
		out[i] = s.label
	}
	return out
}
