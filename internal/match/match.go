// Package match resolves free transcript text to the closest entry of a
// caller-supplied roster (projects, tasks) or to a fixed activity taxonomy.
//
// All matchers share one scoring ladder built on
// [github.com/crewtrack/fieldvoice/internal/similarity] so that confidence
// values are comparable across entity kinds. Rosters are read-only
// snapshots; matchers never mutate or retain them.
package match

import (
	"strings"

	"github.com/crewtrack/fieldvoice/internal/similarity"
)

// Candidate is a single best-match result. It is transient: it only flows
// into a parse result and is never persisted.
type Candidate struct {
	// ID is the roster entry's identifier (or taxonomy key for activities).
	ID string

	// Label is the matched display name.
	Label string

	// Confidence estimates match quality in [0, 1].
	Confidence float64
}

// minCandidateConfidence is the floor below which a ladder result is
// discarded rather than returned as a match.
const minCandidateConfidence = 0.4

// ladder holds the per-matcher tuning of the shared scoring ladder.
// Project and task matching use the same rungs with slightly different
// weights and per-word strictness.
type ladder struct {
	// simWeight scales the whole-name similarity rung.
	simWeight float64

	// perWordFloor is the minimum token similarity for the per-word rung.
	perWordFloor float64

	// perWordWeight scales the per-word rung.
	perWordWeight float64

	// minTokenLen is the shortest token considered by the per-word rung.
	minTokenLen int
}

// score runs text and name through the ladder and returns the best rung's
// confidence, or 0 when no rung fires.
//
// Rungs, highest first:
//  1. Direct containment of one normalized string in the other → 0.95.
//  2. Whole-name similarity above 0.6 → score × simWeight.
//  3. Word overlap above 0.5 → overlap × 0.85.
//  4. Per-word fuzzy: the best token-pair similarity above perWordFloor
//     (tokens of at least minTokenLen characters) → score × perWordWeight.
//     Catches long names split apart by transcription errors.
func (l ladder) score(text, name string) float64 {
	normText := similarity.Normalize(text)
	normName := similarity.Normalize(name)
	if normText == "" || normName == "" {
		return 0
	}

	best := 0.0

	if contains(normText, normName) || contains(normName, normText) {
		best = 0.95
	}

	if s := similarity.Score(normText, normName); s > 0.6 {
		if c := s * l.simWeight; c > best {
			best = c
		}
	}

	if o := similarity.WordOverlap(normText, normName); o > 0.5 {
		if c := o * 0.85; c > best {
			best = c
		}
	}

	if s := l.bestTokenPair(normText, normName); s > l.perWordFloor {
		if c := s * l.perWordWeight; c > best {
			best = c
		}
	}

	return best
}

// bestTokenPair returns the highest similarity between any sufficiently
// long token of text and any token of name.
func (l ladder) bestTokenPair(text, name string) float64 {
	best := 0.0
	for _, tt := range similarity.Tokens(text) {
		if len(tt) < l.minTokenLen {
			continue
		}
		for _, nt := range similarity.Tokens(name) {
			if len(nt) < l.minTokenLen {
				continue
			}
			if s := similarity.Score(tt, nt); s > best {
				best = s
			}
		}
	}
	return best
}

// contains reports whether the normalized haystack contains the normalized
// needle as a substring. Both arguments must already be normalized.
func contains(haystack, needle string) bool {
	return needle != "" && strings.Contains(haystack, needle)
}
