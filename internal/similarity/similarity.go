// Package similarity is the single string-matching foundation for FieldVoice.
//
// Every fuzzy decision in the interpretation layer — entity matching, task
// suggestion ranking, activity taxonomy lookup — flows through [Score] and
// [WordOverlap] so that tie-break behaviour stays consistent across matchers
// instead of being re-implemented per call site.
//
// All functions are pure and safe for concurrent use.
package similarity

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

// nonWord matches every run of characters that is not a letter, digit, or
// underscore. Used by [Normalize] to strip punctuation.
var nonWord = regexp.MustCompile(`[^\w]+`)

// Normalize lowercases s, replaces every non-word run with a single space,
// and trims the result. It is total and idempotent:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens returns the whitespace-separated words of the normalized form of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Score computes a similarity score between a and b in [0, 1].
//
// Both inputs are normalized first. Equal normalized strings score 1.0 and
// an empty side scores 0.0. When one string contains the other as a
// substring the score is a flat 0.9 — cheaper and deliberately looser than
// edit distance, so "smith" still matches "smith house" strongly. Otherwise
// the score is 1 - levenshtein(a, b)/max(len(a), len(b)).
//
// Score is symmetric, reflexive, and bounded in [0, 1].
func Score(a, b string) float64 {
	a = Normalize(a)
	b = Normalize(b)

	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	d := matchr.Levenshtein(a, b)
	score := 1 - float64(d)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// WordOverlap computes the fraction of meaningful words shared between a
// and b, in [0, 1].
//
// Both strings are tokenized; tokens of length <= 2 are discarded as noise
// ("at", "a", "to"). The result is the number of a-tokens present in b's
// token set divided by the larger token count. Returns 0 when either side
// has no meaningful tokens.
func WordOverlap(a, b string) float64 {
	aTokens := meaningfulTokens(a)
	bTokens := meaningfulTokens(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	bSet := make(map[string]struct{}, len(bTokens))
	for _, t := range bTokens {
		bSet[t] = struct{}{}
	}

	shared := 0
	for _, t := range aTokens {
		if _, ok := bSet[t]; ok {
			shared++
		}
	}

	maxLen := len(aTokens)
	if len(bTokens) > maxLen {
		maxLen = len(bTokens)
	}
	return float64(shared) / float64(maxLen)
}

// meaningfulTokens returns the normalized tokens of s longer than 2 runes.
func meaningfulTokens(s string) []string {
	var out []string
	for _, t := range Tokens(s) {
		if len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}
