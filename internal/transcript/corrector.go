// Package transcript corrects recognizer mishearings of roster vocabulary
// before a transcript reaches the parsers.
//
// Field recognizers routinely garble project and task names ("smith haus",
// "dry wall insulation"). The [Corrector] scans the final transcript for
// phrases that sound like a known roster name and rewrites them to the
// canonical form, so downstream entity matching sees the name the office
// actually uses.
//
// Matching proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     each phrase token and each vocabulary token. A vocabulary entry
//     becomes a candidate when any code overlaps.
//
//  2. Jaro-Winkler ranking: candidates are ranked by string similarity and
//     accepted above a configurable threshold. When no phonetic candidate
//     exists, a pure similarity pass runs with a stricter threshold.
//
// Phrases that already spell a vocabulary entry, or a subset of its exact
// tokens, are left alone.
package transcript

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85

	// minPhraseLen guards against rewriting short function words that
	// phonetically collide with vocabulary tokens.
	minPhraseLen = 4

	// alignThreshold is the minimum similarity between a phrase's first
	// token and an entry's first token. Without it a span starting on a
	// filler word ("at smith haus") could swallow the filler.
	alignThreshold = 0.8
)

// Correction records one rewrite the corrector applied.
type Correction struct {
	// From is the phrase as heard.
	From string

	// To is the canonical vocabulary entry it was rewritten to.
	To string

	// Confidence is the similarity score that accepted the rewrite.
	Confidence float64
}

// Option configures a [Corrector].
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum similarity for a phonetically
// matched entry to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum similarity when no phonetic candidate
// is found. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.fuzzyThreshold = threshold
	}
}

// Corrector rewrites misheard roster names in transcripts. It is read-only
// after construction and safe for concurrent use.
type Corrector struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a [Corrector] configured with the supplied options.
func New(opts ...Option) *Corrector {
	c := &Corrector{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct scans raw for phrases that sound like a vocabulary entry and
// rewrites them to the canonical name. The scan is greedy left-to-right,
// longest phrase first; each token is rewritten at most once. The returned
// transcript is unchanged when no correction applies.
func (c *Corrector) Correct(raw string, vocabulary []string) (string, []Correction) {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 || len(vocabulary) == 0 {
		return raw, nil
	}

	maxN := 1
	for _, v := range vocabulary {
		if n := len(strings.Fields(v)); n > maxN {
			maxN = n
		}
	}

	var corrections []Correction
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		n, replacement, conf := c.matchAt(tokens, i, maxN, vocabulary)
		if n == 0 {
			out = append(out, tokens[i])
			i++
			continue
		}
		phrase := strings.Join(tokens[i:i+n], " ")
		if replacement == "" {
			// Exact vocabulary phrase; keep as spoken.
			out = append(out, tokens[i:i+n]...)
		} else {
			out = append(out, strings.Fields(replacement)...)
			corrections = append(corrections, Correction{From: phrase, To: replacement, Confidence: conf})
		}
		i += n
	}
	return strings.Join(out, " "), corrections
}

// matchAt finds the longest phrase starting at tokens[i] that is either an
// exact vocabulary entry (replacement "") or a correctable mishearing.
// Returns n == 0 when nothing at this position matches.
func (c *Corrector) matchAt(tokens []string, i, maxN int, vocabulary []string) (n int, replacement string, conf float64) {
	// Mishearings can split one word into two ("dry wall"), so scan one
	// token beyond the longest vocabulary entry.
	limit := maxN + 1
	if rest := len(tokens) - i; rest < limit {
		limit = rest
	}
	for span := limit; span >= 1; span-- {
		phrase := strings.Join(tokens[i:i+span], " ")
		if _, exact := exactEntry(phrase, vocabulary); exact {
			return span, "", 1
		}
		if len(phrase) < minPhraseLen {
			continue
		}
		entry, score, ok := c.matchPhrase(phrase, vocabulary)
		if ok && !strings.EqualFold(entry, phrase) && !exactTokenSubset(phrase, entry) {
			return span, entry, score
		}
	}
	return 0, "", 0
}

// matchPhrase finds the vocabulary entry most phonetically similar to
// phrase. The contract mirrors [Correct]: when ok is false, phrase did not
// match anything above the thresholds.
func (c *Corrector) matchPhrase(phrase string, vocabulary []string) (entry string, confidence float64, ok bool) {
	phraseLower := strings.ToLower(strings.TrimSpace(phrase))
	phraseTokens := strings.Fields(phraseLower)
	if len(phraseTokens) == 0 {
		return "", 0, false
	}
	phraseCodes := codesForTokens(phraseTokens)

	var (
		bestEntry    string
		bestScore    float64
		bestPhonetic bool
	)
	for _, v := range vocabulary {
		vLower := strings.ToLower(strings.TrimSpace(v))
		if vLower == "" {
			continue
		}
		vTokens := strings.Fields(vLower)
		if !firstTokensAlign(phraseTokens[0], vTokens[0]) {
			continue
		}
		phonetic := codesOverlap(phraseCodes, codesForTokens(vTokens))
		score := bestSimilarity(phraseTokens, vTokens, phraseLower, vLower)

		// A phonetic candidate always outranks a purely fuzzy one.
		if phonetic && !bestPhonetic {
			bestEntry, bestScore, bestPhonetic = v, score, true
		} else if phonetic == bestPhonetic && score > bestScore {
			bestEntry, bestScore = v, score
		}
	}

	threshold := c.fuzzyThreshold
	if bestPhonetic {
		threshold = c.phoneticThreshold
	}
	if bestEntry == "" || bestScore < threshold {
		return "", 0, false
	}
	return bestEntry, bestScore, true
}

// exactEntry reports whether phrase spells a vocabulary entry verbatim,
// ignoring case.
func exactEntry(phrase string, vocabulary []string) (string, bool) {
	for _, v := range vocabulary {
		if strings.EqualFold(strings.TrimSpace(v), phrase) {
			return v, true
		}
	}
	return "", false
}

// exactTokenSubset reports whether every token of phrase already appears
// verbatim in entry. Such phrases are partial mentions, not mishearings,
// and rewriting them would duplicate words the speaker never said.
func exactTokenSubset(phrase, entry string) bool {
	entryTokens := map[string]struct{}{}
	for _, t := range strings.Fields(strings.ToLower(entry)) {
		entryTokens[t] = struct{}{}
	}
	for _, t := range strings.Fields(strings.ToLower(phrase)) {
		if _, ok := entryTokens[t]; !ok {
			return false
		}
	}
	return true
}

// firstTokensAlign reports whether the opening token of a phrase sounds
// like, or closely resembles, the opening token of a vocabulary entry.
func firstTokensAlign(phraseTok, entryTok string) bool {
	if codesOverlap(codesForTokens([]string{phraseTok}), codesForTokens([]string{entryTok})) {
		return true
	}
	return jaroWinkler(phraseTok, entryTok) >= alignThreshold
}

// codesForTokens computes the Double Metaphone code set for a token list.
// Both the primary and alternate codes are included.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		primary, alternate := matchr.DoubleMetaphone(t)
		if primary != "" {
			codes[primary] = struct{}{}
		}
		if alternate != "" {
			codes[alternate] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity returns the stronger of the full-string and
// space-stripped Jaro-Winkler scores. The stripped comparison handles word
// boundary mishearings like "dry wall" for "drywall". Per-token scores are
// deliberately not considered: a phrase must resemble the whole name, or a
// partial mention like "the house" would be inflated to the full entry.
func bestSimilarity(phraseTokens, entryTokens []string, phraseFull, entryFull string) float64 {
	best := jaroWinkler(phraseFull, entryFull)
	if s := jaroWinkler(strings.Join(phraseTokens, ""), strings.Join(entryTokens, "")); s > best {
		best = s
	}
	return best
}

func jaroWinkler(a, b string) float64 {
	return matchr.JaroWinkler(a, b, false)
}
