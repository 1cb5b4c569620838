package interpret

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/crewtrack/fieldvoice/internal/similarity"
)

// DurationResult is the outcome of [ParseDuration]. Hours <= 0 signals that
// no duration could be extracted; callers treat that as a parse failure.
type DurationResult struct {
	// Hours is the total extracted duration expressed in hours. Minutes are
	// converted (30 minutes → 0.5). Accumulation is additive across distinct
	// number+unit tokens ("1 hour 30 minutes" → 1.5).
	Hours float64

	// Confidence is the highest confidence among the patterns that
	// contributed to Hours, in [0, 1]. Zero when nothing matched.
	Confidence float64

	// Remaining is the normalized transcript with all matched time tokens
	// and unit words stripped, for downstream description extraction.
	Remaining string
}

// Pattern confidences, ordered by how unambiguous the matched form is.
const (
	confDigitUnit  = 0.95
	confCompound   = 0.9
	confNumberWord = 0.85
	confFraction   = 0.85
)

var (
	// "2 and a half hours", "two and a half".
	reCompound = regexp.MustCompile(`\b(\d+(?:\.\d+)?|[a-z]+)\s+and\s+a\s+half(?:\s+(?:hours?|hrs?))?\b`)

	// "4 hours", "1.5 hrs", "30 minutes", "90 min", "2h", "45m".
	reDigitUnit = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)

	// A bare number with no unit; defaults to hours per the transcript
	// conventions ("log 4 framing").
	reDigitBare = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)

	// "an hour and a half" with no leading number.
	reHourAndHalf = regexp.MustCompile(`\ban?\s+hours?\s+and\s+a\s+half\b`)

	// "an hour" with no number word.
	reBareHour = regexp.MustCompile(`\ban?\s+hour\b`)

	// "half an hour", "a quarter hour", "a third of an hour".
	reFraction = regexp.MustCompile(`\b(?:an?\s+)?(half|quarter|third)(?:\s+(?:of\s+)?an?\s+)?(?:\s*hours?)?\b`)

	reMinuteUnit = regexp.MustCompile(`^(?:minutes?|mins?|m)$`)
	reHourUnit   = regexp.MustCompile(`^(?:hours?|hrs?|h)$`)

	// Presence of any fraction word. Guards the bare "an hour" fallback so
	// "half an hour" is left for the fraction stage instead of counting as
	// a full hour.
	reFractionWord = regexp.MustCompile(`\b(?:half|quarter|third)\b`)

	// Unit words that should never survive into the remaining text.
	reDanglingUnit = regexp.MustCompile(`\b(?:hours?|hrs?|minutes?|mins?)\b`)

	// similarity.Normalize strips every non-word character, which would turn
	// "1.5" into "1 5" before the digit patterns run. Decimal points are
	// joined with an underscore (a word character, so it survives
	// normalization) and restored afterwards.
	reDecimalProtect = regexp.MustCompile(`(\d)\.(\d)`)
	reDecimalRestore = regexp.MustCompile(`(\d)_(\d)`)
)

// normalizeDuration applies similarity.Normalize while keeping decimal
// points between digits intact.
func normalizeDuration(transcript string) string {
	s := reDecimalProtect.ReplaceAllString(transcript, "${1}_${2}")
	s = similarity.Normalize(s)
	return reDecimalRestore.ReplaceAllString(s, "${1}.${2}")
}

// numberWords maps spelled-out numbers to their values. Covers zero through
// twenty plus the tens up to fifty; intermediate values ("twenty five") are
// composed during the token scan.
var numberWords = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
}

// misheardWords maps common STT mis-transcriptions to the number the speaker
// most likely said. These are ordinary English words, so they only count
// when a unit word follows ("worked for hours" stays untouched; "for hours"
// preceded by nothing is ambiguous either way, but "ate hours" is clearly 8).
var misheardWords = map[string]float64{
	"to": 2, "for": 4, "ate": 8, "won": 1,
}

// fractionWords maps fraction vocabulary to hour values.
var fractionWords = map[string]float64{
	"half": 0.5, "quarter": 0.25, "third": 0.333,
}

// ParseDuration extracts a numeric hour duration from transcript.
//
// Patterns are evaluated in precedence order: compound "N and a half" forms
// first (so their tokens are consumed exactly once), then digit+unit, then
// spelled-out number words, then the bare "an hour and a half" fallback,
// then fraction words. Distinct matches accumulate additively; the reported
// confidence is the highest among contributing patterns.
func ParseDuration(transcript string) DurationResult {
	remaining := normalizeDuration(transcript)
	var hours, conf float64

	// 1. Compound "N and a half [hours]".
	remaining = reCompound.ReplaceAllStringFunc(remaining, func(m string) string {
		lead := reCompound.FindStringSubmatch(m)[1]
		v, ok := leadingNumber(lead)
		if !ok {
			return m
		}
		hours += v + 0.5
		conf = maxf(conf, confCompound)
		return " "
	})

	// 2. Digits with an explicit unit.
	remaining = reDigitUnit.ReplaceAllStringFunc(remaining, func(m string) string {
		sub := reDigitUnit.FindStringSubmatch(m)
		v, err := strconv.ParseFloat(sub[1], 64)
		if err != nil {
			return m
		}
		if reMinuteUnit.MatchString(sub[2]) {
			v /= 60
		}
		hours += v
		conf = maxf(conf, confDigitUnit)
		return " "
	})

	// A unitless digit defaults to hours, but only while no duration has
	// been found yet — otherwise street numbers and quantities later in the
	// sentence would inflate the total.
	if hours == 0 {
		if loc := reDigitBare.FindStringIndex(remaining); loc != nil {
			v, err := strconv.ParseFloat(remaining[loc[0]:loc[1]], 64)
			if err == nil && v > 0 {
				hours += v
				conf = maxf(conf, confDigitUnit)
				remaining = remaining[:loc[0]] + " " + remaining[loc[1]:]
			}
		}
	}

	// 3. Spelled-out number words ("two hours", "twenty five minutes").
	remaining = consumeNumberWords(remaining, &hours, &conf)

	// 4. Bare "an hour and a half" only when nothing else matched.
	if hours == 0 {
		if reHourAndHalf.MatchString(remaining) {
			hours = 1.5
			conf = maxf(conf, confNumberWord)
			remaining = reHourAndHalf.ReplaceAllString(remaining, " ")
		} else if !reFractionWord.MatchString(remaining) && reBareHour.MatchString(remaining) {
			hours = 1
			conf = maxf(conf, confNumberWord)
			remaining = reBareHour.ReplaceAllString(remaining, " ")
		}
	}

	// 5. Fraction words.
	remaining = reFraction.ReplaceAllStringFunc(remaining, func(m string) string {
		sub := reFraction.FindStringSubmatch(m)
		v, ok := fractionWords[sub[1]]
		if !ok {
			return m
		}
		hours += v
		conf = maxf(conf, confFraction)
		return " "
	})

	remaining = reDanglingUnit.ReplaceAllString(remaining, " ")
	remaining = strings.Join(strings.Fields(remaining), " ")

	if hours <= 0 {
		return DurationResult{Remaining: remaining}
	}
	return DurationResult{Hours: hours, Confidence: conf, Remaining: remaining}
}

// leadingNumber resolves the lead token of a compound expression: a digit
// string, a canonical number word, or a known mis-transcription.
func leadingNumber(lead string) (float64, bool) {
	if v, err := strconv.ParseFloat(lead, 64); err == nil {
		return v, true
	}
	if v, ok := numberWords[lead]; ok {
		return v, true
	}
	if v, ok := misheardWords[lead]; ok {
		return v, true
	}
	return 0, false
}

// consumeNumberWords scans the token stream for spelled-out numbers,
// accumulates their hour value into hours, and returns the text with the
// consumed tokens removed.
//
// A tens word followed by a units word composes ("twenty five" → 25). The
// token after a number scales it: a minutes unit divides by 60, an hour
// unit (or no unit at all) leaves it in hours. Mis-transcription homophones
// ("to", "for", "ate", "won") are only counted when a unit word follows,
// since they are far more often ordinary prose.
func consumeNumberWords(text string, hours, conf *float64) string {
	tokens := strings.Fields(text)
	consumed := make([]bool, len(tokens))

	for i := 0; i < len(tokens); i++ {
		if consumed[i] {
			continue
		}

		v, canonical, ok := numberValue(tokens[i])
		if !ok {
			continue
		}
		span := 1

		// Compose tens + units ("twenty five").
		if canonical && v >= 20 && i+1 < len(tokens) {
			if u, uOK := numberWords[tokens[i+1]]; uOK && u >= 1 && u <= 9 {
				v += u
				span = 2
			}
		}

		next := ""
		if i+span < len(tokens) {
			next = tokens[i+span]
		}

		hasUnit := reMinuteUnit.MatchString(next) || reHourUnit.MatchString(next)
		if !canonical && !hasUnit {
			continue
		}

		if reMinuteUnit.MatchString(next) {
			v /= 60
		}

		for j := i; j < i+span; j++ {
			consumed[j] = true
		}
		if hasUnit {
			consumed[i+span] = true
		}

		*hours += v
		*conf = maxf(*conf, confNumberWord)
		i += span
	}

	var out []string
	for i, t := range tokens {
		if !consumed[i] {
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

// numberValue resolves a single token to a number. canonical is false for
// mis-transcription homophones.
func numberValue(tok string) (v float64, canonical, ok bool) {
	if v, ok := numberWords[tok]; ok {
		return v, true, true
	}
	if v, ok := misheardWords[tok]; ok {
		return v, false, true
	}
	return 0, false, false
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
