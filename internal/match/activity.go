package match

import (
	"github.com/crewtrack/fieldvoice/internal/similarity"
)

// activityKeywords is the fixed trade taxonomy. Each activity type maps to
// the words a crew member is likely to say for it; the first keyword doubles
// as the canonical label. The table is read-only configuration data.
var activityKeywords = map[string][]string{
	"framing":     {"framing", "frame", "framed", "studs", "joists", "rafters", "sheathing"},
	"drywall":     {"drywall", "sheetrock", "taping", "mudding", "hanging board"},
	"electrical":  {"electrical", "wiring", "wires", "outlets", "panel", "conduit", "breaker"},
	"plumbing":    {"plumbing", "pipes", "piping", "fixtures", "drain", "water heater"},
	"hvac":        {"hvac", "ductwork", "ducts", "furnace", "air conditioning", "ventilation"},
	"roofing":     {"roofing", "roof", "shingles", "flashing", "gutters"},
	"flooring":    {"flooring", "floors", "tile", "hardwood", "laminate", "carpet", "subfloor"},
	"painting":    {"painting", "paint", "painted", "priming", "primer", "staining"},
	"demolition":  {"demolition", "demo", "tear out", "teardown", "gutting"},
	"concrete":    {"concrete", "pour", "poured", "foundation", "slab", "footings", "rebar"},
	"carpentry":   {"carpentry", "trim", "cabinets", "doors", "windows", "millwork", "finish work"},
	"insulation":  {"insulation", "insulating", "batts", "spray foam"},
	"siding":      {"siding", "cladding", "soffit", "fascia"},
	"landscaping": {"landscaping", "grading", "sod", "irrigation", "fence"},
	"cleaning":    {"cleaning", "cleanup", "clean up", "sweeping", "hauling debris"},
	"inspection":  {"inspection", "inspector", "walkthrough", "punch list"},
	"meeting":     {"meeting", "call with", "site visit", "consultation"},
	"general":     {"general labor", "misc", "miscellaneous", "odds and ends"},
}

// activityOrder fixes the evaluation order so that equal-scoring activities
// resolve the same way on every run.
var activityOrder = []string{
	"framing", "drywall", "electrical", "plumbing", "hvac", "roofing",
	"flooring", "painting", "demolition", "concrete", "carpentry",
	"insulation", "siding", "landscaping", "cleaning", "inspection",
	"meeting", "general",
}

// Activity resolves the activity type mentioned in transcript against the
// trade taxonomy, or nil when no keyword scores above the candidate floor.
//
// Direct keyword containment wins at 0.95. When no keyword is literally
// present, individual transcript tokens are fuzzily compared to taxonomy
// keywords to absorb transcription errors ("dry wall", "frameing").
func Activity(transcript string) *Candidate {
	norm := similarity.Normalize(transcript)
	if norm == "" {
		return nil
	}
	tokens := similarity.Tokens(transcript)

	var best *Candidate
	consider := func(activity string, score float64) {
		if score < minCandidateConfidence {
			return
		}
		if best == nil || score > best.Confidence {
			best = &Candidate{ID: activity, Label: activity, Confidence: score}
		}
	}

	for _, activity := range activityOrder {
		for _, kw := range activityKeywords[activity] {
			if contains(norm, similarity.Normalize(kw)) {
				consider(activity, 0.95)
				continue
			}
			// Per-word fuzzy fallback against single-word keywords.
			for _, tok := range tokens {
				if len(tok) < 4 {
					continue
				}
				if s := similarity.Score(tok, kw); s > 0.85 {
					consider(activity, s*0.8)
				}
			}
		}
	}
	return best
}
