// Package score turns a rubric of weighted criteria into a deterministic
// percentage score with a per-criterion breakdown, evaluated against a
// masked transcript.
package score

import (
	"math"
	"strings"

	"github.com/samber/lo"

	"github.com/hotelcx/callaudit/internal/match"
	"github.com/hotelcx/callaudit/internal/rubric"
)

// FuzzyFloor is the inclusive minimum similarity for a fuzzy match to pass
// a criterion.
const FuzzyFloor = 72

// Entry is one criterion's outcome, mirroring rubric order in the breakdown.
type Entry struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Guideline   string     `json:"guideline,omitempty"`
	Points      int        `json:"points"`
	Passed      bool       `json:"passed"`
	Matched     string     `json:"matched_phrase,omitempty"`
	Similarity  int        `json:"similarity"`
	Mode        match.Mode `json:"mode"`
}

// Totals aggregates the breakdown. TotalPoints sums every criterion's weight
// regardless of outcome; EarnedPoints sums passed criteria only.
type Totals struct {
	EarnedPoints int `json:"earned_points"`
	TotalPoints  int `json:"total_points"`
	PassedCount  int `json:"passed_count"`
	FailedCount  int `json:"failed_count"`
}

// Evaluate scores the masked transcript against the rubric. It is a pure
// function: no error conditions exist beyond malformed rubric entries, which
// become zero-weight, never-passing breakdown entries. An empty rubric
// yields a 0.0 percentage, never a division fault.
func Evaluate(masked string, r *rubric.Rubric) (float64, []Entry, Totals) {
	hay := strings.ToLower(masked)

	entries := make([]Entry, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		entries = append(entries, evaluate(c, hay))
	}

	totals := Totals{
		TotalPoints: lo.SumBy(entries, func(e Entry) int { return e.Points }),
		PassedCount: lo.CountBy(entries, func(e Entry) bool { return e.Passed }),
	}
	totals.FailedCount = len(entries) - totals.PassedCount
	totals.EarnedPoints = lo.SumBy(entries, func(e Entry) int {
		if !e.Passed {
			return 0
		}
		return e.Points
	})

	percent := 0.0
	if totals.TotalPoints > 0 {
		percent = round2(float64(totals.EarnedPoints) / float64(totals.TotalPoints) * 100)
	}
	return percent, entries, totals
}

// evaluate scores one criterion independently of all others.
//
// Keywords are partitioned by the engine's shared classification rule:
// short single tokens are exact-only, everything else is fuzzy-eligible.
// Exact-only keywords are scanned for verbatim containment first and pass
// immediately; otherwise the fuzzy-eligible pool — extended with the
// guideline text and all alternative phrases — goes through the matching
// engine at [FuzzyFloor].
func evaluate(c rubric.Criterion, hay string) Entry {
	e := Entry{
		ID:          c.ID,
		Description: c.Description,
		Guideline:   c.Guideline,
		Points:      c.Score,
		Mode:        match.ModeNone,
	}
	if !c.Valid() {
		e.Points = 0
		return e
	}

	fuzzyPool, exactOnly := lo.FilterReject(c.Keywords, func(k string, _ int) bool {
		return match.Eligible(k)
	})

	for _, k := range exactOnly {
		key := strings.TrimSpace(strings.ToLower(k))
		if key == "" {
			continue
		}
		if strings.Contains(hay, key) {
			e.Passed = true
			e.Matched = k
			e.Similarity = 100
			e.Mode = match.ModeSubstring
			return e
		}
	}

	if g := strings.TrimSpace(c.Guideline); g != "" {
		fuzzyPool = append(fuzzyPool, g)
	}
	fuzzyPool = append(fuzzyPool, c.AlternativePhrases...)
	if len(fuzzyPool) == 0 {
		return e
	}

	res := match.Best(fuzzyPool, hay, FuzzyFloor)
	if res.Mode == match.ModeNone {
		return e
	}
	e.Passed = true
	e.Matched = res.Phrase
	e.Similarity = res.Similarity
	e.Mode = res.Mode
	return e
}

// round2 rounds to two decimal places, the precision the score percentage
// is reported at.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
