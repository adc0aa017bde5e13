// Package match implements the tiered phrase-matching engine used by the
// criteria scorer: exact substring containment wins outright, otherwise
// approximate similarity against the transcript decides, gated by a floor.
//
// The similarity primitive is Levenshtein distance from
// github.com/antzucaro/matchr, normalised to a 0–100 score. Two strategies
// are computed per phrase and the maximum kept:
//
//   - a partial score: the phrase against every token-aligned window of the
//     haystack of similar width, which rewards a close local alignment
//     anywhere in the transcript;
//   - a token-set score: order- and duplicate-insensitive token overlap,
//     which rewards phrases whose words all occur but in a different order.
//
// Short single tokens are excluded from fuzzy comparison entirely — common
// short words produce spurious high similarities — and participate only via
// exact substring matching.
package match

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"github.com/samber/lo"
)

// Mode reports how a match was established.
type Mode string

const (
	// ModeSubstring means the phrase occurred verbatim in the haystack.
	ModeSubstring Mode = "substring"

	// ModeFuzzy means the best approximate score met the floor.
	ModeFuzzy Mode = "fuzzy"

	// ModeNone means no phrase matched.
	ModeNone Mode = "none"
)

// longTokenRunes is the minimum length for a single-token phrase to be
// eligible for fuzzy comparison.
const longTokenRunes = 6

// Result is the outcome of one engine invocation. Phrase is empty when
// Mode is [ModeNone].
type Result struct {
	Phrase     string `json:"matched_phrase,omitempty"`
	Similarity int    `json:"similarity"`
	Mode       Mode   `json:"mode"`
}

// Eligible reports whether phrase qualifies for fuzzy comparison: two or
// more whitespace-separated tokens, or a single token of at least six runes.
func Eligible(phrase string) bool {
	fields := strings.Fields(phrase)
	switch {
	case len(fields) >= 2:
		return true
	case len(fields) == 1:
		return utf8.RuneCountInString(fields[0]) >= longTokenRunes
	default:
		return false
	}
}

// Best evaluates candidates against haystack and returns the winning match.
// The haystack must already be lowercased by the caller; candidate phrases
// are lowercased and trimmed here. The floor is inclusive: a fuzzy score
// equal to it passes.
//
// A verbatim substring hit short-circuits the remaining candidates with
// similarity 100. Otherwise the best fuzzy score across all eligible
// candidates is compared against the floor.
func Best(candidates []string, haystack string, floor int) Result {
	hayTokens := strings.Fields(haystack)
	hayUniq := lo.Uniq(hayTokens)

	best := Result{Mode: ModeNone}
	for _, cand := range candidates {
		phrase := strings.TrimSpace(strings.ToLower(cand))
		if phrase == "" {
			continue
		}
		if strings.Contains(haystack, phrase) {
			return Result{Phrase: cand, Similarity: 100, Mode: ModeSubstring}
		}
		if !Eligible(phrase) {
			continue
		}

		score := partialScore(phrase, hayTokens)
		if ts := tokenSetScore(phrase, hayUniq); ts > score {
			score = ts
		}
		if score > best.Similarity {
			best = Result{Phrase: cand, Similarity: score, Mode: ModeFuzzy}
		}
	}

	if best.Phrase != "" && best.Similarity >= floor {
		return best
	}
	return Result{Mode: ModeNone}
}

// similarity converts Levenshtein distance between a and b into a 0–100
// score relative to the longer string. Identical strings score 100; an
// empty input scores 0.
func similarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	d := matchr.Levenshtein(a, b)
	s := int(math.Round(100 * (1 - float64(d)/float64(longest))))
	if s < 0 {
		return 0
	}
	return s
}

// partialScore slides token-aligned windows of width close to the phrase's
// own token count across the haystack and keeps the best window similarity.
// Token alignment keeps the sweep linear in transcript length while still
// finding local alignments mid-call.
func partialScore(phrase string, hayTokens []string) int {
	n := len(strings.Fields(phrase))
	best := 0
	for w := n - 1; w <= n+1; w++ {
		if w < 1 || w > len(hayTokens) {
			continue
		}
		for i := 0; i+w <= len(hayTokens); i++ {
			window := strings.Join(hayTokens[i:i+w], " ")
			if s := similarity(phrase, window); s > best {
				best = s
				if best == 100 {
					return best
				}
			}
		}
	}
	return best
}

// tokenSetScore compares the phrase and haystack as unordered token sets,
// in the manner of fuzzywuzzy's token_set_ratio: the sorted token
// intersection is compared against the intersection plus each side's
// remainder, and the best pairing wins. A phrase whose tokens all occur
// somewhere in the haystack scores 100 regardless of order.
func tokenSetScore(phrase string, hayUniq []string) int {
	p := lo.Uniq(strings.Fields(phrase))
	inter := lo.Intersect(p, hayUniq)
	restP, _ := lo.Difference(p, hayUniq)
	restH, _ := lo.Difference(hayUniq, p)

	s0 := joinSorted(inter)
	s1 := strings.TrimSpace(s0 + " " + joinSorted(restP))
	s2 := strings.TrimSpace(s0 + " " + joinSorted(restH))

	best := similarity(s0, s1)
	if s := similarity(s0, s2); s > best {
		best = s
	}
	if s := similarity(s1, s2); s > best {
		best = s
	}
	return best
}

// joinSorted returns the tokens sorted and space-joined, without mutating
// the input slice.
func joinSorted(tokens []string) string {
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}
