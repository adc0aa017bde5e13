package redact

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Redaction markers substituted for detected entities. Markers contain no
// letters adjacent to word characters and no digits, so no detector can
// re-match them — masking an already-masked transcript is a no-op.
const (
	EmailMarker = "[EMAIL]"
	CardMarker  = "[CARD]"
	PhoneMarker = "[PHONE]"
	NameMarker  = "[NAME]"
)

var (
	// itineraryRe matches reservation references: an uppercase H followed by
	// 6–12 digits, word-bounded. These are business identifiers, not PII,
	// and must survive redaction byte-for-byte.
	itineraryRe = regexp.MustCompile(`\bH\d{6,12}\b`)

	// emailRe matches local@domain.tld, case-insensitive.
	emailRe = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)

	// Spoken-email normalisation. Applied in order: join spelled-out letter
	// runs ("j o h n" → "john"), collapse a standalone "dot" into ".",
	// collapse a standalone "at" into "@" where a domain follows, then strip
	// whitespace left after "@".
	spokenAtRe  = regexp.MustCompile(`(?i)\s+at\s+`)
	spokenDotRe = regexp.MustCompile(`(?i)\s+dot\s+`)
	spelledRe   = regexp.MustCompile(`\b[A-Za-z](?: [A-Za-z])+\b`)
	atSpaceRe   = regexp.MustCompile(`@\s+`)

	// domainAheadRe, anchored at the text following a spoken "at", requires a
	// plausible domain before the collapse to "@" is applied. Without it every
	// conversational "at" ("call me at (415) 555-2671") would be rewritten.
	// Dots are already collapsed by the time this runs.
	domainAheadRe = regexp.MustCompile(`(?i)^[a-z0-9][a-z0-9.-]*\.[a-z]{2,}\b`)

	// digitRunRe matches a run of 13–19 digits optionally interspersed with
	// single spaces or hyphens — a payment-card candidate. Word-adjacency
	// and the Luhn checksum are verified separately because RE2 has no
	// lookaround.
	digitRunRe = regexp.MustCompile(`\d(?:[ -]?\d){12,18}`)

	// phoneRe matches North American phone shapes: optional +1/1 country
	// code, then (###) ###-####, ###-###-####, ###.###.#### or ##########.
	phoneRe = regexp.MustCompile(`(?:\+?1[-. ]?)?(?:\(\d{3}\)[-. ]?|\d{3}[-. ]?)\d{3}[-. ]?\d{4}`)

	// nameCueRe captures the cue phrase (group 1) and the following one to
	// three capitalised words (group 2). The cue match is case-insensitive;
	// the name itself must be capitalised to count as a plausible name.
	nameCueRe = regexp.MustCompile(`\b((?i:my name is|guest name is|this is|i am))\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})`)
)

// CueMatch is one name-cue hit in a transcript, shared between the redaction
// pipeline and the participant extractor.
type CueMatch struct {
	// Pos is the byte offset of the cue phrase in the source text.
	Pos int

	// Cue is the matched cue phrase, lowercased.
	Cue string

	// Name is the captured name, verbatim.
	Name string
}

// NameCues returns every name-cue match in s in document order. It scans the
// raw (pre-redaction) text; the participant extractor depends on this running
// independently of the pipeline because the names themselves are redaction
// targets.
func NameCues(s string) []CueMatch {
	var out []CueMatch
	for _, m := range nameCueRe.FindAllStringSubmatchIndex(s, -1) {
		out = append(out, CueMatch{
			Pos:  m[0],
			Cue:  strings.ToLower(s[m[2]:m[3]]),
			Name: s[m[4]:m[5]],
		})
	}
	return out
}

// isWordRune reports whether r is a letter or digit for the purpose of the
// manual word-boundary checks around digit runs.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// boundedAt reports whether the match [start, end) in text is word-bounded:
// neither adjacent rune is a letter or digit.
func boundedAt(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

// precededByUpper reports whether the rune immediately before start is an
// uppercase ASCII letter. Kept as an explicit itinerary-overlap guard for the
// card detector even though boundedAt already rejects letter-prefixed runs.
func precededByUpper(text string, start int) bool {
	if start == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:start])
	return r >= 'A' && r <= 'Z'
}

// digitCount returns the number of decimal digits in s.
func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
