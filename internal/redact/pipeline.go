// Package redact implements the PII redaction pipeline for call transcripts.
//
// The pipeline is an explicit ordered list of detector stages operating over
// a typed intermediate representation (working text + protected spans, see
// [document]) rather than literal placeholder substitution. Stage order is
// fixed and dependency-driven:
//
//  1. Protect itinerary identifiers ("H" + 6–12 digits) by recording their
//     byte ranges; later stages never rewrite inside a protected range, and
//     ranges are remapped as substitutions shift offsets. The tokens stay
//     literal in the text throughout, so there is no restore step to get
//     wrong and no in-band placeholder an adversarial transcript could forge.
//  2. Normalise spoken-form email mentions ("john dot doe at aol dot com")
//     into canonical form so the email detector can see them.
//  3. Redact email addresses.
//  4. Redact Luhn-valid card number runs; Luhn-invalid digit runs are left
//     untouched as presumed non-card identifiers.
//  5. Redact phone numbers.
//  6. Redact names following cue phrases, keeping the cue itself.
//
// Emails run before the digit-oriented stages because a normalised spoken
// email can contain digit runs; itinerary protection runs first because the
// tokens overlap lexically with card and phone shapes.
//
// Every stage is total: for any input string it terminates and yields a
// string, and a defect in one stage cannot corrupt the output of the others.
package redact

import (
	"log/slog"
	"regexp"
	"strings"
)

// Mask returns a masked copy of raw with every detected entity replaced by
// its class marker. Empty input is returned unchanged. Masking an already
// masked transcript is a no-op: markers are not re-matched by any detector
// and itinerary tokens are protected on every pass.
func Mask(raw string) string {
	if raw == "" {
		return raw
	}
	d := &document{text: raw}
	runStage("protect-itinerary", d.protectItineraries)
	runStage("spoken-email", d.normalizeSpokenEmail)
	runStage("email", d.redactEmails)
	runStage("card", d.redactCards)
	runStage("phone", d.redactPhones)
	runStage("name", d.redactNames)
	return d.text
}

// runStage executes one detector stage, isolating the rest of the pipeline
// from a panicking stage. A stage that panics leaves the document exactly as
// the previous stage produced it: stages only mutate the document through a
// single applyEdits call at their end.
func runStage(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("redact: detector stage panicked, skipping stage",
				"stage", name, "panic", r)
		}
	}()
	fn()
}

// protectItineraries records the byte range of every itinerary token. The
// text is not modified.
func (d *document) protectItineraries() {
	for _, m := range itineraryRe.FindAllStringIndex(d.text, -1) {
		d.protected = append(d.protected, span{start: m[0], end: m[1]})
	}
}

// normalizeSpokenEmail heuristically rewrites spoken email mentions into
// canonical form. Spelled-out runs and dots are collapsed first so that the
// guarded "at" collapse can see the resulting domain. Best effort: ambiguous
// speech may over- or under-normalise, which the email detector tolerates.
func (d *document) normalizeSpokenEmail() {
	d.rewrite(spelledRe, func(m string) string { return strings.ReplaceAll(m, " ", "") })
	d.rewrite(spokenDotRe, func(string) string { return "." })
	d.collapseSpokenAt()
	d.rewrite(atSpaceRe, func(string) string { return "@" })
}

// collapseSpokenAt rewrites a spoken "at" into "@" only when a plausible
// domain follows, so conversational uses ("call me at (415) 555-2671",
// "we met at noon") stay literal.
func (d *document) collapseSpokenAt() {
	var edits []edit
	for _, m := range d.findUnprotected(spokenAtRe) {
		if !domainAheadRe.MatchString(d.text[m[1]:]) {
			continue
		}
		edits = append(edits, edit{start: m[0], end: m[1], repl: "@"})
	}
	d.applyEdits(edits)
}

// rewrite applies one normalisation pass: every unprotected match of re is
// replaced by repl(match).
func (d *document) rewrite(re *regexp.Regexp, repl func(string) string) {
	var edits []edit
	for _, m := range d.findUnprotected(re) {
		edits = append(edits, edit{start: m[0], end: m[1], repl: repl(d.text[m[0]:m[1]])})
	}
	d.applyEdits(edits)
}

func (d *document) redactEmails() {
	var edits []edit
	for _, m := range d.findUnprotected(emailRe) {
		edits = append(edits, edit{start: m[0], end: m[1], repl: EmailMarker})
	}
	d.applyEdits(edits)
}

// redactCards replaces word-bounded, Luhn-valid digit runs of 13–19 digits.
// Runs that fail the checksum are assumed to be some other numeric identifier
// and left alone.
func (d *document) redactCards() {
	var edits []edit
	for _, m := range d.findUnprotected(digitRunRe) {
		if precededByUpper(d.text, m[0]) {
			continue
		}
		if !boundedAt(d.text, m[0], m[1]) {
			continue
		}
		if !ValidLuhn(d.text[m[0]:m[1]]) {
			continue
		}
		edits = append(edits, edit{start: m[0], end: m[1], repl: CardMarker})
	}
	d.applyEdits(edits)
}

func (d *document) redactPhones() {
	var edits []edit
	for _, m := range d.findUnprotected(phoneRe) {
		if !boundedAt(d.text, m[0], m[1]) {
			continue
		}
		// 10 digits, or 11 with the country code consumed by the pattern.
		if dc := digitCount(d.text[m[0]:m[1]]); dc != 10 && dc != 11 {
			continue
		}
		edits = append(edits, edit{start: m[0], end: m[1], repl: PhoneMarker})
	}
	d.applyEdits(edits)
}

// redactNames masks the captured name after each cue phrase while keeping
// the cue itself, so "my name is John Smith" becomes "my name is [NAME]".
func (d *document) redactNames() {
	var edits []edit
	for _, m := range d.findUnprotected(nameCueRe) {
		edits = append(edits, edit{start: m[4], end: m[5], repl: NameMarker})
	}
	d.applyEdits(edits)
}
