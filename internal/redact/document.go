package redact

import (
	"regexp"
	"sort"
	"strings"
)

// span is a half-open byte range [start, end) in a document's working text.
type span struct {
	start, end int
}

// edit is one pending substitution produced by a detector stage. Edits within
// a stage never overlap each other and never intersect a protected span.
type edit struct {
	start, end int
	repl       string
}

// document is the typed intermediate representation the redaction pipeline
// operates on: the working text plus the set of protected ranges that no
// stage may rewrite. Protection is tracked as spans rather than in-band
// placeholder strings, so adversarial input can never collide with the
// protection mechanism — there is nothing in-band to collide with.
type document struct {
	text      string
	protected []span
}

// overlapping returns the first protected span that intersects [start, end),
// or a zero span and false when the range is clear.
func (d *document) overlapping(start, end int) (span, bool) {
	for _, p := range d.protected {
		if start < p.end && end > p.start {
			return p, true
		}
	}
	return span{}, false
}

// findUnprotected returns all matches of re in the working text that do not
// intersect a protected span. Each result is a submatch index slice as
// produced by [regexp.Regexp.FindStringSubmatchIndex], with offsets relative
// to the full text. When a candidate match crosses a protected span the
// search resumes immediately after that span, so text following a shielded
// itinerary token is still scanned.
func (d *document) findUnprotected(re *regexp.Regexp) [][]int {
	var out [][]int
	from := 0
	for from <= len(d.text) {
		m := re.FindStringSubmatchIndex(d.text[from:])
		if m == nil {
			break
		}
		abs := make([]int, len(m))
		for i, v := range m {
			if v < 0 {
				abs[i] = v
				continue
			}
			abs[i] = v + from
		}
		if p, hit := d.overlapping(abs[0], abs[1]); hit {
			from = p.end
			continue
		}
		out = append(out, abs)
		if abs[1] == abs[0] {
			from = abs[1] + 1
			continue
		}
		from = abs[1]
	}
	return out
}

// applyEdits rewrites the working text with the given edits and shifts every
// protected span to its new offset. Edits must be sorted by start, mutually
// non-overlapping, and disjoint from all protected spans; stages guarantee
// this by construction via [document.findUnprotected].
func (d *document) applyEdits(edits []edit) {
	if len(edits) == 0 {
		return
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var b strings.Builder
	b.Grow(len(d.text))
	prev := 0
	for _, e := range edits {
		b.WriteString(d.text[prev:e.start])
		b.WriteString(e.repl)
		prev = e.end
	}
	b.WriteString(d.text[prev:])

	// Remap protected spans: every edit is fully before or fully after a
	// given span, so the span shifts by the summed length delta of the
	// edits preceding it.
	remapped := make([]span, len(d.protected))
	for i, p := range d.protected {
		delta := 0
		for _, e := range edits {
			if e.end <= p.start {
				delta += len(e.repl) - (e.end - e.start)
			}
		}
		remapped[i] = span{start: p.start + delta, end: p.end + delta}
	}

	d.text = b.String()
	d.protected = remapped
}
