// Package participant heuristically assigns the names spoken in a call
// transcript to the "agent" and "customer" roles.
//
// Extraction reuses the redaction pipeline's name-cue detector and must run
// on the raw transcript: the cue phrases are themselves redaction targets, so
// a masked transcript no longer carries the names. Only privacy-safe forms
// (masked rendering and initials) ever leave this package.
//
// Role resolution is a ranked rule list evaluated in fixed precedence order:
//
//	agent:    first "my name is"/"this is"/"i am" cue within the opening
//	          window, else the first captured name overall.
//	customer: first "guest name is" cue, else the first name distinct from
//	          the resolved agent, else the positional second name.
package participant

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hotelcx/callaudit/internal/redact"
)

// agentWindow is the length in characters of the opening region of the
// transcript in which a self-introduction cue is attributed to the agent.
// Agents greet first; a "this is" much later in the call is more likely the
// customer or a transfer.
const agentWindow = 400

// agentCues are the self-introduction cues that mark the agent when they
// appear inside the opening window.
var agentCues = map[string]bool{
	"my name is": true,
	"this is":    true,
	"i am":       true,
}

// customerCue explicitly marks the customer name regardless of position.
const customerCue = "guest name is"

// Record is the privacy-safe representation of one participant's name.
type Record struct {
	// Masked keeps each name token's first letter and replaces the rest
	// with asterisks, e.g. "J*** S****".
	Masked string `json:"masked"`

	// Initials is the uppercase first letter of each token followed by a
	// period, e.g. "J.S.".
	Initials string `json:"initials"`
}

// Participants holds the resolved roles. A nil field means the role could
// not be resolved from the transcript.
type Participants struct {
	Agent    *Record `json:"agent,omitempty"`
	Customer *Record `json:"customer,omitempty"`
}

// Extract resolves the agent and customer names from the raw transcript.
// It never returns an error: a transcript without usable cues simply yields
// nil roles.
func Extract(raw string) Participants {
	cues := redact.NameCues(raw)
	if len(cues) == 0 {
		return Participants{}
	}

	var agentName, customerName string

	// Rule 1: agent is the first self-introduction inside the opening window.
	// Cue positions are byte offsets; the window is counted in characters so
	// multibyte text ahead of the cue does not shrink it.
	for _, c := range cues {
		if agentCues[c.Cue] && utf8.RuneCountInString(raw[:c.Pos]) < agentWindow {
			agentName = c.Name
			break
		}
	}

	// Rule 2: customer is the first explicit guest-name cue.
	for _, c := range cues {
		if c.Cue == customerCue {
			customerName = c.Name
			break
		}
	}

	// Rule 3: customer falls back to the first name distinct from the
	// resolved agent. Only meaningful once an agent name exists.
	if customerName == "" && agentName != "" {
		for _, c := range cues {
			if c.Name != agentName {
				customerName = c.Name
				break
			}
		}
	}

	// Rule 4: an unresolved agent defaults to the very first captured name.
	if agentName == "" {
		agentName = cues[0].Name
	}

	// Rule 5: an unresolved customer defaults to the positional second name.
	if customerName == "" && len(cues) >= 2 {
		customerName = cues[1].Name
	}

	p := Participants{Agent: newRecord(agentName)}
	if customerName != "" {
		p.Customer = newRecord(customerName)
	}
	return p
}

// newRecord builds the privacy-safe record for a resolved name.
func newRecord(name string) *Record {
	return &Record{Masked: maskName(name), Initials: initials(name)}
}

// maskName replaces every character after a token's first letter with '*'.
// Single-character tokens are rendered as the character plus one asterisk so
// the masked form never equals the original.
func maskName(name string) string {
	tokens := strings.Fields(name)
	masked := make([]string, len(tokens))
	for i, tok := range tokens {
		first, size := utf8.DecodeRuneInString(tok)
		rest := utf8.RuneCountInString(tok[size:])
		if rest == 0 {
			rest = 1
		}
		masked[i] = string(first) + strings.Repeat("*", rest)
	}
	return strings.Join(masked, " ")
}

// initials renders the uppercase first letter of each token followed by a
// period, concatenated without separators.
func initials(name string) string {
	var b strings.Builder
	for _, tok := range strings.Fields(name) {
		first, _ := utf8.DecodeRuneInString(tok)
		b.WriteRune(unicode.ToUpper(first))
		b.WriteByte('.')
	}
	return b.String()
}
