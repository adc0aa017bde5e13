// Package coach defines the interface to the external language-model
// collaborator that produces free-text coaching feedback for a call.
//
// The coach only ever sees the masked transcript. Feedback is best effort:
// provider failures degrade to a human-readable message and never fail a
// review.
package coach

import (
	"context"
	"fmt"
)

// Messages returned in place of feedback when no analysis is possible.
const (
	// EmptyTranscriptMessage is returned without consulting any provider.
	EmptyTranscriptMessage = "Transcript was empty."

	// NoSuggestionsMessage is returned when the provider answers with an
	// empty completion.
	NoSuggestionsMessage = "No AI suggestions available."
)

// promptTemplate frames the model as a QA coach. The masked transcript is
// interpolated at call time.
const promptTemplate = `You are a QA coach for hotel reservations calls.

Transcript (PII-masked):
"""%s"""

Provide 4-6 bullet points:
- Call reason
- What the agent did well (map to behaviors)
- What was incorrect or missing (map to behaviors)
- Concrete, actionable improvements

Be concise and specific.`

// BuildPrompt renders the coaching prompt for a masked transcript.
func BuildPrompt(masked string) string {
	return fmt.Sprintf(promptTemplate, masked)
}

// Provider is the abstraction over any coaching backend. Implementations
// must be safe for concurrent use and must respect context cancellation.
type Provider interface {
	// Analyze returns coaching feedback for the masked transcript.
	Analyze(ctx context.Context, masked string) (string, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}
