package resilience

import (
	"context"
	"strings"

	"github.com/hotelcx/callaudit/internal/coach"
)

// CoachFallback implements [coach.Provider] with automatic failover across
// multiple coaching backends. Each backend has its own circuit breaker; when
// the primary fails or its breaker is open, the next healthy fallback is
// tried.
type CoachFallback struct {
	group *Group[coach.Provider]
	names []string
}

// Compile-time interface assertion.
var _ coach.Provider = (*CoachFallback)(nil)

// NewCoachFallback creates a [CoachFallback] with primary as the preferred
// backend.
func NewCoachFallback(primary coach.Provider, cfg GroupConfig) *CoachFallback {
	return &CoachFallback{
		group: NewGroup(primary, primary.Name(), cfg),
		names: []string{primary.Name()},
	}
}

// AddFallback registers an additional coaching backend.
func (f *CoachFallback) AddFallback(p coach.Provider) {
	f.group.AddFallback(p.Name(), p)
	f.names = append(f.names, p.Name())
}

// Name identifies the whole failover chain, e.g. "gemini+openai".
func (f *CoachFallback) Name() string {
	return strings.Join(f.names, "+")
}

// Analyze asks the first healthy backend for feedback.
func (f *CoachFallback) Analyze(ctx context.Context, masked string) (string, error) {
	return Execute(f.group, func(p coach.Provider) (string, error) {
		return p.Analyze(ctx, masked)
	})
}
