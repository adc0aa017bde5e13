// Package mock provides an in-memory coach.Provider for tests and local
// development without API credentials.
package mock

import (
	"context"
	"sync"

	"github.com/hotelcx/callaudit/internal/coach"
)

// Provider is a configurable test double. The zero value returns a fixed
// feedback string for every transcript.
type Provider struct {
	// AnalyzeFunc, when non-nil, handles Analyze calls.
	AnalyzeFunc func(ctx context.Context, masked string) (string, error)

	mu    sync.Mutex
	calls []string
}

// Compile-time interface assertion.
var _ coach.Provider = (*Provider)(nil)

// Name implements [coach.Provider].
func (p *Provider) Name() string { return "mock" }

// Analyze implements [coach.Provider]. Every call is recorded for later
// inspection via [Provider.Calls].
func (p *Provider) Analyze(ctx context.Context, masked string) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, masked)
	p.mu.Unlock()

	if p.AnalyzeFunc != nil {
		return p.AnalyzeFunc(ctx, masked)
	}
	return "- Mock feedback: call handled.", nil
}

// Calls returns the masked transcripts passed to Analyze so far.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}
