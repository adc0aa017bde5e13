package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [Group] fails or has an
// open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// GroupConfig configures the per-entry circuit breaker created for each
// provider in a [Group].
type GroupConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// entry pairs a provider value with its dedicated circuit breaker.
type entry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// Group wraps a primary and zero or more fallback instances of the same
// provider type. When the primary fails, or its breaker is open, the next
// healthy fallback is tried in registration order.
type Group[T any] struct {
	entries []entry[T]
	cfg     GroupConfig
}

// NewGroup creates a [Group] with primary as the first entry. Register
// additional fallbacks via [Group.AddFallback].
func NewGroup[T any](primary T, primaryName string, cfg GroupConfig) *Group[T] {
	cbCfg := cfg.CircuitBreaker
	cbCfg.Name = primaryName
	return &Group[T]{
		entries: []entry[T]{{
			name:    primaryName,
			value:   primary,
			breaker: NewCircuitBreaker(cbCfg),
		}},
		cfg: cfg,
	}
}

// AddFallback appends a fallback provider, tried after all earlier entries.
func (g *Group[T]) AddFallback(name string, fallback T) {
	cbCfg := g.cfg.CircuitBreaker
	cbCfg.Name = name
	g.entries = append(g.entries, entry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Execute tries fn against each entry in order until one succeeds, skipping
// entries whose breaker is open. Returns [ErrAllFailed] wrapping the last
// error when every entry fails.
//
// This is a package-level function because Go does not support method-level
// type parameters.
func Execute[T any, R any](g *Group[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range g.entries {
		e := &g.entries[i]
		var result R
		err := e.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(e.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider (circuit open)", "provider", e.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", e.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
