package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hotelcx/callaudit/internal/coach"
	"github.com/hotelcx/callaudit/internal/stt"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	coach map[string]func(ProviderEntry) (coach.Provider, error)
	stt   map[string]func(ProviderEntry) (stt.Transcriber, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		coach: make(map[string]func(ProviderEntry) (coach.Provider, error)),
		stt:   make(map[string]func(ProviderEntry) (stt.Transcriber, error)),
	}
}

// RegisterCoach registers a coach provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCoach(name string, factory func(ProviderEntry) (coach.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coach[name] = factory
}

// RegisterSTT registers a speech-to-text factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// CreateCoach instantiates a coach provider using the factory registered
// under name. The entry comes from cfg.Coach.Entries[name]; "mock" needs no
// entry. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateCoach(name string, entry ProviderEntry) (coach.Provider, error) {
	r.mu.RLock()
	factory, ok := r.coach[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: coach/%q", ErrProviderNotRegistered, name)
	}
	return factory(entry)
}

// CreateSTT instantiates a transcriber using the factory registered under
// entry.Name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
