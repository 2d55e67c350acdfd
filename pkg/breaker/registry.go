package breaker

import (
	"log/slog"
	"sync"
)

// Registry hands out shared per-process circuit breakers keyed by name.
// It is the only process-wide mutable state in the delivery path, so every
// accessor is mutex-guarded.
type Registry struct {
	logger *slog.Logger
	config Config

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry whose breakers use config as defaults.
func NewRegistry(config Config, logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name, creating it closed on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[name]
	if !ok {
		cb = New(name, r.config, r.logger)
		r.breakers[name] = cb
	}

	return cb
}

// Stats returns snapshots for every registered breaker.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]Stats, 0, len(r.breakers))
	for _, cb := range r.breakers {
		stats = append(stats, cb.Stats())
	}

	return stats
}

// ResetAll forces every registered breaker closed.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cb := range r.breakers {
		cb.Reset()
	}
}
