// Package strategy defines the Strategy interface for signal generators,
// a Registry for looking them up by name, and the Backtester that runs them
// over historical bars.
package strategy

import (
	"sort"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

// Strategy turns a bar series into one signal per bar.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Generate returns a signal for every bar. Implementations must be pure:
	// the same bars always yield the same signals, so a Strategy can be
	// shared across goroutines.
	Generate(bars []domain.Bar) ([]domain.Signal, error)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
