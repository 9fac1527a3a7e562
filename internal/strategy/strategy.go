// Package strategy defines the Strategy interface for daily-bar trading
// strategies and provides a Registry for managing multiple strategy
// implementations.
package strategy

import (
	"context"
	"sort"

	"kbars/internal/domain"
)

// Side is the direction of a trading signal.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Signal is one trading decision emitted by a strategy: act on an
// instrument on the bar date that produced it.
type Signal struct {
	OrderBookID string
	Date        int64
	Side        Side
}

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Init performs any one-time setup required before the strategy begins
	// processing market data. It is called at the start of every backtest
	// run and must reset accumulated state.
	Init(ctx context.Context) error

	// OnBar is called once per instrument per trading day with that day's
	// bar. It returns zero or more trading signals.
	OnBar(ctx context.Context, orderBookID string, bar domain.DayBar) ([]Signal, error)
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
