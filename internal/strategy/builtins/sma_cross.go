// Package builtins provides the built-in strategy implementations that ship
// with kbars.
package builtins

import (
	"context"

	"kbars/internal/domain"
	"kbars/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It
// generates a buy signal when the short-period SMA crosses above the
// long-period SMA, and a sell signal when it crosses below.
type SMACross struct {
	shortPeriod int
	longPeriod  int

	closes map[string][]float64
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
		closes:      make(map[string][]float64),
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Init resets the per-instrument price history.
func (s *SMACross) Init(_ context.Context) error {
	s.closes = make(map[string][]float64)
	return nil
}

// OnBar appends the bar close to the instrument's price history and emits a
// signal when the short SMA crosses the long SMA between the previous bar
// and this one.
func (s *SMACross) OnBar(_ context.Context, orderBookID string, bar domain.DayBar) ([]strategy.Signal, error) {
	closes := append(s.closes[orderBookID], bar.Close)
	// One bar beyond the long period is enough to detect a cross.
	if len(closes) > s.longPeriod+1 {
		closes = closes[1:]
	}
	s.closes[orderBookID] = closes

	if len(closes) <= s.longPeriod {
		return nil, nil
	}

	prev := closes[:len(closes)-1]
	shortPrev, longPrev := sma(prev, s.shortPeriod), sma(prev, s.longPeriod)
	shortNow, longNow := sma(closes, s.shortPeriod), sma(closes, s.longPeriod)

	switch {
	case shortPrev <= longPrev && shortNow > longNow:
		return []strategy.Signal{{OrderBookID: orderBookID, Date: bar.Date, Side: strategy.SideBuy}}, nil
	case shortPrev >= longPrev && shortNow < longNow:
		return []strategy.Signal{{OrderBookID: orderBookID, Date: bar.Date, Side: strategy.SideSell}}, nil
	}
	return nil, nil
}

// sma averages the last n values.
func sma(values []float64, n int) float64 {
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}
