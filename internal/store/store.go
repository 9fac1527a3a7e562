// Package store reads the bundle: the directory of columnar files holding
// daily bars, instrument metadata, dividends, the trading calendar, the
// treasury yield curve, and per-instrument date sets. Every store is opened
// read-only and fully loaded into memory; the returned slices are shared and
// must not be mutated by callers.
package store

import (
	"time"

	"kbars/internal/domain"
)

// DayBarTable serves the full daily bar series of one asset class.
type DayBarTable interface {
	// GetBars returns the ascending-by-date series for an instrument, or
	// ok=false if the instrument is unknown to this table.
	GetBars(orderBookID string) ([]domain.DayBar, bool)

	// GetDateRange returns the first and last bar dates (YYYYMMDD keys) for
	// an instrument, or ok=false if it is unknown to this table.
	GetDateRange(orderBookID string) (start, end int64, ok bool)
}

// InstrumentTable serves instrument metadata.
type InstrumentTable interface {
	// AllInstruments returns every instrument in the bundle, sorted by
	// order book ID.
	AllInstruments() []domain.Instrument
}

// DividendTable serves cash dividend events.
type DividendTable interface {
	// GetDividends returns an instrument's dividend events in announcement
	// order; the slice is empty for instruments without dividends.
	GetDividends(orderBookID string) []domain.Dividend
}

// TradingDatesTable serves the exchange trading calendar.
type TradingDatesTable interface {
	// TradingCalendar returns all trading dates in ascending order as
	// midnight-UTC times.
	TradingCalendar() []time.Time
}

// YieldCurveTable serves treasury yield curve data.
type YieldCurveTable interface {
	// GetYieldCurve returns curve points dated within [start, end],
	// restricted to one tenor when tenor is non-empty.
	GetYieldCurve(start, end time.Time, tenor string) []domain.YieldCurvePoint

	// GetRiskFreeRate returns the annualized risk-free rate for the span
	// [start, end], or NaN when no curve row qualifies.
	GetRiskFreeRate(start, end time.Time) float64
}

// DateSet answers per-instrument date membership queries (suspension days,
// special-treatment days).
type DateSet interface {
	// Contains reports, for each query date, whether the instrument is in
	// the set on that date.
	Contains(orderBookID string, dates []time.Time) []bool
}
