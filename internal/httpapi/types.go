// Package httpapi serves the kbars query API as read-only JSON over HTTP.
// Every endpoint is a GET against an opened bundle; data absence is an
// empty 200 payload, never an error status.
package httpapi

import (
	"math"

	"kbars/internal/domain"
)

// InstrumentsResponse lists instruments, optionally filtered by type.
type InstrumentsResponse struct {
	Count       int                 `json:"count"`
	Instruments []domain.Instrument `json:"instruments"`
}

// BarsResponse is a columnar history window: one value array per requested
// field, all of length Count.
type BarsResponse struct {
	OrderBookID string                     `json:"order_book_id"`
	Frequency   string                     `json:"frequency"`
	Fields      []domain.Field             `json:"fields"`
	Count       int                        `json:"count"`
	Columns     map[domain.Field][]float64 `json:"columns"`
}

// BarResponse is a single daily bar. Bar is null when the instrument did
// not trade on the requested date.
type BarResponse struct {
	OrderBookID string         `json:"order_book_id"`
	Date        string         `json:"date"`
	Bar         *domain.DayBar `json:"bar"`
}

// SettlePriceResponse carries a futures settlement price, null when no bar
// exists for the date.
type SettlePriceResponse struct {
	OrderBookID string   `json:"order_book_id"`
	Date        string   `json:"date"`
	SettlePrice *float64 `json:"settle_price"`
}

// RangeResponse is the first and last bar date of the benchmark series,
// both null for an empty bundle.
type RangeResponse struct {
	Frequency string  `json:"frequency"`
	Start     *string `json:"start"`
	End       *string `json:"end"`
}

// DividendsResponse lists cash dividends for one instrument.
type DividendsResponse struct {
	OrderBookID string            `json:"order_book_id"`
	Variant     string            `json:"variant"`
	Count       int               `json:"count"`
	Dividends   []domain.Dividend `json:"dividends"`
}

// DateFlagsResponse answers a per-date membership query (suspension, ST
// status): Flags[i] corresponds to Dates[i].
type DateFlagsResponse struct {
	OrderBookID string   `json:"order_book_id"`
	Dates       []string `json:"dates"`
	Flags       []bool   `json:"flags"`
}

// CalendarResponse lists trading dates, optionally windowed.
type CalendarResponse struct {
	Count int      `json:"count"`
	Dates []string `json:"dates"`
}

// YieldCurveResponse lists yield curve points in a date window.
type YieldCurveResponse struct {
	Count  int                      `json:"count"`
	Points []domain.YieldCurvePoint `json:"points"`
}

// RiskFreeRateResponse carries an annualized risk-free rate, null when the
// curve has no data at or before the window start.
type RiskFreeRateResponse struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Rate  *float64 `json:"rate"`
}

// HealthResponse reports server liveness and the size of the loaded bundle.
type HealthResponse struct {
	Status      string `json:"status"`
	Instruments int    `json:"instruments"`
}

// finitePtr returns nil for NaN and infinities so they serialize as JSON
// null instead of failing to encode.
func finitePtr(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
