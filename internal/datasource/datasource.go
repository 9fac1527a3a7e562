// Package datasource implements the daily bar query engine: per-instrument
// series caching, exact-date lookup, bounded history windows with weekly and
// monthly resampling, and the reference lookups (dividends, suspension
// flags, yield curve, futures margin and commission) a backtest needs.
package datasource

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"kbars/internal/domain"
	"kbars/internal/store"
	"kbars/internal/util"
)

// Sentinel errors. Data absence is never an error; these mark requests the
// engine cannot serve at all.
var (
	// ErrUnsupportedFrequency marks a frequency outside the engine's
	// daily/weekly/monthly coverage, or one a specific operation does not
	// accept.
	ErrUnsupportedFrequency = errors.New("unsupported frequency")

	// ErrUnknownAssetClass marks an instrument type outside the closed
	// table mapping. This is a configuration fault, distinct from an
	// instrument that is merely absent from its table.
	ErrUnknownAssetClass = errors.New("unknown asset class")

	// ErrInvalidField marks a requested field outside the applicable bar
	// schema.
	ErrInvalidField = errors.New("invalid field")
)

// ---------------------------------------------------------------------------
// Asset class classification
// ---------------------------------------------------------------------------

// Bar table indexes. Fund-like instruments share one table.
const (
	tableStock = iota
	tableIndex
	tableFuture
	tableFund
	tableCount
)

// instrumentTables is the closed mapping from instrument type to bar table.
var instrumentTables = map[domain.InstrumentType]int{
	domain.TypeCS:      tableStock,
	domain.TypeINDX:    tableIndex,
	domain.TypeFuture:  tableFuture,
	domain.TypeETF:     tableFund,
	domain.TypeLOF:     tableFund,
	domain.TypeFenjiA:  tableFund,
	domain.TypeFenjiB:  tableFund,
	domain.TypeFenjiMu: tableFund,
}

// benchmarkOrderBookID anchors AvailableDataRange: the overall range is the
// one covered by the Shanghai Composite index.
const benchmarkOrderBookID = "000001.XSHG"

// ---------------------------------------------------------------------------
// DataSource
// ---------------------------------------------------------------------------

// Deps are the stores a DataSource reads from. The four bar tables and the
// instrument table are required; the rest may be empty stores.
type Deps struct {
	Stocks  store.DayBarTable
	Indexes store.DayBarTable
	Futures store.DayBarTable
	Funds   store.DayBarTable

	Instruments       store.InstrumentTable
	Dividends         store.DividendTable
	OriginalDividends store.DividendTable
	TradingDates      store.TradingDatesTable
	YieldCurve        store.YieldCurveTable
	SuspendedDays     store.DateSet
	STStockDays       store.DateSet
}

// DataSource answers read-only bar and reference queries over one opened
// bundle. It is safe for concurrent use; all mutable state lives in the
// series cache, which computes each series at most once.
type DataSource struct {
	deps   Deps
	tables [tableCount]store.DayBarTable
	cache  *barCache

	instruments []domain.Instrument
	instByID    map[string]domain.Instrument

	logger *slog.Logger
}

// New builds a DataSource over the given stores. The instrument universe is
// read once up front.
func New(deps Deps, logger *slog.Logger) *DataSource {
	if logger == nil {
		logger = slog.Default()
	}
	instruments := deps.Instruments.AllInstruments()
	byID := make(map[string]domain.Instrument, len(instruments))
	for _, inst := range instruments {
		byID[inst.OrderBookID] = inst
	}
	return &DataSource{
		deps:        deps,
		tables:      [tableCount]store.DayBarTable{deps.Stocks, deps.Indexes, deps.Futures, deps.Funds},
		cache:       newBarCache(),
		instruments: instruments,
		instByID:    byID,
		logger:      logger,
	}
}

// NewFromBundle wires a DataSource to every store of an opened bundle.
func NewFromBundle(b *store.Bundle, logger *slog.Logger) *DataSource {
	return New(Deps{
		Stocks:            b.Stocks,
		Indexes:           b.Indexes,
		Futures:           b.Futures,
		Funds:             b.Funds,
		Instruments:       b.Instruments,
		Dividends:         b.Dividends,
		OriginalDividends: b.OriginalDividends,
		TradingDates:      b.TradingDates,
		YieldCurve:        b.YieldCurve,
		SuspendedDays:     b.SuspendedDays,
		STStockDays:       b.STStockDays,
	}, logger)
}

// tableFor selects the bar table holding an instrument's series.
func (ds *DataSource) tableFor(inst domain.Instrument) (store.DayBarTable, error) {
	idx, ok := instrumentTables[inst.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAssetClass, inst.Type)
	}
	return ds.tables[idx], nil
}

// AllInstruments returns the full instrument universe.
func (ds *DataSource) AllInstruments() []domain.Instrument {
	return ds.instruments
}

// Instrument looks up one instrument by order book ID.
func (ds *DataSource) Instrument(orderBookID string) (domain.Instrument, bool) {
	inst, ok := ds.instByID[orderBookID]
	return inst, ok
}

// ClearCache drops every memoized bar series. Useful between backtests in a
// long-lived process; the next queries re-read the tables.
func (ds *DataSource) ClearCache() {
	ds.cache.clear()
	ds.logger.Debug("bar cache cleared")
}

// ---------------------------------------------------------------------------
// Reference lookups
// ---------------------------------------------------------------------------

// GetSettlePrice returns a futures contract's settlement price on a date,
// NaN when the date has no bar.
func (ds *DataSource) GetSettlePrice(inst domain.Instrument, date time.Time) float64 {
	bar, ok, err := ds.GetBar(inst, date, domain.FreqDaily)
	if err != nil || !ok {
		return math.NaN()
	}
	return bar.Settlement
}

// GetMarginInfo returns a futures contract's margin schedule: charged by
// money at the instrument's margin rate on both sides.
func (ds *DataSource) GetMarginInfo(inst domain.Instrument) domain.MarginInfo {
	return domain.MarginInfo{
		MarginType:       domain.MarginByMoney,
		LongMarginRatio:  inst.MarginRate,
		ShortMarginRatio: inst.MarginRate,
	}
}

// GetCommissionInfo returns the speculation commission schedule for a
// futures contract's product. ok is false for products outside the table.
func (ds *DataSource) GetCommissionInfo(inst domain.Instrument) (domain.CommissionInfo, bool) {
	info, ok := futureCommission[inst.UnderlyingSymbol]
	return info, ok
}

// AvailableDataRange reports the overall date range of the bundle, taken
// from the benchmark index's series. Only the daily frequency is supported.
func (ds *DataSource) AvailableDataRange(freq domain.Frequency) (start, end time.Time, err error) {
	if freq != domain.FreqDaily {
		return time.Time{}, time.Time{}, fmt.Errorf("available data range %q: %w", freq, ErrUnsupportedFrequency)
	}
	s, e, ok := ds.tables[tableIndex].GetDateRange(benchmarkOrderBookID)
	if !ok {
		return time.Time{}, time.Time{}, nil
	}
	return util.IntToDate(s), util.IntToDate(e), nil
}

// GetDividends returns an instrument's cash dividend events, from the
// adjusted or the original table.
func (ds *DataSource) GetDividends(orderBookID string, adjusted bool) []domain.Dividend {
	if adjusted {
		return ds.deps.Dividends.GetDividends(orderBookID)
	}
	return ds.deps.OriginalDividends.GetDividends(orderBookID)
}

// IsSuspended reports, per query date, whether the instrument was suspended.
func (ds *DataSource) IsSuspended(orderBookID string, dates []time.Time) []bool {
	return ds.deps.SuspendedDays.Contains(orderBookID, dates)
}

// IsSTStock reports, per query date, whether the stock was under special
// treatment.
func (ds *DataSource) IsSTStock(orderBookID string, dates []time.Time) []bool {
	return ds.deps.STStockDays.Contains(orderBookID, dates)
}

// TradingCalendar returns the exchange trading calendar in ascending order.
func (ds *DataSource) TradingCalendar() []time.Time {
	return ds.deps.TradingDates.TradingCalendar()
}

// GetYieldCurve returns treasury curve points within [start, end],
// restricted to one tenor when tenor is non-empty.
func (ds *DataSource) GetYieldCurve(start, end time.Time, tenor string) []domain.YieldCurvePoint {
	return ds.deps.YieldCurve.GetYieldCurve(start, end, tenor)
}

// GetRiskFreeRate returns the annualized risk-free rate for the span
// [start, end], NaN when the curve has no qualifying observation.
func (ds *DataSource) GetRiskFreeRate(start, end time.Time) float64 {
	return ds.deps.YieldCurve.GetRiskFreeRate(start, end)
}
