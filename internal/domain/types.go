// Package domain defines the market data types shared across kbars: day
// bars, instruments, bar fields, and the reference data records served by
// the bundle stores.
package domain

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Instruments
// ---------------------------------------------------------------------------

// InstrumentType tags the asset class of an instrument. The set is closed;
// anything else is rejected by the engine's classifier.
type InstrumentType string

const (
	TypeCS      InstrumentType = "CS"   // common stock
	TypeINDX    InstrumentType = "INDX" // index
	TypeFuture  InstrumentType = "Future"
	TypeETF     InstrumentType = "ETF"
	TypeLOF     InstrumentType = "LOF"
	TypeFenjiA  InstrumentType = "FenjiA"  // structured fund A tranche
	TypeFenjiB  InstrumentType = "FenjiB"  // structured fund B tranche
	TypeFenjiMu InstrumentType = "FenjiMu" // structured fund mother unit
)

// Instrument is one tradable listing or contract. Instances come from the
// bundle's instrument store and are read-only inputs to the engine.
//
// ListedDate and DeListedDate use the same YYYYMMDD integer encoding as bar
// dates. MarginRate and UnderlyingSymbol are meaningful for futures only.
type Instrument struct {
	OrderBookID      string         `json:"order_book_id"`
	Symbol           string         `json:"symbol"`
	Type             InstrumentType `json:"type"`
	Exchange         string         `json:"exchange"`
	RoundLot         float64        `json:"round_lot"`
	ListedDate       int64          `json:"listed_date"`
	DeListedDate     int64          `json:"de_listed_date"`
	MarginRate       float64        `json:"margin_rate,omitempty"`
	UnderlyingSymbol string         `json:"underlying_symbol,omitempty"`
}

// ---------------------------------------------------------------------------
// Frequencies
// ---------------------------------------------------------------------------

// Frequency selects the bar granularity of a history query. Weekly and
// monthly bars are resampled on the fly from daily bars.
type Frequency string

const (
	FreqDaily   Frequency = "1d"
	FreqWeekly  Frequency = "1w"
	FreqMonthly Frequency = "1M"
)

// ParseFrequency validates a frequency string from an API or CLI caller.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FreqDaily, FreqWeekly, FreqMonthly:
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// ---------------------------------------------------------------------------
// Day bars
// ---------------------------------------------------------------------------

// DayBar is one daily (or resampled weekly/monthly) price observation.
// Date is a YYYYMMDD integer key; within one instrument's series dates are
// strictly increasing and the series is immutable once loaded.
//
// Settlement, PrevSettlement and OpenInterest are populated for futures
// daily bars only; resampled bars carry the core fields alone.
type DayBar struct {
	Date           int64   `json:"date"`
	Open           float64 `json:"open"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Close          float64 `json:"close"`
	Volume         float64 `json:"volume"`
	TotalTurnover  float64 `json:"total_turnover"`
	Settlement     float64 `json:"settlement,omitempty"`
	PrevSettlement float64 `json:"prev_settlement,omitempty"`
	OpenInterest   float64 `json:"open_interest,omitempty"`
}

// Field names one column of a bar series.
type Field string

const (
	FieldDatetime       Field = "datetime"
	FieldOpen           Field = "open"
	FieldHigh           Field = "high"
	FieldLow            Field = "low"
	FieldClose          Field = "close"
	FieldVolume         Field = "volume"
	FieldTotalTurnover  Field = "total_turnover"
	FieldSettlement     Field = "settlement"
	FieldPrevSettlement Field = "prev_settlement"
	FieldOpenInterest   Field = "open_interest"
)

// DayBarFields returns the schema of stock, index and fund daily bars, and
// of all resampled bars.
func DayBarFields() []Field {
	return []Field{
		FieldDatetime, FieldOpen, FieldHigh, FieldLow, FieldClose,
		FieldVolume, FieldTotalTurnover,
	}
}

// FutureDayBarFields returns the schema of futures daily bars.
func FutureDayBarFields() []Field {
	return append(DayBarFields(),
		FieldSettlement, FieldPrevSettlement, FieldOpenInterest)
}

// ParseFields splits a comma-separated field list from an API or CLI caller.
// An empty input means "all fields" and returns nil.
func ParseFields(s string) []Field {
	if s == "" {
		return nil
	}
	var fields []Field
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			fields = append(fields, Field(part))
		}
	}
	return fields
}

// Value returns the named column of the bar. The date key is below 2^53 so
// its float64 image is exact. Unknown fields read as zero; callers validate
// field names before projecting.
func (b DayBar) Value(f Field) float64 {
	switch f {
	case FieldDatetime:
		return float64(b.Date)
	case FieldOpen:
		return b.Open
	case FieldHigh:
		return b.High
	case FieldLow:
		return b.Low
	case FieldClose:
		return b.Close
	case FieldVolume:
		return b.Volume
	case FieldTotalTurnover:
		return b.TotalTurnover
	case FieldSettlement:
		return b.Settlement
	case FieldPrevSettlement:
		return b.PrevSettlement
	case FieldOpenInterest:
		return b.OpenInterest
	}
	return 0
}

// Columns projects a bar series onto the requested fields, one value slice
// per field in record order. A nil field list projects the core schema.
func Columns(bars []DayBar, fields []Field) map[Field][]float64 {
	if fields == nil {
		fields = DayBarFields()
	}
	cols := make(map[Field][]float64, len(fields))
	for _, f := range fields {
		vals := make([]float64, len(bars))
		for i, b := range bars {
			vals[i] = b.Value(f)
		}
		cols[f] = vals
	}
	return cols
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

// Dividend is one cash dividend event. Dates use the YYYYMMDD encoding;
// CashBeforeTax is per round lot.
type Dividend struct {
	OrderBookID      string  `json:"order_book_id"`
	AnnouncementDate int64   `json:"announcement_date"`
	BookClosureDate  int64   `json:"book_closure_date"`
	ExDividendDate   int64   `json:"ex_dividend_date"`
	PayableDate      int64   `json:"payable_date"`
	CashBeforeTax    float64 `json:"dividend_cash_before_tax"`
	RoundLot         float64 `json:"round_lot"`
}

// YieldCurvePoint is one treasury yield observation: the annualized rate for
// one tenor on one date.
type YieldCurvePoint struct {
	Date  int64   `json:"date"`
	Tenor string  `json:"tenor"`
	Rate  float64 `json:"rate"`
}

// MarginType and CommissionType describe how futures margin and commission
// are charged.
type (
	MarginType     string
	CommissionType string
)

const (
	MarginByMoney MarginType = "BY_MONEY"

	CommissionByMoney  CommissionType = "BY_MONEY"
	CommissionByVolume CommissionType = "BY_VOLUME"
)

// MarginInfo is the margin schedule for one futures instrument.
type MarginInfo struct {
	MarginType       MarginType `json:"margin_type"`
	LongMarginRatio  float64    `json:"long_margin_ratio"`
	ShortMarginRatio float64    `json:"short_margin_ratio"`
}

// CommissionInfo is the speculation-grade commission schedule for one
// futures product.
type CommissionInfo struct {
	CommissionType            CommissionType `json:"commission_type"`
	OpenCommissionRatio       float64        `json:"open_commission_ratio"`
	CloseCommissionRatio      float64        `json:"close_commission_ratio"`
	CloseCommissionTodayRatio float64        `json:"close_commission_today_ratio"`
}
