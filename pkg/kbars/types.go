package kbars

// Instrument is one tradable listing or contract.
type Instrument struct {
	OrderBookID      string  `json:"order_book_id"`
	Symbol           string  `json:"symbol"`
	Type             string  `json:"type"`
	Exchange         string  `json:"exchange"`
	RoundLot         float64 `json:"round_lot"`
	ListedDate       int64   `json:"listed_date"`
	DeListedDate     int64   `json:"de_listed_date"`
	MarginRate       float64 `json:"margin_rate,omitempty"`
	UnderlyingSymbol string  `json:"underlying_symbol,omitempty"`
}

// DayBar is one daily (or resampled) price observation. Date is a YYYYMMDD
// integer key.
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

// Dividend is one cash dividend event.
type Dividend struct {
	OrderBookID      string  `json:"order_book_id"`
	AnnouncementDate int64   `json:"announcement_date"`
	BookClosureDate  int64   `json:"book_closure_date"`
	ExDividendDate   int64   `json:"ex_dividend_date"`
	PayableDate      int64   `json:"payable_date"`
	CashBeforeTax    float64 `json:"dividend_cash_before_tax"`
	RoundLot         float64 `json:"round_lot"`
}

// YieldCurvePoint is one treasury yield observation.
type YieldCurvePoint struct {
	Date  int64   `json:"date"`
	Tenor string  `json:"tenor"`
	Rate  float64 `json:"rate"`
}

// MarginInfo is the margin schedule of a futures instrument.
type MarginInfo struct {
	MarginType       string  `json:"margin_type"`
	LongMarginRatio  float64 `json:"long_margin_ratio"`
	ShortMarginRatio float64 `json:"short_margin_ratio"`
}

// CommissionInfo is the commission schedule of a futures product.
type CommissionInfo struct {
	CommissionType            string  `json:"commission_type"`
	OpenCommissionRatio       float64 `json:"open_commission_ratio"`
	CloseCommissionRatio      float64 `json:"close_commission_ratio"`
	CloseCommissionTodayRatio float64 `json:"close_commission_today_ratio"`
}

// Health reports server liveness and bundle size.
type Health struct {
	Status      string `json:"status"`
	Instruments int    `json:"instruments"`
}

// Instruments is the instrument listing response.
type Instruments struct {
	Count       int          `json:"count"`
	Instruments []Instrument `json:"instruments"`
}

// Bars is a columnar history window: one value array per field, all of
// length Count.
type Bars struct {
	OrderBookID string               `json:"order_book_id"`
	Frequency   string               `json:"frequency"`
	Fields      []string             `json:"fields"`
	Count       int                  `json:"count"`
	Columns     map[string][]float64 `json:"columns"`
}

// Bar is a single daily bar response; Bar is nil when the instrument did
// not trade on the date.
type Bar struct {
	OrderBookID string  `json:"order_book_id"`
	Date        string  `json:"date"`
	Bar         *DayBar `json:"bar"`
}

// SettlePrice carries a settlement price, nil when no bar exists.
type SettlePrice struct {
	OrderBookID string   `json:"order_book_id"`
	Date        string   `json:"date"`
	SettlePrice *float64 `json:"settle_price"`
}

// DataRange is the first and last bar date of the benchmark series, both
// nil for an empty bundle.
type DataRange struct {
	Frequency string  `json:"frequency"`
	Start     *string `json:"start"`
	End       *string `json:"end"`
}

// Dividends lists the dividend events of one instrument.
type Dividends struct {
	OrderBookID string     `json:"order_book_id"`
	Variant     string     `json:"variant"`
	Count       int        `json:"count"`
	Dividends   []Dividend `json:"dividends"`
}

// DateFlags answers a per-date membership query; Flags[i] corresponds to
// Dates[i].
type DateFlags struct {
	OrderBookID string   `json:"order_book_id"`
	Dates       []string `json:"dates"`
	Flags       []bool   `json:"flags"`
}

// Calendar lists trading dates.
type Calendar struct {
	Count int      `json:"count"`
	Dates []string `json:"dates"`
}

// YieldCurve lists yield curve points.
type YieldCurve struct {
	Count  int               `json:"count"`
	Points []YieldCurvePoint `json:"points"`
}

// RiskFreeRate carries an annualized rate, nil when the curve has no data
// for the window.
type RiskFreeRate struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Rate  *float64 `json:"rate"`
}
