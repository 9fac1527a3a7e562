package store

import (
	"fmt"
	"sort"
	"time"

	"kbars/internal/util"
)

// Compile-time interface check.
var _ TradingDatesTable = (*TradingDatesStore)(nil)

// tradingDateRow is the Parquet schema for the trading calendar file.
type tradingDateRow struct {
	Date int64 `parquet:"date"` // YYYYMMDD
}

// TradingDatesStore holds the exchange trading calendar.
type TradingDatesStore struct {
	dates []time.Time
}

// OpenTradingDatesStore reads the trading calendar Parquet file into memory.
func OpenTradingDatesStore(path string) (*TradingDatesStore, error) {
	rows, err := readParquetFile[tradingDateRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading trading dates %s: %w", path, err)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })

	dates := make([]time.Time, len(rows))
	for i, r := range rows {
		dates[i] = util.IntToDate(r.Date)
	}

	return &TradingDatesStore{dates: dates}, nil
}

// TradingCalendar returns all trading dates in ascending order.
func (s *TradingDatesStore) TradingCalendar() []time.Time {
	return s.dates
}
