package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"kbars/internal/domain"
)

// Compile-time interface check.
var _ DayBarTable = (*DayBarStore)(nil)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// dayBarRow is the Parquet schema for day bar files. One schema covers all
// four asset-class tables; the settlement columns are zero outside futures.
type dayBarRow struct {
	OrderBookID    string  `parquet:"order_book_id,dict"`
	Date           int64   `parquet:"date"` // YYYYMMDD
	Open           float64 `parquet:"open"`
	High           float64 `parquet:"high"`
	Low            float64 `parquet:"low"`
	Close          float64 `parquet:"close"`
	Volume         float64 `parquet:"volume"`
	TotalTurnover  float64 `parquet:"total_turnover"`
	Settlement     float64 `parquet:"settlement"`
	PrevSettlement float64 `parquet:"prev_settlement"`
	OpenInterest   float64 `parquet:"open_interest"`
}

func (r dayBarRow) toBar() domain.DayBar {
	return domain.DayBar{
		Date:           r.Date,
		Open:           r.Open,
		High:           r.High,
		Low:            r.Low,
		Close:          r.Close,
		Volume:         r.Volume,
		TotalTurnover:  r.TotalTurnover,
		Settlement:     r.Settlement,
		PrevSettlement: r.PrevSettlement,
		OpenInterest:   r.OpenInterest,
	}
}

// ---------------------------------------------------------------------------
// DayBarStore
// ---------------------------------------------------------------------------

// DayBarStore holds one asset class's daily bars, loaded from a single
// Parquet file and grouped by order book ID. Series are sorted ascending by
// date at load time and immutable afterwards.
type DayBarStore struct {
	path string
	bars map[string][]domain.DayBar
}

// OpenDayBarStore reads a day bar Parquet file into memory.
func OpenDayBarStore(path string) (*DayBarStore, error) {
	rows, err := readParquetFile[dayBarRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading day bars %s: %w", path, err)
	}

	bars := make(map[string][]domain.DayBar)
	for _, r := range rows {
		bars[r.OrderBookID] = append(bars[r.OrderBookID], r.toBar())
	}
	for id := range bars {
		series := bars[id]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date < series[j].Date
		})
	}

	return &DayBarStore{path: path, bars: bars}, nil
}

// GetBars returns the ascending series for an instrument.
func (s *DayBarStore) GetBars(orderBookID string) ([]domain.DayBar, bool) {
	series, ok := s.bars[orderBookID]
	return series, ok
}

// GetDateRange returns the first and last bar dates for an instrument.
func (s *DayBarStore) GetDateRange(orderBookID string) (start, end int64, ok bool) {
	series, ok := s.bars[orderBookID]
	if !ok || len(series) == 0 {
		return 0, 0, false
	}
	return series[0].Date, series[len(series)-1].Date, true
}

// Len returns the number of instruments in the table.
func (s *DayBarStore) Len() int {
	return len(s.bars)
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// readOptionalParquetFile is readParquetFile for bundle files that may be
// absent; a missing file yields no rows.
func readOptionalParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return readParquetFile[T](path)
}
