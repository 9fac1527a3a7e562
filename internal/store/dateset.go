package store

import (
	"fmt"
	"time"

	"kbars/internal/util"
)

// Compile-time interface check.
var _ DateSet = (*DateSetStore)(nil)

// dateSetRow is the Parquet schema for date set files (suspended days,
// special-treatment days).
type dateSetRow struct {
	OrderBookID string `parquet:"order_book_id,dict"`
	Date        int64  `parquet:"date"` // YYYYMMDD
}

// DateSetStore answers per-instrument date membership queries.
type DateSetStore struct {
	days map[string]map[int64]struct{}
}

// OpenDateSetStore reads a date set Parquet file into memory. A missing file
// yields an empty store.
func OpenDateSetStore(path string) (*DateSetStore, error) {
	rows, err := readOptionalParquetFile[dateSetRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading date set %s: %w", path, err)
	}

	days := make(map[string]map[int64]struct{})
	for _, r := range rows {
		set, ok := days[r.OrderBookID]
		if !ok {
			set = make(map[int64]struct{})
			days[r.OrderBookID] = set
		}
		set[r.Date] = struct{}{}
	}

	return &DateSetStore{days: days}, nil
}

// Contains reports, for each query date, whether the instrument is in the
// set on that date.
func (s *DateSetStore) Contains(orderBookID string, dates []time.Time) []bool {
	set := s.days[orderBookID]
	out := make([]bool, len(dates))
	if set == nil {
		return out
	}
	for i, d := range dates {
		_, out[i] = set[util.DateToInt(d)]
	}
	return out
}
