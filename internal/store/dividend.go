package store

import (
	"fmt"
	"sort"

	"kbars/internal/domain"
)

// Compile-time interface check.
var _ DividendTable = (*DividendStore)(nil)

// dividendRow is the Parquet schema for dividend files.
type dividendRow struct {
	OrderBookID      string  `parquet:"order_book_id,dict"`
	AnnouncementDate int64   `parquet:"announcement_date"`
	BookClosureDate  int64   `parquet:"book_closure_date"`
	ExDividendDate   int64   `parquet:"ex_dividend_date"`
	PayableDate      int64   `parquet:"payable_date"`
	CashBeforeTax    float64 `parquet:"dividend_cash_before_tax"`
	RoundLot         float64 `parquet:"round_lot"`
}

// DividendStore holds cash dividend events grouped by order book ID. The
// bundle carries two instances: adjusted and original dividends.
type DividendStore struct {
	divs map[string][]domain.Dividend
}

// OpenDividendStore reads a dividend Parquet file into memory. A missing
// file yields an empty store.
func OpenDividendStore(path string) (*DividendStore, error) {
	rows, err := readOptionalParquetFile[dividendRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading dividends %s: %w", path, err)
	}

	divs := make(map[string][]domain.Dividend)
	for _, r := range rows {
		divs[r.OrderBookID] = append(divs[r.OrderBookID], domain.Dividend{
			OrderBookID:      r.OrderBookID,
			AnnouncementDate: r.AnnouncementDate,
			BookClosureDate:  r.BookClosureDate,
			ExDividendDate:   r.ExDividendDate,
			PayableDate:      r.PayableDate,
			CashBeforeTax:    r.CashBeforeTax,
			RoundLot:         r.RoundLot,
		})
	}
	for id := range divs {
		events := divs[id]
		sort.Slice(events, func(i, j int) bool {
			return events[i].AnnouncementDate < events[j].AnnouncementDate
		})
	}

	return &DividendStore{divs: divs}, nil
}

// GetDividends returns an instrument's dividend events in announcement order.
func (s *DividendStore) GetDividends(orderBookID string) []domain.Dividend {
	return s.divs[orderBookID]
}
