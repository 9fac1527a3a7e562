package store

import (
	"database/sql"
	"fmt"
	"os"
	"sort"

	"kbars/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ InstrumentTable = (*InstrumentStore)(nil)

// instrumentSchema is the bundle's instrument table layout. Bundles are
// built elsewhere; the schema lives here so fixtures and the reader agree.
const instrumentSchema = `
CREATE TABLE IF NOT EXISTS instruments (
	order_book_id     TEXT PRIMARY KEY,
	symbol            TEXT NOT NULL,
	type              TEXT NOT NULL,
	exchange          TEXT NOT NULL,
	round_lot         REAL NOT NULL,
	listed_date       INTEGER NOT NULL,
	de_listed_date    INTEGER NOT NULL,
	margin_rate       REAL NOT NULL DEFAULT 0,
	underlying_symbol TEXT NOT NULL DEFAULT ''
)`

// InstrumentStore serves instrument metadata from the bundle's SQLite file.
// All rows are loaded at open; queries never touch the database afterwards.
type InstrumentStore struct {
	db          *sql.DB
	instruments []domain.Instrument
}

// OpenInstrumentStore opens the SQLite file at dbPath and loads every
// instrument row.
func OpenInstrumentStore(dbPath string) (*InstrumentStore, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("instrument store %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	instruments, err := loadInstruments(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading instruments from %s: %w", dbPath, err)
	}

	return &InstrumentStore{db: db, instruments: instruments}, nil
}

// Close closes the underlying database connection.
func (s *InstrumentStore) Close() error {
	return s.db.Close()
}

// AllInstruments returns every instrument, sorted by order book ID.
func (s *InstrumentStore) AllInstruments() []domain.Instrument {
	return s.instruments
}

func loadInstruments(db *sql.DB) ([]domain.Instrument, error) {
	rows, err := db.Query(`
		SELECT order_book_id, symbol, type, exchange, round_lot,
		       listed_date, de_listed_date, margin_rate, underlying_symbol
		FROM instruments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instruments []domain.Instrument
	for rows.Next() {
		var inst domain.Instrument
		if err := rows.Scan(
			&inst.OrderBookID, &inst.Symbol, &inst.Type, &inst.Exchange,
			&inst.RoundLot, &inst.ListedDate, &inst.DeListedDate,
			&inst.MarginRate, &inst.UnderlyingSymbol,
		); err != nil {
			return nil, err
		}
		instruments = append(instruments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i].OrderBookID < instruments[j].OrderBookID
	})
	return instruments, nil
}
