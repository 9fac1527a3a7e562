package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// ---------------------------------------------------------------------------
// Bundle layout
// ---------------------------------------------------------------------------

// File names inside a bundle directory.
const (
	stocksFile            = "stocks.parquet"
	indexesFile           = "indexes.parquet"
	futuresFile           = "futures.parquet"
	fundsFile             = "funds.parquet"
	instrumentsFile       = "instruments.db"
	adjustedDividendsFile = "adjusted_dividends.parquet"
	originalDividendsFile = "original_dividends.parquet"
	tradingDatesFile      = "trading_dates.parquet"
	yieldCurveFile        = "yield_curve.parquet"
	suspendedDaysFile     = "suspended_days.parquet"
	stStockDaysFile       = "st_stock_days.parquet"
)

// Bundle is one opened bundle directory: the four day-bar tables plus the
// instrument and reference stores. The day-bar tables, instruments, and the
// trading calendar are required; the remaining files may be absent and open
// as empty stores.
type Bundle struct {
	Stocks  *DayBarStore
	Indexes *DayBarStore
	Futures *DayBarStore
	Funds   *DayBarStore

	Instruments       *InstrumentStore
	Dividends         *DividendStore
	OriginalDividends *DividendStore
	TradingDates      *TradingDatesStore
	YieldCurve        *YieldCurveStore
	SuspendedDays     *DateSetStore
	STStockDays       *DateSetStore
}

// OpenBundle opens every store in dir, loading files concurrently.
func OpenBundle(ctx context.Context, dir string) (*Bundle, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("bundle directory: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &Bundle{}
	g, _ := errgroup.WithContext(ctx)

	openBars := func(dst **DayBarStore, name string) {
		g.Go(func() error {
			var err error
			*dst, err = OpenDayBarStore(filepath.Join(dir, name))
			return err
		})
	}
	openBars(&b.Stocks, stocksFile)
	openBars(&b.Indexes, indexesFile)
	openBars(&b.Futures, futuresFile)
	openBars(&b.Funds, fundsFile)

	g.Go(func() error {
		var err error
		b.Instruments, err = OpenInstrumentStore(filepath.Join(dir, instrumentsFile))
		return err
	})
	g.Go(func() error {
		var err error
		b.Dividends, err = OpenDividendStore(filepath.Join(dir, adjustedDividendsFile))
		return err
	})
	g.Go(func() error {
		var err error
		b.OriginalDividends, err = OpenDividendStore(filepath.Join(dir, originalDividendsFile))
		return err
	})
	g.Go(func() error {
		var err error
		b.TradingDates, err = OpenTradingDatesStore(filepath.Join(dir, tradingDatesFile))
		return err
	})
	g.Go(func() error {
		var err error
		b.YieldCurve, err = OpenYieldCurveStore(filepath.Join(dir, yieldCurveFile))
		return err
	})
	g.Go(func() error {
		var err error
		b.SuspendedDays, err = OpenDateSetStore(filepath.Join(dir, suspendedDaysFile))
		return err
	})
	g.Go(func() error {
		var err error
		b.STStockDays, err = OpenDateSetStore(filepath.Join(dir, stStockDaysFile))
		return err
	})

	if err := g.Wait(); err != nil {
		if b.Instruments != nil {
			b.Instruments.Close()
		}
		return nil, fmt.Errorf("opening bundle %s: %w", dir, err)
	}

	slog.Info("bundle opened",
		"dir", dir,
		"instruments", len(b.Instruments.AllInstruments()),
		"stocks", b.Stocks.Len(),
		"indexes", b.Indexes.Len(),
		"futures", b.Futures.Len(),
		"funds", b.Funds.Len(),
		"tradingDates", len(b.TradingDates.TradingCalendar()),
	)
	return b, nil
}

// Close releases the bundle's database handle.
func (b *Bundle) Close() error {
	return b.Instruments.Close()
}
