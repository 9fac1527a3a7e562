// Command kbars-cli queries an on-disk bundle directly, without a running
// kbars-server. It covers the common read paths (instruments, bars, the
// trading calendar, dividends) plus a small daily-bar backtest runner.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"kbars/internal/config"
	"kbars/internal/dashboard"
	"kbars/internal/datasource"
	"kbars/internal/domain"
	"kbars/internal/store"
	"kbars/internal/strategy"
	"kbars/internal/strategy/builtins"
	"kbars/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kbars-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version      Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  range        Show the available data range of the bundle\n")
		fmt.Fprintf(os.Stderr, "  instruments  List instruments in the bundle\n")
		fmt.Fprintf(os.Stderr, "  bars         Print historical bars for one instrument\n")
		fmt.Fprintf(os.Stderr, "  calendar     Print the trading calendar\n")
		fmt.Fprintf(os.Stderr, "  dividends    Print dividend records for one instrument\n")
		fmt.Fprintf(os.Stderr, "  backtest     Run a daily-bar backtest\n")
		fmt.Fprintf(os.Stderr, "\nRun 'kbars-cli <command> -h' for command options.\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("kbars-cli %s\n", version)

	case "range":
		runRange(os.Args[2:])

	case "instruments":
		runInstruments(os.Args[2:])

	case "bars":
		runBars(os.Args[2:])

	case "calendar":
		runCalendar(os.Args[2:])

	case "dividends":
		runDividends(os.Args[2:])

	case "backtest":
		runBacktest(os.Args[2:])

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// bundleFlag registers -bundle with the configured directory as its default.
func bundleFlag(fs *flag.FlagSet) *string {
	dir := config.Default().Bundle.Dir
	if cfg, err := config.Load(config.Path()); err == nil {
		dir = cfg.Bundle.Dir
	}
	return fs.String("bundle", dir, "bundle directory")
}

// openSource opens the bundle and wraps it in a data source. Logs go to
// stderr at warn level so command output stays clean.
func openSource(ctx context.Context, dir string) (*datasource.DataSource, func()) {
	logger := util.NewLoggerTo(os.Stderr, "warn", "text")
	util.SetDefault(logger)
	bundle, err := store.OpenBundle(ctx, dir)
	if err != nil {
		log.Fatalf("opening bundle: %v", err)
	}
	return datasource.NewFromBundle(bundle, logger), func() { bundle.Close() }
}

func parseDateFlag(name, value string) time.Time {
	t, err := util.ParseDate(value)
	if err != nil {
		log.Fatalf("parsing -%s: %v", name, err)
	}
	return t
}

// ---------------------------------------------------------------------------
// range
// ---------------------------------------------------------------------------

func runRange(args []string) {
	fs := flag.NewFlagSet("range", flag.ExitOnError)
	bundleDir := bundleFlag(fs)
	freqStr := fs.String("freq", "1d", "bar frequency (1d, 1w, 1M)")
	fs.Parse(args)

	ctx := context.Background()
	source, cleanup := openSource(ctx, *bundleDir)
	defer cleanup()

	freq, err := domain.ParseFrequency(*freqStr)
	if err != nil {
		log.Fatalf("parsing -freq: %v", err)
	}
	start, end, err := source.AvailableDataRange(freq)
	if err != nil {
		log.Fatalf("reading data range: %v", err)
	}
	if start.IsZero() {
		fmt.Println("no bar data in bundle")
		return
	}
	fmt.Printf("%s  %s .. %s\n", freq, util.FormatDate(start), util.FormatDate(end))
}

// ---------------------------------------------------------------------------
// instruments
// ---------------------------------------------------------------------------

func runInstruments(args []string) {
	fs := flag.NewFlagSet("instruments", flag.ExitOnError)
	bundleDir := bundleFlag(fs)
	typeStr := fs.String("type", "", "filter by instrument type (CS, INDX, Future, ETF, LOF)")
	fs.Parse(args)

	ctx := context.Background()
	source, cleanup := openSource(ctx, *bundleDir)
	defer cleanup()

	fmt.Printf("%-16s %-8s %-10s %-12s %-12s %s\n",
		"ORDER_BOOK_ID", "TYPE", "EXCHANGE", "LISTED", "DELISTED", "SYMBOL")
	count := 0
	for _, inst := range source.AllInstruments() {
		if *typeStr != "" && string(inst.Type) != *typeStr {
			continue
		}
		fmt.Printf("%-16s %-8s %-10s %-12s %-12s %s\n",
			inst.OrderBookID, inst.Type, inst.Exchange,
			dashboard.FormatBarDate(inst.ListedDate),
			dashboard.FormatBarDate(inst.DeListedDate),
			inst.Symbol)
		count++
	}
	fmt.Printf("\n%s instruments\n", dashboard.FormatInt(count))
}

// ---------------------------------------------------------------------------
// bars
// ---------------------------------------------------------------------------

func runBars(args []string) {
	fs := flag.NewFlagSet("bars", flag.ExitOnError)
	bundleDir := bundleFlag(fs)
	id := fs.String("id", "", "order book ID (required)")
	count := fs.Int("count", 10, "number of bars")
	freqStr := fs.String("freq", "1d", "bar frequency (1d, 1w, 1M)")
	dateStr := fs.String("date", "", "as-of date YYYY-MM-DD (default: last trading day)")
	keepSusp := fs.Bool("keep-suspended", false, "keep zero-volume days in stock series")
	fs.Parse(args)

	if *id == "" {
		log.Fatalf("-id is required")
	}
	freq, err := domain.ParseFrequency(*freqStr)
	if err != nil {
		log.Fatalf("parsing -freq: %v", err)
	}

	ctx := context.Background()
	source, cleanup := openSource(ctx, *bundleDir)
	defer cleanup()

	inst, ok := source.Instrument(*id)
	if !ok {
		log.Fatalf("unknown instrument %q", *id)
	}

	asOf := time.Now().UTC()
	if *dateStr != "" {
		asOf = parseDateFlag("date", *dateStr)
	} else if cal := source.TradingCalendar(); len(cal) > 0 {
		asOf = cal[len(cal)-1]
	}

	bars, err := source.HistoryBars(inst, *count, freq, asOf, datasource.HistoryOptions{
		SkipSuspended: !*keepSusp,
		IncludeNow:    true,
	})
	if err != nil {
		log.Fatalf("reading bars: %v", err)
	}
	if len(bars) == 0 {
		fmt.Printf("no bars for %s at %s\n", inst.OrderBookID, util.FormatDate(asOf))
		return
	}

	future := inst.Type == domain.TypeFuture && freq == domain.FreqDaily
	fmt.Printf("%s  %s  %d bars\n\n", inst.OrderBookID, freq, len(bars))
	if future {
		fmt.Printf("%-12s %9s %9s %9s %9s %9s %10s %10s\n",
			"DATE", "OPEN", "HIGH", "LOW", "CLOSE", "SETTLE", "VOLUME", "OI")
	} else {
		fmt.Printf("%-12s %9s %9s %9s %9s %10s %10s\n",
			"DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME", "TURNOVER")
	}
	for _, b := range bars {
		if future {
			fmt.Printf("%-12s %9s %9s %9s %9s %9s %10s %10s\n",
				dashboard.FormatBarDate(b.Date),
				dashboard.FormatPrice(b.Open), dashboard.FormatPrice(b.High),
				dashboard.FormatPrice(b.Low), dashboard.FormatPrice(b.Close),
				dashboard.FormatPrice(b.Settlement),
				dashboard.FormatAmount(b.Volume),
				dashboard.FormatAmount(b.OpenInterest))
			continue
		}
		fmt.Printf("%-12s %9s %9s %9s %9s %10s %10s\n",
			dashboard.FormatBarDate(b.Date),
			dashboard.FormatPrice(b.Open), dashboard.FormatPrice(b.High),
			dashboard.FormatPrice(b.Low), dashboard.FormatPrice(b.Close),
			dashboard.FormatAmount(b.Volume),
			dashboard.FormatAmount(b.TotalTurnover))
	}
}

// ---------------------------------------------------------------------------
// calendar
// ---------------------------------------------------------------------------

func runCalendar(args []string) {
	fs := flag.NewFlagSet("calendar", flag.ExitOnError)
	bundleDir := bundleFlag(fs)
	startStr := fs.String("start", "", "start date YYYY-MM-DD")
	endStr := fs.String("end", "", "end date YYYY-MM-DD")
	fs.Parse(args)

	ctx := context.Background()
	source, cleanup := openSource(ctx, *bundleDir)
	defer cleanup()

	var start, end time.Time
	if *startStr != "" {
		start = parseDateFlag("start", *startStr)
	}
	if *endStr != "" {
		end = parseDateFlag("end", *endStr)
	}

	count := 0
	for _, d := range source.TradingCalendar() {
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			continue
		}
		fmt.Println(util.FormatDate(d))
		count++
	}
	fmt.Printf("\n%s trading days\n", dashboard.FormatInt(count))
}

// ---------------------------------------------------------------------------
// dividends
// ---------------------------------------------------------------------------

func runDividends(args []string) {
	fs := flag.NewFlagSet("dividends", flag.ExitOnError)
	bundleDir := bundleFlag(fs)
	id := fs.String("id", "", "order book ID (required)")
	variant := fs.String("variant", "adjusted", "dividend table: adjusted or original")
	fs.Parse(args)

	if *id == "" {
		log.Fatalf("-id is required")
	}
	if *variant != "adjusted" && *variant != "original" {
		log.Fatalf("-variant must be adjusted or original, got %q", *variant)
	}

	ctx := context.Background()
	source, cleanup := openSource(ctx, *bundleDir)
	defer cleanup()

	divs := source.GetDividends(*id, *variant == "adjusted")
	if len(divs) == 0 {
		fmt.Printf("no dividends for %s\n", *id)
		return
	}

	fmt.Printf("%-12s %-12s %-12s %-12s %10s %10s\n",
		"ANNOUNCED", "BOOK_CLOSE", "EX_DATE", "PAYABLE", "CASH", "ROUND_LOT")
	for _, d := range divs {
		fmt.Printf("%-12s %-12s %-12s %-12s %10.4f %10.0f\n",
			dashboard.FormatBarDate(d.AnnouncementDate),
			dashboard.FormatBarDate(d.BookClosureDate),
			dashboard.FormatBarDate(d.ExDividendDate),
			dashboard.FormatBarDate(d.PayableDate),
			d.CashBeforeTax, d.RoundLot)
	}
}

// ---------------------------------------------------------------------------
// backtest
// ---------------------------------------------------------------------------

func runBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	bundleDir := bundleFlag(fs)
	stratName := fs.String("strategy", "sma-cross", "strategy name")
	idList := fs.String("ids", "", "comma-separated order book IDs (required)")
	startStr := fs.String("start", "", "start date YYYY-MM-DD (required)")
	endStr := fs.String("end", "", "end date YYYY-MM-DD (required)")
	capital := fs.Float64("capital", 1_000_000, "initial capital")
	short := fs.Int("short", 5, "short SMA window")
	long := fs.Int("long", 20, "long SMA window")
	fs.Parse(args)

	if *idList == "" || *startStr == "" || *endStr == "" {
		log.Fatalf("-ids, -start and -end are required")
	}
	var ids []string
	for _, part := range strings.Split(*idList, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	start := parseDateFlag("start", *startStr)
	end := parseDateFlag("end", *endStr)

	ctx := context.Background()
	source, cleanup := openSource(ctx, *bundleDir)
	defer cleanup()

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(*short, *long))

	bt := strategy.NewBacktester(source, registry, util.NewLoggerTo(os.Stderr, "warn", "text"))
	result, err := bt.Run(ctx, *stratName, ids, start, end, *capital)
	if err != nil {
		log.Fatalf("running backtest: %v", err)
	}

	profitFactor := "inf"
	if !math.IsInf(result.ProfitFactor, 1) {
		profitFactor = fmt.Sprintf("%.2f", result.ProfitFactor)
	}
	fmt.Printf("Strategy:       %s\n", *stratName)
	fmt.Printf("Instruments:    %d\n", len(ids))
	fmt.Printf("Period:         %s .. %s\n", util.FormatDate(start), util.FormatDate(end))
	fmt.Printf("Total return:   %+.2f%%\n", result.TotalReturn*100)
	fmt.Printf("Sharpe ratio:   %.2f\n", result.SharpeRatio)
	fmt.Printf("Max drawdown:   %.2f%%\n", result.MaxDrawdown*100)
	fmt.Printf("Trades:         %d\n", result.TotalTrades)
	fmt.Printf("Win rate:       %.1f%%\n", result.WinRate*100)
	fmt.Printf("Profit factor:  %s\n", profitFactor)
}
