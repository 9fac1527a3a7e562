package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"kbars/internal/datasource"
	"kbars/internal/domain"
)

// tradingDaysPerYear annualizes daily return statistics.
const tradingDaysPerYear = 252

// BarSource is the slice of the data engine the backtester reads.
type BarSource interface {
	Instrument(orderBookID string) (domain.Instrument, bool)
	GetBar(inst domain.Instrument, date time.Time, freq domain.Frequency) (domain.DayBar, bool, error)
	TradingCalendar() []time.Time
	GetRiskFreeRate(start, end time.Time) float64
}

// Compile-time interface check.
var _ BarSource = (*datasource.DataSource)(nil)

// BacktestResult holds the summary metrics produced by a backtest run.
type BacktestResult struct {
	TotalReturn  float64 `json:"total_return"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
}

// Backtester replays historical daily bars through a strategy and computes
// performance metrics.
type Backtester struct {
	source   BarSource
	registry *Registry
	logger   *slog.Logger
}

// NewBacktester creates a Backtester that reads bars from the given source
// and looks up strategies in the provided registry.
func NewBacktester(source BarSource, registry *Registry, logger *slog.Logger) *Backtester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backtester{
		source:   source,
		registry: registry,
		logger:   logger,
	}
}

// Run executes a backtest for the named strategy over the specified
// instruments and date range, starting with initialCapital split evenly
// across the instruments. Signals fill at the close of the bar that
// produced them; positions still open at the end are marked closed at the
// last seen close.
func (bt *Backtester) Run(
	ctx context.Context,
	strategyName string,
	orderBookIDs []string,
	start, end time.Time,
	initialCapital float64,
) (*BacktestResult, error) {
	strat, ok := bt.registry.Get(strategyName)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", strategyName)
	}
	if len(orderBookIDs) == 0 {
		return nil, errors.New("no instruments to backtest")
	}
	if initialCapital <= 0 {
		return nil, errors.New("initial capital must be positive")
	}

	instruments := make([]domain.Instrument, 0, len(orderBookIDs))
	for _, id := range orderBookIDs {
		inst, ok := bt.source.Instrument(id)
		if !ok {
			return nil, fmt.Errorf("unknown instrument %q", id)
		}
		instruments = append(instruments, inst)
	}

	if err := strat.Init(ctx); err != nil {
		return nil, fmt.Errorf("init strategy %s: %w", strategyName, err)
	}

	allocation := initialCapital / float64(len(instruments))
	cash := make(map[string]float64, len(instruments))
	shares := make(map[string]float64, len(instruments))
	entry := make(map[string]float64, len(instruments))
	lastClose := make(map[string]float64, len(instruments))
	for _, inst := range instruments {
		cash[inst.OrderBookID] = allocation
	}

	var equity []float64
	var trades []float64

	for _, day := range bt.source.TradingCalendar() {
		if day.Before(start) {
			continue
		}
		if day.After(end) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, inst := range instruments {
			id := inst.OrderBookID
			bar, ok, err := bt.source.GetBar(inst, day, domain.FreqDaily)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			lastClose[id] = bar.Close

			signals, err := strat.OnBar(ctx, id, bar)
			if err != nil {
				return nil, fmt.Errorf("strategy %s on %d: %w", strategyName, bar.Date, err)
			}
			for _, sig := range signals {
				switch sig.Side {
				case SideBuy:
					if shares[id] == 0 && cash[id] > 0 && bar.Close > 0 {
						shares[id] = cash[id] / bar.Close
						entry[id] = bar.Close
						cash[id] = 0
					}
				case SideSell:
					if shares[id] > 0 {
						proceeds := shares[id] * bar.Close
						trades = append(trades, proceeds-shares[id]*entry[id])
						cash[id] = proceeds
						shares[id] = 0
					}
				}
			}
		}

		marked := 0.0
		for _, inst := range instruments {
			id := inst.OrderBookID
			marked += cash[id] + shares[id]*lastClose[id]
		}
		equity = append(equity, marked)
	}

	for _, inst := range instruments {
		id := inst.OrderBookID
		if shares[id] > 0 {
			proceeds := shares[id] * lastClose[id]
			trades = append(trades, proceeds-shares[id]*entry[id])
			cash[id] = proceeds
			shares[id] = 0
		}
	}

	result := &BacktestResult{TotalTrades: len(trades)}
	if len(equity) == 0 {
		return result, nil
	}

	final := equity[len(equity)-1]
	result.TotalReturn = final/initialCapital - 1

	returns := make([]float64, 0, len(equity))
	prev := initialCapital
	for _, eq := range equity {
		if prev > 0 {
			returns = append(returns, eq/prev-1)
		}
		prev = eq
	}
	riskFree := bt.source.GetRiskFreeRate(start, end)
	if math.IsNaN(riskFree) {
		riskFree = 0
	}
	result.SharpeRatio = sharpeRatio(returns, riskFree)
	result.MaxDrawdown = maxDrawdown(equity, initialCapital)

	wins := 0
	grossProfit, grossLoss := 0.0, 0.0
	for _, profit := range trades {
		if profit > 0 {
			wins++
			grossProfit += profit
		} else {
			grossLoss -= profit
		}
	}
	if len(trades) > 0 {
		result.WinRate = float64(wins) / float64(len(trades))
	}
	if grossLoss > 0 {
		result.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		result.ProfitFactor = math.Inf(1)
	}

	bt.logger.Info("backtest finished",
		"strategy", strategyName,
		"instruments", len(instruments),
		"days", len(equity),
		"trades", result.TotalTrades,
		"totalReturn", result.TotalReturn,
	)
	return result, nil
}

// sharpeRatio annualizes the mean daily excess return over its volatility.
// Zero-volatility curves score zero.
func sharpeRatio(returns []float64, annualRiskFree float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	excess := mean - annualRiskFree/tradingDaysPerYear
	return excess / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown is the largest peak-to-trough equity loss, as a fraction of
// the peak.
func maxDrawdown(equity []float64, initial float64) float64 {
	peak := initial
	worst := 0.0
	for _, eq := range equity {
		if eq > peak {
			peak = eq
		}
		if peak > 0 {
			if dd := (peak - eq) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
