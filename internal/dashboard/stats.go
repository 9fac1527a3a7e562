// Package dashboard provides the aggregation logic behind the kbars
// terminal views: per-instrument window statistics, liquidity tiers, and
// sort orders. Rendering stays in the clients; everything here is pure.
package dashboard

import (
	"math"
	"sort"

	"kbars/internal/domain"
)

// InstrumentStats holds aggregated statistics for one instrument over a
// window of daily bars.
type InstrumentStats struct {
	OrderBookID string
	Symbol      string
	Bars        int
	Open        float64 // first bar open
	High        float64
	Low         float64
	Close       float64 // last bar close
	ChangePct   float64 // close versus window open
	MaxGain     float64 // best buy-low-sell-later return inside the window
	MaxLoss     float64 // worst buy-high-sell-later loss inside the window
	Volume      float64
	Turnover    float64
}

// InstrumentSeries pairs an instrument with its window of bars.
type InstrumentSeries struct {
	Instrument domain.Instrument
	Bars       []domain.DayBar
}

// TierGroup holds sorted stats for a single liquidity tier.
type TierGroup struct {
	Name  string
	Count int
	Stats []*InstrumentStats
}

// Snapshot holds all computed data for one as-of window.
type Snapshot struct {
	Label string
	Bars  int         // total bars aggregated
	Tiers []TierGroup // ACTIVE, MODERATE, SPORADIC (only non-empty)
}

// AggregateBars computes window statistics from an ascending bar series.
// The closes are walked in order to compute the temporal max gain and max
// loss. Returns nil for an empty window.
func AggregateBars(inst domain.Instrument, bars []domain.DayBar) *InstrumentStats {
	if len(bars) == 0 {
		return nil
	}

	s := &InstrumentStats{
		OrderBookID: inst.OrderBookID,
		Symbol:      inst.Symbol,
		Bars:        len(bars),
		Open:        bars[0].Open,
		Low:         math.MaxFloat64,
	}
	minClose := math.MaxFloat64
	maxClose := 0.0

	for _, b := range bars {
		if b.High > s.High {
			s.High = b.High
		}
		if b.Low < s.Low {
			s.Low = b.Low
		}
		s.Close = b.Close
		s.Volume += b.Volume
		s.Turnover += b.TotalTurnover

		// Max gain: buy at the lowest close seen so far, sell now.
		if b.Close < minClose {
			minClose = b.Close
		}
		if minClose > 0 {
			if g := (b.Close - minClose) / minClose; g > s.MaxGain {
				s.MaxGain = g
			}
		}
		// Max loss: buy at the highest close seen so far, sell now.
		if b.Close > maxClose {
			maxClose = b.Close
		}
		if b.Close > 0 {
			if l := (maxClose - b.Close) / b.Close; l > s.MaxLoss {
				s.MaxLoss = l
			}
		}
	}
	if s.Open > 0 {
		s.ChangePct = (s.Close - s.Open) / s.Open
	}
	return s
}

// SortMode defines the sort order within each tier.
const (
	SortTurnover  = 0 // by window turnover (default)
	SortGain      = 1 // by max gain
	SortLoss      = 2 // by max loss
	SortChange    = 3 // by window change
	SortModeCount = 4
)

// SortModeLabel returns a short label for the given sort mode.
func SortModeLabel(mode int) string {
	switch mode {
	case SortTurnover:
		return "TO"
	case SortGain:
		return "GAIN"
	case SortLoss:
		return "LOSS"
	case SortChange:
		return "CHG"
	default:
		return "?"
	}
}

// sortStats sorts a slice of InstrumentStats by the given sort mode,
// breaking ties by turnover and then order book ID.
func sortStats(ss []*InstrumentStats, mode int) {
	sort.Slice(ss, func(i, j int) bool {
		si, sj := ss[i], ss[j]
		switch mode {
		case SortGain:
			if si.MaxGain != sj.MaxGain {
				return si.MaxGain > sj.MaxGain
			}
		case SortLoss:
			if si.MaxLoss != sj.MaxLoss {
				return si.MaxLoss > sj.MaxLoss
			}
		case SortChange:
			if si.ChangePct != sj.ChangePct {
				return si.ChangePct > sj.ChangePct
			}
		}
		if si.Turnover != sj.Turnover {
			return si.Turnover > sj.Turnover
		}
		return si.OrderBookID < sj.OrderBookID
	})
}

// ResortSnapshot re-sorts the stats within each tier group without
// recomputing aggregation. Used when toggling sort mode.
func ResortSnapshot(s *Snapshot, sortMode int) {
	for i := range s.Tiers {
		sortStats(s.Tiers[i].Stats, sortMode)
	}
}

// ComputeSnapshot aggregates every series, groups instruments into
// liquidity tiers by average daily turnover, and sorts within each tier.
// Instruments without bars in the window are dropped.
func ComputeSnapshot(label string, series []InstrumentSeries, sortMode int) Snapshot {
	tiers := make(map[string][]*InstrumentStats)
	total := 0
	for _, e := range series {
		s := AggregateBars(e.Instrument, e.Bars)
		if s == nil {
			continue
		}
		total += s.Bars
		tier := TierFor(s.Turnover / float64(s.Bars))
		tiers[tier] = append(tiers[tier], s)
	}

	var groups []TierGroup
	for _, name := range TierNames {
		ss := tiers[name]
		if len(ss) == 0 {
			continue
		}
		sortStats(ss, sortMode)
		groups = append(groups, TierGroup{Name: name, Count: len(ss), Stats: ss})
	}

	return Snapshot{Label: label, Bars: total, Tiers: groups}
}
