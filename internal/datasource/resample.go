package datasource

import (
	"time"

	"kbars/internal/domain"
	"kbars/internal/util"
)

// weekKey buckets a date into its Friday-ended trading week: the key is the
// Friday on or after the date.
func weekKey(date int64) int64 {
	t := util.IntToDate(date)
	offset := (int(time.Friday) - int(t.Weekday()) + 7) % 7
	return util.DateToInt(t.AddDate(0, 0, offset))
}

// monthKey buckets a date into its calendar month.
func monthKey(date int64) int64 {
	return date / 100
}

// coreBar strips the futures extension columns, which have no weekly or
// monthly aggregation rule.
func coreBar(b domain.DayBar) domain.DayBar {
	return domain.DayBar{
		Date:          b.Date,
		Open:          b.Open,
		High:          b.High,
		Low:           b.Low,
		Close:         b.Close,
		Volume:        b.Volume,
		TotalTurnover: b.TotalTurnover,
	}
}

// resample aggregates an ascending daily series into weekly or monthly bars.
// Within a bucket: open is the first bar's, close and date are the last
// bar's, high and low are the extremes, volume and turnover are summed.
// Buckets with no bars are absent from the output, so the result stays
// ascending with no synthetic records.
func resample(bars []domain.DayBar, freq domain.Frequency) []domain.DayBar {
	keyOf := weekKey
	if freq == domain.FreqMonthly {
		keyOf = monthKey
	}

	out := make([]domain.DayBar, 0, len(bars)/4+1)
	for i := 0; i < len(bars); {
		key := keyOf(bars[i].Date)
		j := i + 1
		for j < len(bars) && keyOf(bars[j].Date) == key {
			j++
		}

		agg := coreBar(bars[i])
		for _, b := range bars[i+1 : j] {
			if b.High > agg.High {
				agg.High = b.High
			}
			if b.Low < agg.Low {
				agg.Low = b.Low
			}
			agg.Volume += b.Volume
			agg.TotalTurnover += b.TotalTurnover
		}
		last := bars[j-1]
		agg.Date = last.Date
		agg.Close = last.Close
		out = append(out, agg)

		i = j
	}
	return out
}
