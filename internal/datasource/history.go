package datasource

import (
	"fmt"
	"time"

	"kbars/internal/domain"
	"kbars/internal/util"
)

// HistoryOptions adjust a history window query.
type HistoryOptions struct {
	// Fields restricts the query to a subset of the bar schema. Empty means
	// the full schema. Validation failures surface as ErrInvalidField.
	Fields []domain.Field

	// SkipSuspended drops zero-volume days from stock series before
	// windowing. It has no effect on other asset classes.
	SkipSuspended bool

	// IncludeNow keeps the bar dated exactly at the as-of date inside the
	// window; when false the window ends strictly before it.
	IncludeNow bool
}

// HistoryBars returns up to barCount bars at the requested frequency ending
// at asOf. The window never reaches past asOf and is shorter than barCount
// when not enough history exists. A nil series with a nil error means the
// instrument has no data.
//
// The returned slice shares the cached series for daily queries and must
// not be mutated.
func (ds *DataSource) HistoryBars(inst domain.Instrument, barCount int, freq domain.Frequency, asOf time.Time, opts HistoryOptions) ([]domain.DayBar, error) {
	switch freq {
	case domain.FreqDaily, domain.FreqWeekly, domain.FreqMonthly:
	default:
		return nil, fmt.Errorf("history bars %q: %w", freq, ErrUnsupportedFrequency)
	}
	if err := validateFields(inst, freq, opts.Fields); err != nil {
		return nil, err
	}
	table, err := ds.tableFor(inst)
	if err != nil {
		return nil, err
	}

	var bars []domain.DayBar
	var ok bool
	if opts.SkipSuspended && inst.Type == domain.TypeCS {
		bars, ok = ds.cache.filteredSeries(table, inst.OrderBookID)
	} else {
		bars, ok = ds.cache.fullSeries(table, inst.OrderBookID)
	}
	if !ok {
		return nil, nil
	}

	if freq != domain.FreqDaily {
		bars = resample(bars, freq)
	}

	if barCount <= 0 {
		return nil, nil
	}
	key := util.DateToInt(asOf)
	i := lowerBound(bars, key)
	if opts.IncludeNow {
		i = upperBound(bars, key)
	}
	left := i - barCount
	if left < 0 {
		left = 0
	}
	return bars[left:i], nil
}

// GetBar returns the instrument's bar on an exact date. Only the daily
// frequency is supported. ok is false when the date has no bar, which is
// not an error.
func (ds *DataSource) GetBar(inst domain.Instrument, date time.Time, freq domain.Frequency) (domain.DayBar, bool, error) {
	if freq != domain.FreqDaily {
		return domain.DayBar{}, false, fmt.Errorf("get bar %q: %w", freq, ErrUnsupportedFrequency)
	}
	table, err := ds.tableFor(inst)
	if err != nil {
		return domain.DayBar{}, false, err
	}
	bars, ok := ds.cache.fullSeries(table, inst.OrderBookID)
	if !ok {
		return domain.DayBar{}, false, nil
	}
	bar, found := findExact(bars, util.DateToInt(date))
	return bar, found, nil
}

// validateFields checks a requested field set against the schema the query
// will produce: futures daily bars carry the settlement columns, everything
// else the core columns.
func validateFields(inst domain.Instrument, freq domain.Frequency, fields []domain.Field) error {
	if len(fields) == 0 {
		return nil
	}
	schema := domain.DayBarFields()
	if inst.Type == domain.TypeFuture && freq == domain.FreqDaily {
		schema = domain.FutureDayBarFields()
	}
	allowed := make(map[domain.Field]struct{}, len(schema))
	for _, f := range schema {
		allowed[f] = struct{}{}
	}
	for _, f := range fields {
		if _, ok := allowed[f]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidField, f)
		}
	}
	return nil
}
