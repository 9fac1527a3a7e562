package store

import (
	"fmt"
	"math"
	"sort"
	"time"

	"kbars/internal/domain"
	"kbars/internal/util"
)

// Compile-time interface check.
var _ YieldCurveTable = (*YieldCurveStore)(nil)

// yieldCurveRow is the Parquet schema for the yield curve file: one row per
// (date, tenor) observation.
type yieldCurveRow struct {
	Date  int64   `parquet:"date"` // YYYYMMDD
	Tenor string  `parquet:"tenor,dict"`
	Rate  float64 `parquet:"rate"`
}

// yieldTenors maps query spans to curve tenors: the selected tenor is the
// one with the largest day threshold not exceeding the span.
var yieldTenors = []struct {
	days  int
	tenor string
}{
	{0, "0S"}, {30, "1M"}, {60, "2M"}, {91, "3M"}, {182, "6M"}, {273, "9M"},
	{365, "1Y"}, {730, "2Y"}, {1095, "3Y"}, {1460, "4Y"}, {1825, "5Y"},
	{2190, "6Y"}, {2555, "7Y"}, {2920, "8Y"}, {3285, "9Y"}, {3650, "10Y"},
	{5475, "15Y"}, {7300, "20Y"}, {10950, "30Y"}, {14600, "40Y"}, {18250, "50Y"},
}

// YieldCurveStore holds treasury yield curve observations.
type YieldCurveStore struct {
	points  []domain.YieldCurvePoint            // ascending by date
	byTenor map[string][]domain.YieldCurvePoint // ascending by date per tenor
}

// OpenYieldCurveStore reads the yield curve Parquet file into memory. A
// missing file yields an empty store.
func OpenYieldCurveStore(path string) (*YieldCurveStore, error) {
	rows, err := readOptionalParquetFile[yieldCurveRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading yield curve %s: %w", path, err)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Tenor < rows[j].Tenor
	})

	points := make([]domain.YieldCurvePoint, len(rows))
	byTenor := make(map[string][]domain.YieldCurvePoint)
	for i, r := range rows {
		p := domain.YieldCurvePoint{Date: r.Date, Tenor: r.Tenor, Rate: r.Rate}
		points[i] = p
		byTenor[r.Tenor] = append(byTenor[r.Tenor], p)
	}

	return &YieldCurveStore{points: points, byTenor: byTenor}, nil
}

// GetYieldCurve returns curve points dated within [start, end], restricted
// to one tenor when tenor is non-empty.
func (s *YieldCurveStore) GetYieldCurve(start, end time.Time, tenor string) []domain.YieldCurvePoint {
	points := s.points
	if tenor != "" {
		points = s.byTenor[tenor]
	}

	lo, hi := util.DateToInt(start), util.DateToInt(end)
	i := sort.Search(len(points), func(i int) bool { return points[i].Date >= lo })
	j := sort.Search(len(points), func(i int) bool { return points[i].Date > hi })
	if i >= j {
		return nil
	}
	return points[i:j]
}

// GetRiskFreeRate returns the annualized risk-free rate for the span
// [start, end]: the rate of the span-matched tenor on the most recent curve
// date at or before start. NaN when no curve row qualifies.
func (s *YieldCurveStore) GetRiskFreeRate(start, end time.Time) float64 {
	points := s.byTenor[tenorForSpan(start, end)]
	key := util.DateToInt(start)
	i := sort.Search(len(points), func(i int) bool { return points[i].Date > key })
	if i == 0 {
		return math.NaN()
	}
	return points[i-1].Rate
}

// tenorForSpan picks the curve tenor matching the [start, end] span.
func tenorForSpan(start, end time.Time) string {
	days := int(end.Sub(start).Hours() / 24)
	tenor := yieldTenors[0].tenor
	for _, t := range yieldTenors {
		if days < t.days {
			break
		}
		tenor = t.tenor
	}
	return tenor
}
