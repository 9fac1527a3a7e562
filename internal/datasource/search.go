package datasource

import (
	"sort"

	"kbars/internal/domain"
)

// upperBound returns the first index whose date exceeds key. Slicing at the
// result keeps every bar dated at or before key.
func upperBound(bars []domain.DayBar, key int64) int {
	return sort.Search(len(bars), func(i int) bool { return bars[i].Date > key })
}

// lowerBound returns the first index whose date is at least key.
func lowerBound(bars []domain.DayBar, key int64) int {
	return sort.Search(len(bars), func(i int) bool { return bars[i].Date >= key })
}

// findExact returns the bar dated exactly key, if present.
func findExact(bars []domain.DayBar, key int64) (domain.DayBar, bool) {
	i := lowerBound(bars, key)
	if i == len(bars) || bars[i].Date != key {
		return domain.DayBar{}, false
	}
	return bars[i], true
}
