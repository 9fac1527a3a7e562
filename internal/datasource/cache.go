package datasource

import (
	"sync"

	"kbars/internal/domain"
	"kbars/internal/store"
)

// cacheEntry memoizes one series lookup, including absence. The once guard
// makes the table read happen at most one time per instrument even under
// concurrent first access.
type cacheEntry struct {
	once sync.Once
	bars []domain.DayBar
	ok   bool
}

// barCache holds the per-instrument series memos: the full series as read
// from the bar table, and a variant with zero-volume bars removed. Entries
// live until the cache is cleared; the instrument universe bounds its size.
type barCache struct {
	mu       sync.Mutex
	full     map[string]*cacheEntry
	filtered map[string]*cacheEntry
}

func newBarCache() *barCache {
	return &barCache{
		full:     make(map[string]*cacheEntry),
		filtered: make(map[string]*cacheEntry),
	}
}

func (c *barCache) entry(filtered bool, orderBookID string) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.full
	if filtered {
		m = c.filtered
	}
	e, ok := m[orderBookID]
	if !ok {
		e = &cacheEntry{}
		m[orderBookID] = e
	}
	return e
}

// fullSeries returns the instrument's complete ascending series, reading
// the table at most once. ok is false when the table has no data.
func (c *barCache) fullSeries(table store.DayBarTable, orderBookID string) ([]domain.DayBar, bool) {
	e := c.entry(false, orderBookID)
	e.once.Do(func() {
		e.bars, e.ok = table.GetBars(orderBookID)
	})
	return e.bars, e.ok
}

// filteredSeries is fullSeries with zero-volume bars removed, memoized
// separately. Absence propagates from the full series.
func (c *barCache) filteredSeries(table store.DayBarTable, orderBookID string) ([]domain.DayBar, bool) {
	e := c.entry(true, orderBookID)
	e.once.Do(func() {
		bars, ok := c.fullSeries(table, orderBookID)
		if !ok {
			return
		}
		out := make([]domain.DayBar, 0, len(bars))
		for _, b := range bars {
			if b.Volume > 0 {
				out = append(out, b)
			}
		}
		e.bars, e.ok = out, true
	})
	return e.bars, e.ok
}

// clear drops every memoized series. In-flight lookups keep their entries;
// later lookups recompute.
func (c *barCache) clear() {
	c.mu.Lock()
	c.full = make(map[string]*cacheEntry)
	c.filtered = make(map[string]*cacheEntry)
	c.mu.Unlock()
}
