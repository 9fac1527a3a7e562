package datasource

import (
	"testing"

	"kbars/internal/domain"
)

func searchFixture() []domain.DayBar {
	return []domain.DayBar{
		{Date: 20240102, Close: 1},
		{Date: 20240103, Close: 2},
		{Date: 20240105, Close: 3},
		{Date: 20240108, Close: 4},
	}
}

func TestUpperBound(t *testing.T) {
	bars := searchFixture()
	cases := []struct {
		key  int64
		want int
	}{
		{20240101, 0}, // before all bars
		{20240102, 1}, // exact first
		{20240104, 2}, // between bars
		{20240105, 3},
		{20240108, 4}, // exact last
		{20240110, 4}, // after all bars
	}
	for _, c := range cases {
		if got := upperBound(bars, c.key); got != c.want {
			t.Errorf("upperBound(%d) = %d, want %d", c.key, got, c.want)
		}
	}
	if got := upperBound(nil, 20240102); got != 0 {
		t.Errorf("upperBound on empty series = %d, want 0", got)
	}
}

func TestLowerBound(t *testing.T) {
	bars := searchFixture()
	cases := []struct {
		key  int64
		want int
	}{
		{20240101, 0},
		{20240102, 0}, // exact key is not passed
		{20240104, 2},
		{20240108, 3},
		{20240110, 4},
	}
	for _, c := range cases {
		if got := lowerBound(bars, c.key); got != c.want {
			t.Errorf("lowerBound(%d) = %d, want %d", c.key, got, c.want)
		}
	}
}

func TestFindExact(t *testing.T) {
	bars := searchFixture()

	bar, ok := findExact(bars, 20240105)
	if !ok {
		t.Fatal("findExact missed an existing date")
	}
	if bar.Date != 20240105 || bar.Close != 3 {
		t.Errorf("findExact returned wrong bar: %+v", bar)
	}

	for _, key := range []int64{20240101, 20240104, 20240109} {
		if _, ok := findExact(bars, key); ok {
			t.Errorf("findExact(%d) found a bar for a missing date", key)
		}
	}
	if _, ok := findExact(nil, 20240102); ok {
		t.Error("findExact on empty series returned ok")
	}
}
