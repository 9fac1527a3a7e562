package dashboard

import (
	"math"
	"testing"
)

func TestFormatInt(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, c := range cases {
		if got := FormatInt(c.in); got != c.want {
			t.Errorf("FormatInt(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{500, "500"},
		{2500, "2.5K"},
		{3_400_000, "3.4M"},
		{1.25e9, "1.2B"},
	}
	for _, c := range cases {
		if got := FormatAmount(c.in); got != c.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(12.345); got != "12.35" {
		t.Errorf("FormatPrice(12.345) = %q, want 12.35", got)
	}
	if got := FormatPrice(0); got != "-" {
		t.Errorf("FormatPrice(0) = %q, want -", got)
	}
	if got := FormatPrice(math.NaN()); got != "-" {
		t.Errorf("FormatPrice(NaN) = %q, want -", got)
	}
}

func TestFormatChange(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0.012, "+1.2%"},
		{-0.008, "-0.8%"},
		{1.5, "+150%"},
		{0, ""},
	}
	for _, c := range cases {
		if got := FormatChange(c.in); got != c.want {
			t.Errorf("FormatChange(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatBarDate(t *testing.T) {
	if got := FormatBarDate(20240105); got != "2024-01-05" {
		t.Errorf("FormatBarDate(20240105) = %q, want 2024-01-05", got)
	}
	if got := FormatBarDate(19991231); got != "1999-12-31" {
		t.Errorf("FormatBarDate(19991231) = %q, want 1999-12-31", got)
	}
}
