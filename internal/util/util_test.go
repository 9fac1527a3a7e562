package util

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDateToInt(t *testing.T) {
	cases := []struct {
		t    time.Time
		want int64
	}{
		{time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 20240105},
		{time.Date(2016, 12, 30, 15, 4, 5, 0, time.UTC), 20161230},
		{time.Date(1999, 7, 1, 0, 0, 0, 0, time.UTC), 19990701},
	}
	for _, c := range cases {
		if got := DateToInt(c.t); got != c.want {
			t.Errorf("DateToInt(%v) = %d, want %d", c.t, got, c.want)
		}
	}
}

func TestIntToDateRoundTrip(t *testing.T) {
	for _, key := range []int64{20240105, 20161230, 19990701, 20000229} {
		if got := DateToInt(IntToDate(key)); got != key {
			t.Errorf("DateToInt(IntToDate(%d)) = %d", key, got)
		}
	}

	d := IntToDate(20240212)
	if d.Year() != 2024 || d.Month() != time.February || d.Day() != 12 {
		t.Errorf("IntToDate(20240212) = %v", d)
	}
	if d.Hour() != 0 || d.Location() != time.UTC {
		t.Errorf("IntToDate should return midnight UTC, got %v", d)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-08")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if DateToInt(d) != 20240308 {
		t.Errorf("ParseDate(\"2024-03-08\") = %v", d)
	}
	if got := FormatDate(d); got != "2024-03-08" {
		t.Errorf("FormatDate = %q, want %q", got, "2024-03-08")
	}

	for _, s := range []string{"", "20240308", "2024/03/08", "2024-13-01"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) succeeded, want error", s)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "warn", "json")

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info record emitted at warn level: %s", buf.String())
	}

	log.Warn("visible", "key", "value")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if rec["msg"] != "visible" || rec["key"] != "value" {
		t.Errorf("unexpected log record: %v", rec)
	}
}

func TestNewLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "info", "text")

	log.Info("hello", "n", 1)
	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "n=1") {
		t.Errorf("unexpected text output: %q", out)
	}
}
