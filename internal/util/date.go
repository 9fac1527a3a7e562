package util

import "time"

// Bar series and reference stores key records by YYYYMMDD integers
// (20240105 for 2024-01-05). The helpers here are the single place that
// encoding is produced or consumed.

const dateLayout = "2006-01-02"

// DateToInt encodes t's calendar date as a YYYYMMDD integer key.
func DateToInt(t time.Time) int64 {
	y, m, d := t.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

// IntToDate decodes a YYYYMMDD integer key to midnight UTC.
func IntToDate(v int64) time.Time {
	return time.Date(int(v/10000), time.Month(v/100%100), int(v%100), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "2006-01-02" date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// FormatDate renders t as "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
