package util

import (
	"strconv"
	"strings"
	"time"
)

// DateLayouts are the day-resolution formats accepted in bar files and
// request parameters, tried in order.
var DateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"Jan 02, 2006",
	time.RFC3339,
}

// ParseDate tries every layout in DateLayouts and then unix seconds. The
// result is truncated to midnight UTC. Returns (t, true) if any worked.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return Day(time.Unix(ts, 0)), true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// Day drops the clock part of t and moves it to UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
