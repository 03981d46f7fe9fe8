package narrative

import (
	"strings"

	"github.com/araddon/dateparse"
)

// DayKey returns the calendar day a date_published value belongs to.
//
// Server timestamps ("2024-01-01 10:00:00") take the fast path. Anything
// else is normalized with dateparse when it can be parsed. Text dateparse
// cannot make sense of falls back to whatever precedes the first space, so
// a malformed value still lands in a bucket of its own.
func DayKey(ts string) string {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return ""
	}
	if isDayPrefix(ts) {
		return ts[:10]
	}
	if t, err := dateparse.ParseAny(ts); err == nil {
		return t.Format("2006-01-02")
	}
	day, _, _ := strings.Cut(ts, " ")
	return day
}

// isDayPrefix matches "YYYY-MM-DD" followed by end of string, ' ' or 'T'.
func isDayPrefix(s string) bool {
	if len(s) < 10 {
		return false
	}
	for i := 0; i < 10; i++ {
		c := s[i]
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return len(s) == 10 || s[10] == ' ' || s[10] == 'T'
}
