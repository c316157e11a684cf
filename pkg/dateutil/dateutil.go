package dateutil

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date used for transactions.
const DateLayout = "2006-01-02"

var isoPrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

// fallbackLayouts are tried in order once the ISO prefix check fails.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// NormalizeDate converts a user or storage supplied date into YYYY-MM-DD.
// A leading ISO date is taken as-is (time part and offset are ignored);
// anything else is parsed with the fallback layouts and converted to UTC.
func NormalizeDate(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", false
	}
	if m := isoPrefix.FindStringSubmatch(trimmed); m != nil {
		if _, err := time.Parse(DateLayout, m[1]); err != nil {
			return "", false
		}
		return m[1], true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC().Format(DateLayout), true
		}
	}
	return "", false
}

// FromTime formats a time as a transaction date in UTC.
func FromTime(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Year returns the calendar year of a normalized date.
func Year(date string) (int, bool) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, false
	}
	return t.Year(), true
}
