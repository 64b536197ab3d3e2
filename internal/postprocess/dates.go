package postprocess

import (
	"strings"
	"time"
)

// dateFormats is the ordered list tried against raw date values. ISO wins
// immediately; US month-first forms come before day-first ones, so a
// day-first date is only reached when the US parse rejects it (e.g.
// "15/03/2024" fails as a month and falls through).
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006/01/02",
	"02-01-2006",
	"Jan 2 2006",
}

// NormalizeDate converts a raw invoice date string to ISO yyyy-mm-dd.
// Returns false when no known format matches; the caller keeps the raw
// value either way.
func NormalizeDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// isISODate reports whether s is already a parseable yyyy-mm-dd string.
func isISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
