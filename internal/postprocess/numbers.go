package postprocess

import (
	"regexp"
	"strconv"
	"strings"
)

var reNumericToken = regexp.MustCompile(`[-+]?[\d.,]*\d`)

// CoerceNumber turns a monetary value into a float64. Strings are cleaned
// of currency symbols and grouping separators first. Returns false when the
// input cannot be read as a number; the caller retains the original value.
func CoerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		return parseDecimal(t)
	default:
		return 0, false
	}
}

// parseDecimal handles "$1,234.50", "1.234,50", "250.00 USD" and similar.
//
// Separator policy: when both '.' and ',' appear, the rightmost one is the
// decimal mark and the other is a grouping separator, so "1.234,50" and
// "1,234.50" both read as 1234.50. A lone ',' followed by exactly two
// digits is a decimal mark; any other lone ',' is grouping. A lone '.' is a
// decimal mark unless it repeats ("1.234.567"), which is grouping.
func parseDecimal(s string) (float64, bool) {
	m := reNumericToken.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}

	dot := strings.LastIndex(m, ".")
	comma := strings.LastIndex(m, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			m = strings.ReplaceAll(m, ".", "")
			m = strings.Replace(m, ",", ".", 1)
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case comma >= 0:
		if strings.Count(m, ",") == 1 && len(m)-comma-1 == 2 {
			m = strings.Replace(m, ",", ".", 1)
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case strings.Count(m, ".") > 1:
		m = strings.ReplaceAll(m, ".", "")
	}

	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
