package core

import (
	"math"
	"strings"
	"time"
)

// dayFirstLayouts are tried in order. Go's "2" and "1" accept one or two
// digits, so "05/01/2025" and "5/1/2025" both resolve to 5 January.
var dayFirstLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2.1.2006",
	"2.1.2006 15:04",
	"2.1.2006 15:04:05",
	"2-1-2006",
	"2-1-2006 15:04",
	"2-1-2006 15:04:05",
	"2/1/06",
	"2.1.06",
	"2-1-06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// excelEpoch is day zero of the 1900 date system as used by spreadsheet
// serial numbers after the 1900 leap-year quirk.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxExcelSerial is 9999-12-31.
const maxExcelSerial = 2958465

// ParseDayFirst coerces a Posting Date cell. Typed times pass through,
// numbers are read as spreadsheet serial dates and strings are parsed
// day-first. ok is false when nothing matched.
func ParseDayFirst(v any) (t time.Time, ok bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	case float64:
		return excelSerialToTime(x)
	case float32:
		return excelSerialToTime(float64(x))
	case int:
		return excelSerialToTime(float64(x))
	case int64:
		return excelSerialToTime(float64(x))
	case string:
		return parseDayFirstString(x)
	default:
		return time.Time{}, false
	}
}

func parseDayFirstString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func excelSerialToTime(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || serial <= 0 || serial > maxExcelSerial {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 86400)
	t := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
	return t, true
}

// YearMonth returns the grouping key for t, e.g. "2025-03".
func YearMonth(t time.Time) string {
	return t.Format("2006-01")
}
