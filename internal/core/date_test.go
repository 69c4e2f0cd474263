package core

import (
	"testing"
	"time"
)

func TestParseDayFirst(t *testing.T) {
	utc := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	cases := []struct {
		in   any
		want time.Time
		ok   bool
	}{
		{"05/01/2025", utc(2025, time.January, 5), true},
		{"5/1/2025", utc(2025, time.January, 5), true},
		{"01/03/2025", utc(2025, time.March, 1), true},
		{"31/12/2024", utc(2024, time.December, 31), true},
		{"31.12.2024", utc(2024, time.December, 31), true},
		{"31-12-2024", utc(2024, time.December, 31), true},
		{"05/01/25", utc(2025, time.January, 5), true},
		{"2025-03-01", utc(2025, time.March, 1), true},
		{"02/03/2025 14:30:00", time.Date(2025, time.March, 2, 14, 30, 0, 0, time.UTC), true},
		{" 02/03/2025 ", utc(2025, time.March, 2), true},
		{utc(2025, time.April, 9), utc(2025, time.April, 9), true},
		{45658.0, utc(2025, time.January, 1), true},
		{45658.5, time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC), true},
		{"13/13/2025", time.Time{}, false},
		{"bad-date", time.Time{}, false},
		{"", time.Time{}, false},
		{nil, time.Time{}, false},
		{-1.0, time.Time{}, false},
		{time.Time{}, time.Time{}, false},
	}
	for i, tc := range cases {
		got, ok := ParseDayFirst(tc.in)
		if ok != tc.ok {
			t.Fatalf("case %d (%v): ok=%v, want %v", i, tc.in, ok, tc.ok)
		}
		if tc.ok && !got.Equal(tc.want) {
			t.Fatalf("case %d (%v): got %v, want %v", i, tc.in, got, tc.want)
		}
	}
}

func TestYearMonth(t *testing.T) {
	if got := YearMonth(time.Date(2025, time.March, 31, 23, 59, 0, 0, time.UTC)); got != "2025-03" {
		t.Fatalf("got %q", got)
	}
}
