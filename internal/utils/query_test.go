package utils

import (
	"testing"
	"time"
)

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"4", 10, 4},
		{"-1", 10, -1},
		{"x", 5, 5},
		{" 4", 7, 7}, // no trim
		{"999999999999999999999999", 10, 10},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestMonthOrCurrent(t *testing.T) {
	// 23:30 in UTC-2 is already the next month in UTC.
	now := time.Date(2025, 1, 31, 23, 30, 0, 0, time.FixedZone("x", -2*3600))
	if got := MonthOrCurrent("  ", now); got != "2025-02" {
		t.Fatalf("MonthOrCurrent(blank) = %q; want 2025-02", got)
	}
	if got := MonthOrCurrent(" 2024-11 ", now); got != "2024-11" {
		t.Fatalf("MonthOrCurrent = %q; want 2024-11", got)
	}
}
