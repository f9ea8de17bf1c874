// Package utils provides small helpers for parsing request parameters.
// They carry no domain logic.
package utils

import (
	"strconv"
	"strings"
	"time"
)

// MonthLayout is the layout of ledger month keys.
const MonthLayout = "2006-01"

// AtoiDefault converts s to an int, returning def when s is empty or
// not an integer.
//
//	n := utils.AtoiDefault("4", 10) // 4
//	n = utils.AtoiDefault("", 10)   // 10
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// MonthOrCurrent returns s trimmed, or the UTC month of now when s is blank.
// The value is not validated.
func MonthOrCurrent(s string, now time.Time) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return now.UTC().Format(MonthLayout)
}
