// Package fixtures provides test data builders and helpers.
package fixtures

import (
	"time"

	"github.com/shopspring/decimal"
)

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// TimePtr returns a pointer to the given time.Time.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// Amount parses a decimal literal and panics on malformed input.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
