package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// IsPersonIdent checks the 11-digit national identifier format.
func IsPersonIdent(s string) bool {
	if len(s) != 11 {
		return false
	}
	return allDigits(s)
}

// IsOrgNumber checks the 9-digit organization number format.
func IsOrgNumber(s string) bool {
	if len(s) != 9 {
		return false
	}
	return allDigits(s)
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ParseDate parses an ISO date and normalizes it to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a timestamp as an ISO date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
