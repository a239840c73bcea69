package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Period is a closed date interval. Both endpoints are inclusive and
// normalized to midnight UTC.
type Period struct {
	Fom time.Time `json:"fom"`
	Tom time.Time `json:"tom"`
}

// NewPeriod builds a Period and enforces fom <= tom.
func NewPeriod(fom, tom time.Time) (Period, error) {
	fom = Midnight(fom)
	tom = Midnight(tom)
	if tom.Before(fom) {
		return Period{}, fmt.Errorf("invalid period: tom %s before fom %s", tom.Format(dateLayout), fom.Format(dateLayout))
	}
	return Period{Fom: fom, Tom: tom}, nil
}

// MustPeriod is NewPeriod for callers with already-validated dates; panics on bad input.
func MustPeriod(fom, tom time.Time) Period {
	p, err := NewPeriod(fom, tom)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePeriod parses a fom/tom pair in ISO date format.
func ParsePeriod(fom, tom string) (Period, error) {
	f, err := time.Parse(dateLayout, fom)
	if err != nil {
		return Period{}, fmt.Errorf("invalid fom %q: %w", fom, err)
	}
	t, err := time.Parse(dateLayout, tom)
	if err != nil {
		return Period{}, fmt.Errorf("invalid tom %q: %w", tom, err)
	}
	return NewPeriod(f, t)
}

// Midnight truncates a timestamp to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether the two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	return !p.Fom.After(other.Tom) && !other.Fom.After(p.Tom)
}

// Contains reports whether other lies entirely within p, inclusive.
func (p Period) Contains(other Period) bool {
	return !p.Fom.After(other.Fom) && !p.Tom.Before(other.Tom)
}

// Adjacent reports whether one period ends exactly the day before the other starts.
func (p Period) Adjacent(other Period) bool {
	return p.Tom.AddDate(0, 0, 1).Equal(other.Fom) || other.Tom.AddDate(0, 0, 1).Equal(p.Fom)
}

// Merge returns the smallest period covering both p and other. It does not
// validate overlap or adjacency: merging disjoint periods yields a covering
// period that includes the gap, so callers must pre-filter with Overlaps or
// Adjacent.
func (p Period) Merge(other Period) Period {
	merged := p
	if other.Fom.Before(merged.Fom) {
		merged.Fom = other.Fom
	}
	if other.Tom.After(merged.Tom) {
		merged.Tom = other.Tom
	}
	return merged
}

// Days returns the number of calendar days covered, endpoints inclusive.
func (p Period) Days() int {
	return int(p.Tom.Sub(p.Fom).Hours()/24) + 1
}

func (p Period) Equal(other Period) bool {
	return p.Fom.Equal(other.Fom) && p.Tom.Equal(other.Tom)
}

func (p Period) String() string {
	return p.Fom.Format(dateLayout) + "/" + p.Tom.Format(dateLayout)
}
