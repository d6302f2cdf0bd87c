package core

import (
	"errors"
	"fmt"
	"time"
)

// Scopes are textual date prefixes: "YYYY" selects a year, "YYYY-MM" a
// month, "YYYY-MM-DD" a day. Stored dates are sortable text, so scope
// filtering is plain prefix matching at every granularity. This is a
// documented contract of the storage layout, not an implementation
// convenience.

const (
	yearLayout  = "2006"
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"

	yearLen  = len(yearLayout)
	monthLen = len(monthLayout)
	dayLen   = len(dayLayout)
)

type Unit string

const (
	UnitDay   Unit = "day"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// Scope is a validated date prefix plus its granularity.
type Scope struct {
	Prefix string
	Unit   Unit
}

var ErrInvalidScope = errors.New("invalid scope")

// ParseScope validates a date prefix and classifies its granularity.
func ParseScope(prefix string) (Scope, error) {
	switch len(prefix) {
	case yearLen:
		if _, err := time.Parse(yearLayout, prefix); err != nil {
			return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, prefix)
		}
		return Scope{Prefix: prefix, Unit: UnitYear}, nil
	case monthLen:
		if _, err := time.Parse(monthLayout, prefix); err != nil {
			return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, prefix)
		}
		return Scope{Prefix: prefix, Unit: UnitMonth}, nil
	case dayLen:
		if _, err := time.Parse(dayLayout, prefix); err != nil {
			return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, prefix)
		}
		return Scope{Prefix: prefix, Unit: UnitDay}, nil
	}
	return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, prefix)
}

// SubPeriodLen returns the prefix length of the next finer unit inside
// the scope: days within a month, months within a year. Day scopes have
// no sub-periods.
func (s Scope) SubPeriodLen() (int, error) {
	switch s.Unit {
	case UnitMonth:
		return dayLen, nil
	case UnitYear:
		return monthLen, nil
	}
	return 0, fmt.Errorf("%w: %s scope has no sub-periods", ErrInvalidScope, s.Unit)
}

// ParseMonth validates a "YYYY-MM" string.
func ParseMonth(month string) error {
	s, err := ParseScope(month)
	if err != nil {
		return err
	}
	if s.Unit != UnitMonth {
		return fmt.Errorf("%w: %q is not a month", ErrInvalidScope, month)
	}
	return nil
}

// MonthOf extracts the "YYYY-MM" portion of a stored date string.
func MonthOf(date string) string {
	if len(date) < monthLen {
		return date
	}
	return date[:monthLen]
}

// MonthsBack returns the n calendar months ending at ref's month
// inclusive, ascending. Calendar arithmetic, not day counting, so
// February never shifts the window.
func MonthsBack(ref time.Time, n int) []string {
	if n < 1 {
		return nil
	}
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	months := make([]string, n)
	for i := range months {
		months[i] = first.AddDate(0, i, 0).Format(monthLayout)
	}
	return months
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	dayLayout,
}

// NormalizeDate parses a transaction date in one of the accepted
// layouts and returns it in canonical "YYYY-MM-DD HH:MM:SS" form.
func NormalizeDate(date string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006-01-02 15:04:05"), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
}
