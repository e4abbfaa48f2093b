package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used in storage and on the wire.
const DateLayout = "2006-01-02"

// Date builds a calendar date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock part of t, keeping the calendar day as seen in t's location.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// AddMonths moves d forward n calendar months. The day of month is clamped
// to the last day of the target month, so Jan 31 + 1 month is Feb 28 or 29.
func AddMonths(d time.Time, n int) time.Time {
	y, m := d.Year(), int(d.Month())-1+n
	y += m / 12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	month := time.Month(m + 1)
	day := d.Day()
	if last := DaysIn(y, month); day > last {
		day = last
	}
	return Date(y, month, day)
}

// MonthStart returns the first day of d's month.
func MonthStart(d time.Time) time.Time {
	return Date(d.Year(), d.Month(), 1)
}

// FormatDate renders a calendar date.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// ParseDate parses a calendar date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDatePtr renders an optional date; nil becomes nil.
func FormatDatePtr(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := FormatDate(*d)
	return &s
}

// ParseDatePtr parses an optional stored date; empty becomes nil.
func ParseDatePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Today returns the calendar date of now as seen in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}
