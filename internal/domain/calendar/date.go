package calendar

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// MaxYear is the last year DateLayout can represent.
const MaxYear = 9999

// DefaultZone is used when no zone is configured.
const DefaultZone = "UTC"

// Domain errors
var (
	ErrEmptyDate   = errors.New("date cannot be empty")
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")
)

// A calendar date is represented as a time.Time at midnight UTC. Dates carry no
// time-of-day and no zone: the zone only matters when an instant is converted
// to a date, which is what Day does.

// Day returns the calendar date of t as observed in loc.
// PRE: loc may be nil (treated as UTC)
// POST: Returns midnight UTC of that calendar date
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Normalize drops time-of-day from a date value without changing its calendar fields.
func Normalize(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the number of calendar days from `from` to `to`.
// Negative when `to` is before `from`.
// INVARIANT: Only the year/month/day fields of the inputs are used
func DaysBetween(from, to time.Time) int {
	a := Normalize(from)
	b := Normalize(to)
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

// AddMonths adds n calendar months to d, clamping the day to the last day of
// the target month (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(d time.Time, n int) time.Time {
	d = Normalize(d)
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day()
	if last := DaysInMonth(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in d's month.
func DaysInMonth(d time.Time) int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthStart returns the first day of d's month.
func MonthStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of d's month.
func MonthEnd(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// YearStart returns January 1 of d's year.
func YearStart(d time.Time) time.Time {
	return time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// YearEnd returns December 31 of d's year.
func YearEnd(d time.Time) time.Time {
	return time.Date(d.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
}

// Range is an inclusive span of calendar dates.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls within the range, both ends inclusive.
// INVARIANT: Range fields are not mutated
func (r Range) Contains(d time.Time) bool {
	d = Normalize(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// ParseDate parses a YYYY-MM-DD string. RFC 3339 timestamps are accepted too
// and truncated to their own calendar date.
// PRE: none
// POST: Returns a normalized date or an error wrapping ErrInvalidDate
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return Normalize(ts), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Format renders a date as YYYY-MM-DD, or "" for the zero value.
func Format(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// JSONDate renders a date for a JSON document: YYYY-MM-DD, or nil for the
// zero value so that a missing date encodes as null.
func JSONDate(d time.Time) *string {
	if d.IsZero() {
		return nil
	}
	s := d.Format(DateLayout)
	return &s
}

// LoadZone resolves a zone name, falling back to UTC for an empty name.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}
