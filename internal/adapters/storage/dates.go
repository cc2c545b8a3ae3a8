package storage

import (
	"database/sql"
	"fmt"
	"time"

	"fitadmin/internal/domain/calendar"
)

// Dates are stored as YYYY-MM-DD TEXT and timestamps as RFC 3339 TEXT so that
// lexical order matches chronological order in SQL comparisons.

// DateValue renders a calendar date for storage; the zero date becomes NULL.
func DateValue(d time.Time) any {
	if d.IsZero() {
		return nil
	}
	return calendar.Format(d)
}

// TimestampValue renders an instant for storage in UTC.
func TimestampValue(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ScanDate parses a stored calendar date; NULL and "" yield the zero time.
func ScanDate(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	d, err := calendar.ParseDate(s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored date: %w", err)
	}
	return d, nil
}

// ScanTimestamp parses a stored RFC 3339 timestamp; "" yields the zero time.
func ScanTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}
