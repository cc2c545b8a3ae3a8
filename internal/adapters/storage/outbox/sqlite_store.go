package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fitadmin/internal/adapters/storage"
	domain "fitadmin/internal/domain/outbox"
)

const (
	entryColumns = "id, action_type, payload, status, attempts, max_attempts, last_attempted_at, created_at, external_id, error_message"

	// upsertEntry leaves action_type, payload and created_at as first written.
	upsertEntry = "INSERT INTO outbox (" + entryColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)" +
		" ON CONFLICT(id) DO UPDATE SET status=excluded.status, attempts=excluded.attempts," +
		" max_attempts=excluded.max_attempts, last_attempted_at=excluded.last_attempted_at," +
		" external_id=excluded.external_id, error_message=excluded.error_message"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a SQLiteStore over db.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID loads one entry.
// POST: Returns the entry or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM outbox WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, fmt.Errorf("outbox entry %s: %w", id, domain.ErrNotFound)
	}
	return e, err
}

// Save inserts e or records the outcome of another attempt on it.
// PRE: e has been validated
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx, upsertEntry,
		e.ID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		optionalTimestamp(e), storage.TimestampValue(e.CreatedAt), e.ExternalID, e.ErrorMessage)
	if err != nil {
		return fmt.Errorf("save outbox entry %s: %w", e.ID, err)
	}
	return nil
}

// optionalTimestamp stores a never-attempted entry as "".
func optionalTimestamp(e domain.Entry) string {
	if e.LastAttemptedAt.IsZero() {
		return ""
	}
	return storage.TimestampValue(e.LastAttemptedAt)
}

// ListPending returns entries still owed a delivery attempt.
// PRE: limit > 0
func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.query(ctx,
		"SELECT "+entryColumns+" FROM outbox WHERE status IN (?, ?) ORDER BY created_at ASC LIMIT ?",
		domain.StatusPending, domain.StatusRetrying, limit)
}

// ListRecent returns the newest entries; an empty status matches all.
// PRE: limit > 0
func (s *SQLiteStore) ListRecent(ctx context.Context, status string, limit int) ([]domain.Entry, error) {
	if status == "" {
		return s.query(ctx, "SELECT "+entryColumns+" FROM outbox ORDER BY created_at DESC LIMIT ?", limit)
	}
	return s.query(ctx,
		"SELECT "+entryColumns+" FROM outbox WHERE status = ? ORDER BY created_at DESC LIMIT ?", status, limit)
}

// CountByStatus groups entries by status. Statuses with no entries are absent.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM outbox GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(sc storage.Scanner) (domain.Entry, error) {
	var (
		e                      domain.Entry
		lastAttempted, created string
	)
	err := sc.Scan(&e.ID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttempted, &created, &e.ExternalID, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	if e.LastAttemptedAt, err = storage.ScanTimestamp(lastAttempted); err != nil {
		return domain.Entry{}, fmt.Errorf("outbox entry %s last_attempted_at: %w", e.ID, err)
	}
	if e.CreatedAt, err = storage.ScanTimestamp(created); err != nil {
		return domain.Entry{}, fmt.Errorf("outbox entry %s created_at: %w", e.ID, err)
	}
	return e, nil
}
