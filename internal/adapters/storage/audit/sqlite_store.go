package audit

import (
	"context"

	"fitadmin/internal/adapters/storage"
	domain "fitadmin/internal/domain/audit"
)

const eventColumns = "id, at, category, action, actor_id, actor_email, resource_type, resource_id, summary, ip_address"

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save appends an audit event.
// PRE: event is valid
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, storage.TimestampValue(e.At), string(e.Category), string(e.Action),
		e.ActorID, e.ActorEmail, e.ResourceType, e.ResourceID, e.Summary, e.IPAddress)
	return err
}

// List returns matching events. Insertion order is chronological because the
// table is append-only, so rowid orders them without parsing timestamps.
// PRE: filter.Limit > 0
// POST: Returns events ordered newest first
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]domain.Event, error) {
	where, args := whereClause(f)
	args = append(args, f.Limit, f.Offset)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM audit_event"+where+" ORDER BY rowid DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of events matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, f Filter) (int, error) {
	where, args := whereClause(f)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_event"+where, args...).Scan(&n)
	return n, err
}

func whereClause(f Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if f.Category != "" {
		where += " AND category = ?"
		args = append(args, string(f.Category))
	}
	if f.Action != "" {
		where += " AND action = ?"
		args = append(args, string(f.Action))
	}
	if f.ActorID != "" {
		where += " AND actor_id = ?"
		args = append(args, f.ActorID)
	}
	if f.ResourceID != "" {
		where += " AND resource_id = ?"
		args = append(args, f.ResourceID)
	}
	return where, args
}

func scanEvent(sc storage.Scanner) (domain.Event, error) {
	var e domain.Event
	var at, category, action string
	if err := sc.Scan(&e.ID, &at, &category, &action, &e.ActorID, &e.ActorEmail,
		&e.ResourceType, &e.ResourceID, &e.Summary, &e.IPAddress); err != nil {
		return domain.Event{}, err
	}
	e.Category = domain.Category(category)
	e.Action = domain.Action(action)
	var err error
	if e.At, err = storage.ScanTimestamp(at); err != nil {
		return domain.Event{}, err
	}
	return e, nil
}
