package payment

import (
	"context"
	"database/sql"

	"fitadmin/internal/adapters/storage"
	domain "fitadmin/internal/domain/payment"
)

const paymentColumns = "id, member_id, member_name, amount, payment_type, payment_date, valid_until, receipt_ref, notes, created_at"

// Newest first; ties broken so the order is stable across calls.
const newestFirst = " ORDER BY payment_date DESC, created_at DESC, id DESC"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new payment store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func scanPayment(sc storage.Scanner) (domain.Payment, error) {
	var p domain.Payment
	var paid, until sql.NullString
	var created string
	if err := sc.Scan(
		&p.ID,
		&p.MemberID,
		&p.MemberName,
		&p.Amount,
		&p.Type,
		&paid,
		&until,
		&p.ReceiptRef,
		&p.Notes,
		&created,
	); err != nil {
		return domain.Payment{}, err
	}
	var err error
	if p.PaymentDate, err = storage.ScanDate(paid); err != nil {
		return domain.Payment{}, err
	}
	if p.ValidUntil, err = storage.ScanDate(until); err != nil {
		return domain.Payment{}, err
	}
	if p.CreatedAt, err = storage.ScanTimestamp(created); err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

func scanPayments(rows *sql.Rows) ([]domain.Payment, error) {
	defer rows.Close()
	var results []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// Save inserts a Payment. Existing payments are never updated.
// PRE: entity has been validated and its member exists
// POST: Entity is persisted; a duplicate id is an error
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Payment) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO payment ("+paymentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entity.ID,
		entity.MemberID,
		entity.MemberName,
		entity.Amount,
		entity.Type,
		storage.DateValue(entity.PaymentDate),
		storage.DateValue(entity.ValidUntil),
		entity.ReceiptRef,
		entity.Notes,
		storage.TimestampValue(entity.CreatedAt),
	)
	return err
}

// ListByMemberID returns every payment for one member, newest first.
// POST: Returns an empty slice for members without payments
func (s *SQLiteStore) ListByMemberID(ctx context.Context, memberID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+paymentColumns+" FROM payment WHERE member_id = ?"+newestFirst, memberID)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

func listWhereClause(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if filter.MemberID != "" {
		where += " AND member_id = ?"
		args = append(args, filter.MemberID)
	}
	if filter.Type != "" {
		where += " AND payment_type = ?"
		args = append(args, filter.Type)
	}
	if !filter.From.IsZero() {
		where += " AND payment_date >= ?"
		args = append(args, storage.DateValue(filter.From))
	}
	if !filter.To.IsZero() {
		where += " AND payment_date <= ?"
		args = append(args, storage.DateValue(filter.To))
	}
	return where, args
}

// List returns payments matching the filter, newest first. A zero Limit returns all rows.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Payment, error) {
	where, args := listWhereClause(filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, "SELECT "+paymentColumns+" FROM payment"+where+newestFirst+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, err
	}
	return scanPayments(rows)
}

// Count returns the number of payments matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhereClause(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payment"+where, args...).Scan(&count)
	return count, err
}

// ListAll returns the whole ledger, newest first.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Payment, error) {
	return s.List(ctx, ListFilter{})
}
