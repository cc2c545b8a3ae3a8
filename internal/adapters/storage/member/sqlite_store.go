package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fitadmin/internal/adapters/storage"
	domain "fitadmin/internal/domain/member"
)

const memberColumns = "id, name, dob, age, weight_kg, height_cm, identity_number, address, phone, whatsapp, membership_type, monthly_fee, joining_date, status, created_at"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a SQLiteStore over db.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func scanMember(sc storage.Scanner) (domain.Member, error) {
	var m domain.Member
	var dob, joined sql.NullString
	var created string
	if err := sc.Scan(
		&m.ID,
		&m.Name,
		&dob,
		&m.Age,
		&m.WeightKg,
		&m.HeightCm,
		&m.IdentityNumber,
		&m.Address,
		&m.Phone,
		&m.WhatsApp,
		&m.MembershipType,
		&m.MonthlyFee,
		&joined,
		&m.Status,
		&created,
	); err != nil {
		return domain.Member{}, err
	}
	var err error
	if m.DOB, err = storage.ScanDate(dob); err != nil {
		return domain.Member{}, err
	}
	if m.JoiningDate, err = storage.ScanDate(joined); err != nil {
		return domain.Member{}, err
	}
	if m.CreatedAt, err = storage.ScanTimestamp(created); err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

func scanMembers(rows *sql.Rows) ([]domain.Member, error) {
	defer rows.Close()
	results := []domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// GetByID loads one member.
// POST: Returns the member or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE id = ?", id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
	}
	return m, err
}

// upsertMember writes every column; an update leaves id and created_at alone.
var upsertMember = func() string {
	cols := strings.Split(memberColumns, ", ")
	updates := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != "id" && c != "created_at" {
			updates = append(updates, c+"=excluded."+c)
		}
	}
	return "INSERT INTO member (" + memberColumns + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") +
		") ON CONFLICT(id) DO UPDATE SET " + strings.Join(updates, ", ")
}()

// Save inserts or updates a member.
// PRE: m has been validated
// POST: created_at keeps its first value
func (s *SQLiteStore) Save(ctx context.Context, m domain.Member) error {
	_, err := s.db.ExecContext(ctx, upsertMember,
		m.ID,
		m.Name,
		storage.DateValue(m.DOB),
		m.Age,
		m.WeightKg,
		m.HeightCm,
		m.IdentityNumber,
		m.Address,
		m.Phone,
		m.WhatsApp,
		m.MembershipType,
		m.MonthlyFee,
		storage.DateValue(m.JoiningDate),
		m.Status,
		storage.TimestampValue(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save member %s: %w", m.ID, err)
	}
	return nil
}

// UpdateStatus writes a recomputed cached status.
// PRE: status is a valid member status
// POST: Returns an error wrapping domain.ErrNotFound if no row was updated
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE member SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ReplaceStatus applies a status change derived from an earlier snapshot.
// Payments are insert-only, so a changed payment count means a newer status
// may already have been written and the change is dropped.
// POST: Returns false when the row is missing, its status moved on, or its ledger grew
func (s *SQLiteStore) ReplaceStatus(ctx context.Context, c domain.StatusChange) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE member SET status = ?
		WHERE id = ? AND status = ?
		AND (SELECT COUNT(*) FROM payment WHERE payment.member_id = member.id) = ?`,
		c.To, c.MemberID, c.From, c.Payments)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListAll returns every member ordered by name, then id.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+memberColumns+" FROM member ORDER BY name COLLATE NOCASE, id")
	if err != nil {
		return nil, err
	}
	return scanMembers(rows)
}
