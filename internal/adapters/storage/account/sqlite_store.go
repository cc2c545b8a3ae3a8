package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitadmin/internal/adapters/storage"
	domain "fitadmin/internal/domain/account"
)

const accountColumns = "id, email, password_hash, role, created_at, failed_logins, locked_until"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a SQLiteStore over db.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID loads one account.
// POST: Returns the account or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return s.getOne(ctx, "id = ?", id)
}

// GetByEmail loads the account registered under email, ignoring case.
// POST: Returns the account or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.getOne(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (s *SQLiteStore) getOne(ctx context.Context, where string, arg string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE "+where, arg)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %s: %w", arg, domain.ErrNotFound)
	}
	return a, err
}

// Save upserts an account. Login bookkeeping (failed_logins, locked_until)
// is written on every save so lockouts survive a restart.
// PRE: a has been validated
// POST: created_at is never changed by an update
func (s *SQLiteStore) Save(ctx context.Context, a domain.Account) error {
	_, err := s.db.ExecContext(ctx, upsertAccount,
		a.ID,
		domain.NormalizeEmail(a.Email),
		a.PasswordHash,
		a.Role,
		storage.TimestampValue(a.CreatedAt),
		a.FailedLogins,
		lockValue(a.LockedUntil),
	)
	if err != nil {
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	return nil
}

const upsertAccount = "INSERT INTO account (" + accountColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?)" +
	" ON CONFLICT(id) DO UPDATE SET email=excluded.email, password_hash=excluded.password_hash," +
	" role=excluded.role, failed_logins=excluded.failed_logins, locked_until=excluded.locked_until"

// lockValue stores an unlocked account as NULL.
func lockValue(until time.Time) any {
	if until.IsZero() {
		return nil
	}
	return storage.TimestampValue(until)
}

// List returns every account ordered by creation time, then email.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+accountColumns+" FROM account ORDER BY created_at, email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// CountByRole counts accounts with role, or all accounts when role is empty.
func (s *SQLiteStore) CountByRole(ctx context.Context, role string) (int, error) {
	query, args := "SELECT COUNT(*) FROM account", []any{}
	if role != "" {
		query += " WHERE role = ?"
		args = append(args, role)
	}
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func scanAccount(sc storage.Scanner) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	if err := sc.Scan(
		&entity.ID,
		&entity.Email,
		&entity.PasswordHash,
		&entity.Role,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	); err != nil {
		return domain.Account{}, err
	}
	var err error
	if entity.CreatedAt, err = storage.ScanTimestamp(createdAt); err != nil {
		return domain.Account{}, err
	}
	if lockedUntil.Valid {
		if entity.LockedUntil, err = storage.ScanTimestamp(lockedUntil.String); err != nil {
			return domain.Account{}, err
		}
	}
	return entity, nil
}
