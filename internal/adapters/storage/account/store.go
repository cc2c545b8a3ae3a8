// Package account persists the staff and admin logins of the admin API.
package account

import (
	"context"

	domain "fitadmin/internal/domain/account"
)

// Store persists accounts. Emails are stored normalized so every lookup
// is case-insensitive.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	// List returns every account, oldest first.
	List(ctx context.Context) ([]domain.Account, error)
	// CountByRole counts accounts holding role; an empty role counts all.
	CountByRole(ctx context.Context, role string) (int, error)
}
