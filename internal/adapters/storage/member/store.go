// Package member persists gym members. Status is a cached copy of the
// status derived from the payment ledger.
package member

import (
	"context"

	domain "fitadmin/internal/domain/member"
)

// Store persists members. Listing and filtering on derived status happen
// above the store, so it only offers whole-table reads.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	Save(ctx context.Context, value domain.Member) error
	// UpdateStatus rewrites only the cached status column.
	UpdateStatus(ctx context.Context, id, status string) error
	// ReplaceStatus applies a status change only if nothing moved since it was derived.
	ReplaceStatus(ctx context.Context, c domain.StatusChange) (bool, error)
	// ListAll returns every member ordered by name.
	ListAll(ctx context.Context) ([]domain.Member, error)
}

var _ Store = (*SQLiteStore)(nil)
