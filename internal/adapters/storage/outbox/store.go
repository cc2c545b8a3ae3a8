// Package outbox persists queued report deliveries.
package outbox

import (
	"context"

	domain "fitadmin/internal/domain/outbox"
)

// Store persists outbox entries. The payload is written once and never
// changed by later saves.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	// ListPending returns pending or retrying entries, oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
	// ListRecent returns the newest entries, optionally of one status.
	ListRecent(ctx context.Context, status string, limit int) ([]domain.Entry, error)
	// CountByStatus returns the number of entries per status.
	CountByStatus(ctx context.Context) (map[string]int, error)
}
