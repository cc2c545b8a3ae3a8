package audit

import (
	"context"

	domain "fitadmin/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save appends an audit event.
	// PRE: event is valid
	// POST: Event is persisted; existing events are never modified
	Save(ctx context.Context, event domain.Event) error

	// List returns matching events, newest first.
	// PRE: filter.Limit > 0
	List(ctx context.Context, filter Filter) ([]domain.Event, error)

	// Count returns how many events match the filter, ignoring Limit and Offset.
	Count(ctx context.Context, filter Filter) (int, error)
}

// Filter narrows an audit listing. Empty fields match everything.
type Filter struct {
	Category   domain.Category
	Action     domain.Action
	ActorID    string
	ResourceID string
	Limit      int
	Offset     int
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
