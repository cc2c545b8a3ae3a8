package payment

import (
	"context"
	"time"

	domain "fitadmin/internal/domain/payment"
)

// Store persists Payment records. Payments are append-only.
type Store interface {
	Save(ctx context.Context, value domain.Payment) error
	ListByMemberID(ctx context.Context, memberID string) ([]domain.Payment, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Payment, error)
	ListAll(ctx context.Context) ([]domain.Payment, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List operations.
// From and To bound payment_date inclusively; zero values are open.
type ListFilter struct {
	Limit    int
	Offset   int
	MemberID string
	Type     string
	From     time.Time
	To       time.Time
}
