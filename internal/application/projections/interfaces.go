package projections

import (
	"context"

	"fitadmin/internal/adapters/storage/payment"
	domainMember "fitadmin/internal/domain/member"
	domainPayment "fitadmin/internal/domain/payment"
)

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (domainMember.Member, error)
	ListAll(ctx context.Context) ([]domainMember.Member, error)
}

// StatusWriter refreshes a member's cached status when a read finds it stale.
type StatusWriter interface {
	ReplaceStatus(ctx context.Context, c domainMember.StatusChange) (bool, error)
}

// PaymentStore interface for payment queries.
type PaymentStore interface {
	ListByMemberID(ctx context.Context, memberID string) ([]domainPayment.Payment, error)
	ListAll(ctx context.Context) ([]domainPayment.Payment, error)
	List(ctx context.Context, filter payment.ListFilter) ([]domainPayment.Payment, error)
	Count(ctx context.Context, filter payment.ListFilter) (int, error)
}
