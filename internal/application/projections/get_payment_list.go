package projections

import (
	"context"
	"time"

	"fitadmin/internal/adapters/storage/payment"
	"fitadmin/internal/application/listutil"
	domainPayment "fitadmin/internal/domain/payment"
)

// GetPaymentListQuery carries query parameters.
type GetPaymentListQuery struct {
	MemberID string
	Type     string
	From     time.Time // inclusive; zero is open
	To       time.Time // inclusive; zero is open
	listutil.PageParams
}

// GetPaymentListResult carries the query result.
type GetPaymentListResult struct {
	Payments []domainPayment.Payment
	Page     listutil.PageInfo
}

// GetPaymentListDeps holds dependencies for GetPaymentList.
type GetPaymentListDeps struct {
	PaymentStore PaymentStore
}

// QueryGetPaymentList lists payments newest first.
// POST: Payments is never nil
func QueryGetPaymentList(ctx context.Context, query GetPaymentListQuery, deps GetPaymentListDeps) (GetPaymentListResult, error) {
	filter := payment.ListFilter{
		MemberID: query.MemberID,
		Type:     domainPayment.NormalizeType(query.Type),
		From:     query.From,
		To:       query.To,
	}
	total, err := deps.PaymentStore.Count(ctx, filter)
	if err != nil {
		return GetPaymentListResult{}, err
	}
	filter.Limit = query.Limit
	filter.Offset = query.Offset
	payments, err := deps.PaymentStore.List(ctx, filter)
	if err != nil {
		return GetPaymentListResult{}, err
	}
	if payments == nil {
		payments = []domainPayment.Payment{}
	}
	return GetPaymentListResult{Payments: payments, Page: listutil.NewPageInfo(query.PageParams, total)}, nil
}
