package projections

import (
	"context"

	"fitadmin/internal/domain/fees"
)

// GetFeeSummaryDeps holds dependencies for GetFeeSummary.
type GetFeeSummaryDeps struct {
	MemberStore  MemberStore
	PaymentStore PaymentStore
	Clock        Clock
}

// QueryGetFeeSummary totals the payment ledger by month, rolling quarter and year.
// POST: TotalMembers and TotalPayments count every stored row
func QueryGetFeeSummary(ctx context.Context, deps GetFeeSummaryDeps) (fees.Summary, error) {
	members, err := deps.MemberStore.ListAll(ctx)
	if err != nil {
		return fees.Summary{}, err
	}
	payments, err := deps.PaymentStore.ListAll(ctx)
	if err != nil {
		return fees.Summary{}, err
	}
	return fees.ComputeSummary(payments, len(members), deps.Clock.now(), deps.Clock.location()), nil
}
