package projections

import (
	"context"

	"fitadmin/internal/domain/membership"
)

// GetOverdueMembersQuery carries query parameters.
type GetOverdueMembersQuery struct {
	// MinDays excludes members overdue by fewer days. Values below 1 mean 1.
	MinDays int
}

// GetOverdueMembersDeps holds dependencies for GetOverdueMembers.
type GetOverdueMembersDeps struct {
	MemberStore  MemberStore
	PaymentStore PaymentStore
	Clock        Clock
}

// QueryGetOverdueMembers lists inactive and deactivated members, most overdue
// first. Members who never paid are listed after everyone with a due date.
func QueryGetOverdueMembers(ctx context.Context, query GetOverdueMembersQuery, deps GetOverdueMembersDeps) ([]membership.OverdueMember, error) {
	members, err := deps.MemberStore.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := deps.PaymentStore.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	results := membership.ComputeAll(members, payments, deps.Clock.now(), deps.Clock.location())
	overdue := membership.Overdue(members, results, query.MinDays)
	if overdue == nil {
		overdue = []membership.OverdueMember{}
	}
	return overdue, nil
}
