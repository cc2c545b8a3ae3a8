package projections

import (
	"context"

	"fitadmin/internal/domain/export"
)

// QueryExportMember bundles a member's profile, derived status and payments.
// PRE: MemberID is non-empty
// POST: Returns member.ErrNotFound for unknown members
func QueryExportMember(ctx context.Context, query GetMemberStatusQuery, deps GetMemberDetailDeps) (export.MemberData, error) {
	detail, err := QueryGetMemberDetail(ctx, query, deps)
	if err != nil {
		return export.MemberData{}, err
	}
	return export.NewMemberData(deps.Clock.now(), detail.Member, detail.MembershipStatus, detail.Payments), nil
}
