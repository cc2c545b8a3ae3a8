package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"fitadmin/internal/domain/calendar"
	"fitadmin/internal/domain/member"
)

// UpdateMemberInput replaces a member's profile. Status and created_at are not client-writable.
type UpdateMemberInput struct {
	MemberID string `json:"member_id" validate:"required"`
	MemberProfile
}

// UpdateMemberDeps holds dependencies for UpdateMember.
type UpdateMemberDeps struct {
	MemberStore MemberStore
	Clock       Clock
}

// ExecuteUpdateMember replaces the editable profile of an existing member.
// PRE: Member exists
// POST: Profile fields overwritten; ID, status and created_at unchanged
// INVARIANT: Age stays consistent with dob as of today
func ExecuteUpdateMember(ctx context.Context, input UpdateMemberInput, deps UpdateMemberDeps) (member.Member, error) {
	if err := checkInput(input, nil); err != nil {
		return member.Member{}, err
	}
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return member.Member{}, err
	}

	today := calendar.Day(deps.Clock.now(), deps.Clock.location())
	if err := applyProfile(&m, input.MemberProfile, today); err != nil {
		return member.Member{}, err
	}
	if err := m.Validate(); err != nil {
		return member.Member{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return member.Member{}, err
	}

	slog.Info("member_event", "event", "member_updated", "member_id", m.ID)
	return m, nil
}
