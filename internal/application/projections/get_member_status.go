package projections

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	domainMember "fitadmin/internal/domain/member"
	"fitadmin/internal/domain/membership"
	domainPayment "fitadmin/internal/domain/payment"
)

// Clock supplies the current instant and the business zone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Clock) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// GetMemberStatusQuery carries query parameters.
type GetMemberStatusQuery struct {
	MemberID string
}

// GetMemberStatusDeps holds dependencies for GetMemberStatus.
type GetMemberStatusDeps struct {
	MemberStore  MemberStore
	PaymentStore PaymentStore
	StatusWriter StatusWriter // optional
	Clock        Clock
}

// QueryGetMemberStatus derives a member's status from its payment history.
// PRE: MemberID is non-empty
// POST: Returns member.ErrNotFound for unknown members
// INVARIANT: A stale cached status is rewritten when StatusWriter is set
func QueryGetMemberStatus(ctx context.Context, query GetMemberStatusQuery, deps GetMemberStatusDeps) (membership.StatusResult, error) {
	m, err := deps.MemberStore.GetByID(ctx, query.MemberID)
	if err != nil {
		return membership.StatusResult{}, err
	}
	history, err := deps.PaymentStore.ListByMemberID(ctx, m.ID)
	if err != nil {
		return membership.StatusResult{}, err
	}
	res := membership.ComputeStatus(m, history, deps.Clock.now(), deps.Clock.location())
	healStatus(ctx, deps.StatusWriter, m, res.Status, len(history))
	return res, nil
}

// MemberDetail is a member with its derived status and payment history.
type MemberDetail struct {
	domainMember.Member
	MembershipStatus membership.StatusResult `json:"membership_status"`
	Payments         []domainPayment.Payment `json:"payments"`
}

// MarshalJSON inlines the member's wire form next to status and payments.
func (d MemberDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		domainMember.Wire
		MembershipStatus membership.StatusResult `json:"membership_status"`
		Payments         []domainPayment.Payment `json:"payments"`
	}{d.Member.Wire(), d.MembershipStatus, d.Payments})
}

// GetMemberDetailDeps holds dependencies for GetMemberDetail.
type GetMemberDetailDeps = GetMemberStatusDeps

// QueryGetMemberDetail returns the member profile, derived status and payments newest first.
// PRE: MemberID is non-empty
// POST: Member.Status equals MembershipStatus.Status
func QueryGetMemberDetail(ctx context.Context, query GetMemberStatusQuery, deps GetMemberDetailDeps) (MemberDetail, error) {
	m, err := deps.MemberStore.GetByID(ctx, query.MemberID)
	if err != nil {
		return MemberDetail{}, err
	}
	history, err := deps.PaymentStore.ListByMemberID(ctx, m.ID)
	if err != nil {
		return MemberDetail{}, err
	}
	if history == nil {
		history = []domainPayment.Payment{}
	}
	res := membership.ComputeStatus(m, history, deps.Clock.now(), deps.Clock.location())
	healStatus(ctx, deps.StatusWriter, m, res.Status, len(history))
	m.Status = res.Status
	return MemberDetail{Member: m, MembershipStatus: res, Payments: history}, nil
}

// healStatus writes the derived status back when the cached one is stale.
// The write is dropped if the member was paid or rewritten since the read.
// Failures are logged; the read still succeeds with the derived value.
func healStatus(ctx context.Context, w StatusWriter, m domainMember.Member, derived string, payments int) {
	if w == nil || m.Status == derived {
		return
	}
	ok, err := w.ReplaceStatus(ctx, domainMember.StatusChange{MemberID: m.ID, From: m.Status, To: derived, Payments: payments})
	if err != nil {
		slog.Warn("member_event", "event", "status_heal_failed", "member_id", m.ID, "error", err)
		return
	}
	if !ok {
		return
	}
	slog.Info("member_event", "event", "status_changed", "member_id", m.ID, "from", m.Status, "to", derived)
}
