package projections

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fitadmin/internal/adapters/storage/payment"
	domainMember "fitadmin/internal/domain/member"
	domainPayment "fitadmin/internal/domain/payment"
)

var fixedTime = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func fixedClock() Clock {
	return Clock{Now: func() time.Time { return fixedTime }, Location: time.UTC}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type mockMemberStore struct {
	members []domainMember.Member
	updates []string
}

// GetByID returns a seeded member by ID.
// POST: Returns the seeded member or a wrapped ErrNotFound
func (s *mockMemberStore) GetByID(_ context.Context, id string) (domainMember.Member, error) {
	for _, m := range s.members {
		if m.ID == id {
			return m, nil
		}
	}
	return domainMember.Member{}, fmt.Errorf("member %s: %w", id, domainMember.ErrNotFound)
}

// ListAll returns all seeded members in seed order.
func (s *mockMemberStore) ListAll(_ context.Context) ([]domainMember.Member, error) {
	return s.members, nil
}

func (s *mockMemberStore) ReplaceStatus(_ context.Context, c domainMember.StatusChange) (bool, error) {
	s.updates = append(s.updates, fmt.Sprintf("%s=%s/%d", c.MemberID, c.To, c.Payments))
	return true, nil
}

type mockPaymentStore struct {
	payments   []domainPayment.Payment
	lastFilter payment.ListFilter
}

func (s *mockPaymentStore) ListByMemberID(_ context.Context, memberID string) ([]domainPayment.Payment, error) {
	var out []domainPayment.Payment
	for _, p := range s.payments {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *mockPaymentStore) ListAll(_ context.Context) ([]domainPayment.Payment, error) {
	return s.payments, nil
}

// List applies only MemberID and paging; the SQL store covers the rest.
func (s *mockPaymentStore) List(_ context.Context, f payment.ListFilter) ([]domainPayment.Payment, error) {
	s.lastFilter = f
	var out []domainPayment.Payment
	for _, p := range s.payments {
		if f.MemberID == "" || p.MemberID == f.MemberID {
			out = append(out, p)
		}
	}
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *mockPaymentStore) Count(_ context.Context, f payment.ListFilter) (int, error) {
	n := 0
	for _, p := range s.payments {
		if f.MemberID == "" || p.MemberID == f.MemberID {
			n++
		}
	}
	return n, nil
}

func member(id, name string, status string) domainMember.Member {
	return domainMember.Member{
		ID: id, Name: name, Phone: "021 555 01" + id[1:], IdentityNumber: "ID-" + id,
		JoiningDate: day(2026, 1, 1), Status: status, CreatedAt: day(2026, 1, 1),
	}
}

func paid(id, memberID string, on time.Time, typ, amount string) domainPayment.Payment {
	validUntil, _ := domainPayment.ValidUntilFor(on, typ)
	return domainPayment.Payment{
		ID: id, MemberID: memberID, Amount: decimal.RequireFromString(amount), Type: typ,
		PaymentDate: on, ValidUntil: validUntil, CreatedAt: on,
	}
}

// fixture: m1 active, m2 inactive (45 days), m3 deactivated (108 days), m4 never paid.
func fixture() (*mockMemberStore, *mockPaymentStore) {
	members := &mockMemberStore{members: []domainMember.Member{
		member("m1", "Asha", domainMember.StatusInactive),
		member("m2", "Bilal", domainMember.StatusActive),
		member("m3", "Chen", domainMember.StatusDeactivated),
		member("m4", "Dara", domainMember.StatusInactive),
	}}
	payments := &mockPaymentStore{payments: []domainPayment.Payment{
		paid("p1", "m1", day(2026, 10, 1), domainPayment.TypeMonthly, "1500"),
		paid("p2", "m2", day(2026, 8, 2), domainPayment.TypeMonthly, "900"),
		paid("p3", "m3", day(2026, 6, 1), domainPayment.TypeMonthly, "900"),
		paid("p4", "m1", day(2026, 9, 1), domainPayment.TypeMonthly, "1500"),
	}}
	return members, payments
}
