package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fitadmin/internal/domain/calendar"
	"fitadmin/internal/domain/member"
	"fitadmin/internal/domain/payment"
)

// DemoSeedDeps holds the stores needed to seed demo data.
type DemoSeedDeps struct {
	MemberStore interface {
		MemberStore
		MemberLister
	}
	PaymentStore PaymentStore
	Clock        Clock
}

type demoMember struct {
	name, phone, membershipType string
	fee                         int64
	dobYear                     int
	// lastPaidMonthsAgo < 0 means never paid.
	lastPaidMonthsAgo int
	paymentType       string
}

var demoMembers = []demoMember{
	{"Asha Rao", "+64 21 555 0101", "Premium", 1500, 1990, 0, payment.TypeMonthly},
	{"Bilal Khan", "+64 21 555 0102", "Basic", 900, 1985, 1, payment.TypeMonthly},
	{"Chen Wei", "+64 21 555 0103", "Basic", 900, 1998, 2, payment.TypeMonthly},
	{"Dara Ngata", "+64 21 555 0104", "Premium", 1500, 1979, 5, payment.TypeMonthly},
	{"Elena Petrova", "+64 21 555 0105", "Annual", 12000, 1993, 3, payment.TypeYearly},
	{"Farid Haddad", "+64 21 555 0106", "Quarterly", 2600, 2001, 1, payment.TypeQuarterly},
	{"Grace Tupou", "+64 21 555 0107", "Basic", 900, 1988, -1, ""},
}

// ExecuteSeedDemo fills an empty database with a handful of members covering
// every status. It is skipped when any member exists.
// PRE: Only called outside production
// POST: Members and payments saved with status inactive; the next status
// refresh derives their real status
func ExecuteSeedDemo(ctx context.Context, deps DemoSeedDeps) error {
	existing, err := deps.MemberStore.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("seed_demo: list members: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("seed_event", "event", "demo_skip", "reason", "already_seeded")
		return nil
	}

	now := deps.Clock.now()
	loc := deps.Clock.location()
	today := calendar.Day(now, loc)
	payments := 0

	for _, d := range demoMembers {
		dob := today.AddDate(d.dobYear-today.Year(), -3, 0)
		m := member.Member{
			ID:             uuid.New().String(),
			Name:           d.name,
			DOB:            dob,
			Age:            member.AgeOn(dob, today),
			Phone:          d.phone,
			WhatsApp:       d.phone,
			MembershipType: d.membershipType,
			MonthlyFee:     decimal.NewFromInt(d.fee),
			JoiningDate:    calendar.AddMonths(today, -14),
			Status:         member.StatusInactive,
			CreatedAt:      now.UTC(),
		}
		if err := deps.MemberStore.Save(ctx, m); err != nil {
			return fmt.Errorf("seed_demo: save member %s: %w", d.name, err)
		}
		if d.lastPaidMonthsAgo < 0 {
			continue
		}

		months, _ := payment.CoverageMonths(d.paymentType)
		paidOn := calendar.AddMonths(today, -(d.lastPaidMonthsAgo + months))
		validUntil, _ := payment.ValidUntilFor(paidOn, d.paymentType)
		p := payment.Payment{
			ID:          uuid.New().String(),
			MemberID:    m.ID,
			MemberName:  m.Name,
			Amount:      decimal.NewFromInt(d.fee),
			Type:        d.paymentType,
			PaymentDate: paidOn,
			ValidUntil:  validUntil,
			ReceiptRef:  "demo/" + m.ID,
			CreatedAt:   now.UTC(),
		}
		if err := deps.PaymentStore.Save(ctx, p); err != nil {
			return fmt.Errorf("seed_demo: save payment for %s: %w", d.name, err)
		}
		payments++
	}

	slog.Info("seed_event", "event", "demo_seeded", "members", len(demoMembers), "payments", payments)
	return nil
}
