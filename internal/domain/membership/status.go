// Package membership derives a member's status from their payment history.
package membership

import (
	"sort"
	"time"

	"fitadmin/internal/domain/calendar"
	"fitadmin/internal/domain/member"
	"fitadmin/internal/domain/payment"
)

// DeactivationThresholdDays is the longest a member may be overdue and still
// count as inactive rather than deactivated.
const DeactivationThresholdDays = 90

// StatusResult is the derived membership status of one member on one day.
type StatusResult struct {
	MemberID        string     `json:"member_id"`
	Status          string     `json:"status"`
	HasPayment      bool       `json:"has_payment"`
	LastPaymentDate *time.Time `json:"last_payment_date"`
	NextDueDate     *time.Time `json:"next_due_date"`
	DaysOverdue     int        `json:"days_overdue"`
	DaysRemaining   int        `json:"days_remaining"`
	AsOf            time.Time  `json:"as_of"`
}

// StatusForOverdue maps a number of overdue days to a status.
func StatusForOverdue(days int) string {
	switch {
	case days <= 0:
		return member.StatusActive
	case days <= DeactivationThresholdDays:
		return member.StatusInactive
	default:
		return member.StatusDeactivated
	}
}

// ComputeStatus derives the status of m from its payments as of now.
// Payments that belong to other members are ignored. A member that has never
// paid is inactive.
// PRE: loc is the configured business zone (nil means UTC)
// POST: Returns a result whose Status is always one of the member status values
// INVARIANT: Pure; identical inputs give identical results
func ComputeStatus(m member.Member, payments []payment.Payment, now time.Time, loc *time.Location) StatusResult {
	today := calendar.Day(now, loc)
	result := StatusResult{
		MemberID: m.ID,
		Status:   member.StatusInactive,
		AsOf:     today,
	}

	governing, latest, ok := selectPayments(m.ID, payments)
	if !ok {
		return result
	}

	validUntil := calendar.Normalize(governing.ValidUntil)
	lastPaid := calendar.Normalize(latest.PaymentDate)
	result.HasPayment = true
	result.NextDueDate = &validUntil
	result.LastPaymentDate = &lastPaid

	overdue := calendar.DaysBetween(validUntil, today)
	if overdue < 0 {
		result.DaysRemaining = -overdue
		overdue = 0
	}
	result.DaysOverdue = overdue
	result.Status = StatusForOverdue(overdue)
	return result
}

// selectPayments finds the governing payment (latest valid_until) and the
// most recent payment by payment date among memberID's payments.
func selectPayments(memberID string, payments []payment.Payment) (governing, latest payment.Payment, ok bool) {
	for _, p := range payments {
		if p.MemberID != memberID {
			continue
		}
		if !ok {
			governing, latest, ok = p, p, true
			continue
		}
		if coversLater(p, governing) {
			governing = p
		}
		if paidLater(p, latest) {
			latest = p
		}
	}
	return governing, latest, ok
}

// coversLater orders by valid_until, then payment_date, then created_at.
func coversLater(a, b payment.Payment) bool {
	if !a.ValidUntil.Equal(b.ValidUntil) {
		return a.ValidUntil.After(b.ValidUntil)
	}
	return paidLater(a, b)
}

func paidLater(a, b payment.Payment) bool {
	if !a.PaymentDate.Equal(b.PaymentDate) {
		return a.PaymentDate.After(b.PaymentDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// GroupByMember indexes payments by member ID, preserving input order.
func GroupByMember(payments []payment.Payment) map[string][]payment.Payment {
	byMember := make(map[string][]payment.Payment)
	for _, p := range payments {
		byMember[p.MemberID] = append(byMember[p.MemberID], p)
	}
	return byMember
}

// ComputeAll derives the status of every member from one snapshot of the
// payment ledger, keyed by member ID.
// INVARIANT: Pure; each result equals ComputeStatus for that member alone
func ComputeAll(members []member.Member, payments []payment.Payment, now time.Time, loc *time.Location) map[string]StatusResult {
	byMember := GroupByMember(payments)
	results := make(map[string]StatusResult, len(members))
	for _, m := range members {
		results[m.ID] = ComputeStatus(m, byMember[m.ID], now, loc)
	}
	return results
}

// CountByStatus tallies results per status. Every status appears, possibly with zero.
func CountByStatus(results map[string]StatusResult) map[string]int {
	counts := map[string]int{
		member.StatusActive:      0,
		member.StatusInactive:    0,
		member.StatusDeactivated: 0,
	}
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// OverdueMember pairs a member with its derived status.
type OverdueMember struct {
	Member member.Member `json:"member"`
	StatusResult
}

// Overdue returns members at least minDays overdue, most overdue first.
// Members without payments are listed last since they have no due date.
// PRE: results holds an entry for every member
func Overdue(members []member.Member, results map[string]StatusResult, minDays int) []OverdueMember {
	if minDays < 1 {
		minDays = 1
	}
	var out []OverdueMember
	for _, m := range members {
		r := results[m.ID]
		if r.Status == member.StatusActive {
			continue
		}
		if r.HasPayment && r.DaysOverdue < minDays {
			continue
		}
		out = append(out, OverdueMember{Member: m, StatusResult: r})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HasPayment != b.HasPayment {
			return a.HasPayment
		}
		if a.DaysOverdue != b.DaysOverdue {
			return a.DaysOverdue > b.DaysOverdue
		}
		return a.Member.Name < b.Member.Name
	})
	return out
}
