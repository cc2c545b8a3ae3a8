// Package export bundles everything held about a member into one document.
package export

import (
	"time"

	"github.com/shopspring/decimal"

	"fitadmin/internal/domain/calendar"
	"fitadmin/internal/domain/member"
	"fitadmin/internal/domain/membership"
	"fitadmin/internal/domain/payment"
)

// MemberData is everything held about one member.
type MemberData struct {
	ExportedAt time.Time               `json:"exported_at"`
	Member     member.Member           `json:"member"`
	Status     membership.StatusResult `json:"status"`
	Payments   []payment.Payment       `json:"payments"`
	TotalPaid  decimal.Decimal         `json:"total_paid"`
}

// NewMemberData assembles an export.
// POST: Payments is non-nil; TotalPaid is the sum of their amounts
func NewMemberData(at time.Time, m member.Member, status membership.StatusResult, payments []payment.Payment) MemberData {
	if payments == nil {
		payments = []payment.Payment{}
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return MemberData{
		ExportedAt: at.UTC(),
		Member:     m,
		Status:     status,
		Payments:   payments,
		TotalPaid:  total,
	}
}

// Filename names the download, e.g. "member-<id>-2026-10-17.json".
func (d MemberData) Filename() string {
	return "member-" + d.Member.ID + "-" + calendar.Format(calendar.Normalize(d.ExportedAt)) + ".json"
}
