package membership

import (
	"encoding/json"
	"time"

	"fitadmin/internal/domain/calendar"
	"fitadmin/internal/domain/member"
)

// StatusWire is the JSON form of a StatusResult, with dates as YYYY-MM-DD.
type StatusWire struct {
	MemberID        string  `json:"member_id"`
	Status          string  `json:"status"`
	HasPayment      bool    `json:"has_payment"`
	LastPaymentDate *string `json:"last_payment_date"`
	NextDueDate     *string `json:"next_due_date"`
	DaysOverdue     int     `json:"days_overdue"`
	DaysRemaining   int     `json:"days_remaining"`
	AsOf            *string `json:"as_of"`
}

// Wire returns the JSON form of r.
func (r StatusResult) Wire() StatusWire {
	return StatusWire{
		MemberID:        r.MemberID,
		Status:          r.Status,
		HasPayment:      r.HasPayment,
		LastPaymentDate: optionalDate(r.LastPaymentDate),
		NextDueDate:     optionalDate(r.NextDueDate),
		DaysOverdue:     r.DaysOverdue,
		DaysRemaining:   r.DaysRemaining,
		AsOf:            calendar.JSONDate(r.AsOf),
	}
}

// MarshalJSON encodes r as its Wire form.
func (r StatusResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Wire())
}

// MarshalJSON keeps the member nested and the status fields inline.
func (o OverdueMember) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Member member.Member `json:"member"`
		StatusWire
	}{o.Member, o.StatusResult.Wire()})
}

func optionalDate(d *time.Time) *string {
	if d == nil {
		return nil
	}
	return calendar.JSONDate(*d)
}
