package member

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"fitadmin/internal/domain/calendar"
)

// Wire is the JSON form of a Member. Calendar dates are YYYY-MM-DD and a
// missing date of birth is null; CreatedAt stays an RFC 3339 instant.
type Wire struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	DOB            *string         `json:"dob"`
	Age            int             `json:"age"`
	WeightKg       float64         `json:"weight_kg"`
	HeightCm       float64         `json:"height_cm"`
	IdentityNumber string          `json:"identity_number"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	WhatsApp       string          `json:"whatsapp"`
	MembershipType string          `json:"membership_type"`
	MonthlyFee     decimal.Decimal `json:"monthly_fee"`
	JoiningDate    *string         `json:"joining_date"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Wire returns the JSON form of m. Types embedding a Member encode through it
// so that their own fields are not hidden by MarshalJSON.
func (m Member) Wire() Wire {
	return Wire{
		ID:             m.ID,
		Name:           m.Name,
		DOB:            calendar.JSONDate(m.DOB),
		Age:            m.Age,
		WeightKg:       m.WeightKg,
		HeightCm:       m.HeightCm,
		IdentityNumber: m.IdentityNumber,
		Address:        m.Address,
		Phone:          m.Phone,
		WhatsApp:       m.WhatsApp,
		MembershipType: m.MembershipType,
		MonthlyFee:     m.MonthlyFee,
		JoiningDate:    calendar.JSONDate(m.JoiningDate),
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
	}
}

// MarshalJSON encodes m as its Wire form.
func (m Member) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Wire())
}
