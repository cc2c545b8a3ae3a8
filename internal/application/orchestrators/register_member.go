package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fitadmin/internal/domain/calendar"
	"fitadmin/internal/domain/member"
)

// MemberStore defines the member persistence needed by member orchestrators.
type MemberStore interface {
	Save(ctx context.Context, m member.Member) error
	GetByID(ctx context.Context, id string) (member.Member, error)
}

// MemberProfile carries the client-editable member fields. Dates are YYYY-MM-DD.
type MemberProfile struct {
	Name           string          `json:"name" validate:"required,max=100"`
	DOB            string          `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Age            *int            `json:"age" validate:"omitempty,gte=0,lte=150"`
	WeightKg       float64         `json:"weight_kg" validate:"gte=0,lte=500"`
	HeightCm       float64         `json:"height_cm" validate:"gte=0,lte=300"`
	IdentityNumber string          `json:"identity_number" validate:"max=50"`
	Address        string          `json:"address" validate:"max=300"`
	Phone          string          `json:"phone" validate:"required,max=20"`
	WhatsApp       string          `json:"whatsapp" validate:"max=20"`
	MembershipType string          `json:"membership_type" validate:"max=50"`
	MonthlyFee     decimal.Decimal `json:"monthly_fee" validate:"gte=0"`
	JoiningDate    string          `json:"joining_date" validate:"omitempty,datetime=2006-01-02"`
}

// RegisterMemberInput carries input for the orchestrator.
type RegisterMemberInput struct {
	MemberProfile
}

// RegisterMemberDeps holds dependencies for RegisterMember.
type RegisterMemberDeps struct {
	MemberStore MemberStore
	Clock       Clock
}

// ExecuteRegisterMember coordinates member registration.
// PRE: Profile passes tag validation
// POST: Member created with a new ID and status inactive (no payments yet);
// age is derived from dob when dob is given
// INVARIANT: A supplied age that disagrees with dob is rejected
func ExecuteRegisterMember(ctx context.Context, input RegisterMemberInput, deps RegisterMemberDeps) (member.Member, error) {
	if err := checkInput(input, nil); err != nil {
		return member.Member{}, err
	}
	now := deps.Clock.now()
	today := calendar.Day(now, deps.Clock.location())

	m := member.Member{
		ID:        uuid.New().String(),
		Status:    member.StatusInactive,
		CreatedAt: now.UTC(),
	}
	if err := applyProfile(&m, input.MemberProfile, today); err != nil {
		return member.Member{}, err
	}
	if m.JoiningDate.IsZero() {
		m.JoiningDate = today
	}
	if err := m.Validate(); err != nil {
		return member.Member{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := deps.MemberStore.Save(ctx, m); err != nil {
		return member.Member{}, err
	}

	slog.Info("member_event", "event", "member_registered", "member_id", m.ID, "membership_type", m.MembershipType)
	return m, nil
}

// applyProfile copies profile fields onto m and reconciles age with dob as of today.
// A profile without dob and age keeps m's current age.
func applyProfile(m *member.Member, p MemberProfile, today time.Time) error {
	m.Name = p.Name
	m.WeightKg = p.WeightKg
	m.HeightCm = p.HeightCm
	m.IdentityNumber = p.IdentityNumber
	m.Address = p.Address
	m.Phone = p.Phone
	m.WhatsApp = p.WhatsApp
	m.MembershipType = p.MembershipType
	m.MonthlyFee = p.MonthlyFee

	if p.JoiningDate != "" {
		joined, err := calendar.ParseDate(p.JoiningDate)
		if err != nil {
			return fmt.Errorf("%w: joining_date: %w", ErrInvalidInput, err)
		}
		m.JoiningDate = joined
	}

	m.DOB = time.Time{}
	if p.DOB != "" {
		dob, err := calendar.ParseDate(p.DOB)
		if err != nil {
			return fmt.Errorf("%w: dob: %w", ErrInvalidInput, err)
		}
		m.DOB = dob
		m.Age = member.AgeOn(dob, today)
		if p.Age != nil {
			m.Age = *p.Age
		}
		if err := m.CheckAge(today); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil
	}
	if p.Age != nil {
		m.Age = *p.Age
	}
	return nil
}
