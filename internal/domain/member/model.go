package member

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fitadmin/internal/domain/calendar"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength           = 100
	MaxAddressLength        = 300
	MaxPhoneLength          = 20
	MaxIdentityNumberLength = 50
	MaxMembershipTypeLength = 50
)

// Status values. A member's status is derived from payment history and is
// never set directly by a client.
const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusDeactivated = "deactivated"
)

// Domain errors
var (
	ErrNotFound        = errors.New("member not found")
	ErrEmptyName       = errors.New("member name cannot be empty")
	ErrNameTooLong     = errors.New("member name cannot exceed 100 characters")
	ErrEmptyPhone      = errors.New("member phone cannot be empty")
	ErrInvalidPhone    = errors.New("phone numbers may contain only digits, spaces, '+' and '-'")
	ErrAgeMismatch     = errors.New("age does not match date of birth")
	ErrDOBInFuture     = errors.New("date of birth cannot be in the future")
	ErrNegativeMetric  = errors.New("weight and height cannot be negative")
	ErrNegativeFee     = errors.New("monthly fee cannot be negative")
	ErrInvalidStatus   = errors.New("status must be 'active', 'inactive', or 'deactivated'")
	ErrEmptyJoinedDate = errors.New("joining date is required")
)

// Member holds state for the Member concept.
type Member struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	DOB            time.Time       `json:"dob"`
	Age            int             `json:"age"`
	WeightKg       float64         `json:"weight_kg"`
	HeightCm       float64         `json:"height_cm"`
	IdentityNumber string          `json:"identity_number"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	WhatsApp       string          `json:"whatsapp"`
	MembershipType string          `json:"membership_type"`
	MonthlyFee     decimal.Decimal `json:"monthly_fee"`
	JoiningDate    time.Time       `json:"joining_date"`
	Status         string          `json:"status"` // cached; recomputed from payments
	CreatedAt      time.Time       `json:"created_at"`
}

// StatusChange is a guarded write of a member's cached status. It lands only
// while the stored status still equals From and the member still has exactly
// Payments ledger rows, the ones To was derived from.
type StatusChange struct {
	MemberID string
	From     string
	To       string
	Payments int
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Name and phone are non-empty, status is a known value
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if strings.TrimSpace(m.Phone) == "" {
		return ErrEmptyPhone
	}
	if !isPhone(m.Phone) || (m.WhatsApp != "" && !isPhone(m.WhatsApp)) {
		return ErrInvalidPhone
	}
	if len(m.Address) > MaxAddressLength {
		return errors.New("address cannot exceed 300 characters")
	}
	if len(m.IdentityNumber) > MaxIdentityNumberLength {
		return errors.New("identity number cannot exceed 50 characters")
	}
	if len(m.MembershipType) > MaxMembershipTypeLength {
		return errors.New("membership type cannot exceed 50 characters")
	}
	if m.WeightKg < 0 || m.HeightCm < 0 {
		return ErrNegativeMetric
	}
	if m.MonthlyFee.IsNegative() {
		return ErrNegativeFee
	}
	if m.JoiningDate.IsZero() {
		return ErrEmptyJoinedDate
	}
	if !IsValidStatus(m.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// CheckAge verifies Age agrees with DOB as of the given calendar date.
// Members without a DOB are not checked.
// PRE: on is a normalized calendar date
// POST: Returns ErrAgeMismatch or ErrDOBInFuture on violation
func (m *Member) CheckAge(on time.Time) error {
	if m.DOB.IsZero() {
		return nil
	}
	if m.DOB.After(on) {
		return ErrDOBInFuture
	}
	if want := AgeOn(m.DOB, on); m.Age != want {
		return fmt.Errorf("%w: expected %d, got %d", ErrAgeMismatch, want, m.Age)
	}
	return nil
}

// AgeOn returns the age in whole years of someone born on dob, as of `on`.
func AgeOn(dob, on time.Time) int {
	dob = calendar.Normalize(dob)
	on = calendar.Normalize(on)
	age := on.Year() - dob.Year()
	if on.Month() < dob.Month() || (on.Month() == dob.Month() && on.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// IsValidStatus reports whether s is a known status value.
func IsValidStatus(s string) bool {
	return s == StatusActive || s == StatusInactive || s == StatusDeactivated
}

func isPhone(s string) bool {
	if len(s) > MaxPhoneLength {
		return false
	}
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '+' || r == '-':
		default:
			return false
		}
	}
	return digits > 0
}
