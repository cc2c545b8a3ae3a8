package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fitadmin/internal/domain/calendar"
)

// Payment type constants.
const (
	TypeMonthly   = "monthly"
	TypeQuarterly = "quarterly"
	TypeYearly    = "yearly"
)

// Max length constants for user-editable fields.
const (
	MaxNotesLength      = 500
	MaxReceiptRefLength = 500
)

// Payment dates must fall on or after EarliestPaymentDate and no more than
// MaxAdvanceYears after the day they are recorded.
var EarliestPaymentDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// MaxAdvanceYears is how far ahead of today a payment may be dated.
const MaxAdvanceYears = 1

// ValidTypes contains all valid payment types.
var ValidTypes = []string{TypeMonthly, TypeQuarterly, TypeYearly}

// Domain errors
var ErrInvalidPayment = errors.New("invalid payment")

// Payment is a fee collection record. It is immutable once saved.
type Payment struct {
	ID          string          `json:"id"`
	MemberID    string          `json:"member_id"`
	MemberName  string          `json:"member_name"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"payment_type"`
	PaymentDate time.Time       `json:"payment_date"`
	ValidUntil  time.Time       `json:"valid_until"`
	ReceiptRef  string          `json:"receipt_ref,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NormalizeType lowercases a payment type so "Monthly" and "monthly" are equal.
func NormalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// CoverageMonths returns how many calendar months a payment type covers.
// PRE: t is normalized
// POST: Returns an error wrapping ErrInvalidPayment for unknown types
func CoverageMonths(t string) (int, error) {
	switch t {
	case TypeMonthly:
		return 1, nil
	case TypeQuarterly:
		return 3, nil
	case TypeYearly:
		return 12, nil
	}
	return 0, fmt.Errorf("%w: payment type must be one of %s", ErrInvalidPayment, strings.Join(ValidTypes, ", "))
}

// ValidUntilFor derives the last covered date for a payment made on paymentDate.
// POST: Returns an error wrapping ErrInvalidPayment when the result cannot be
// written as a YYYY-MM-DD date
func ValidUntilFor(paymentDate time.Time, t string) (time.Time, error) {
	months, err := CoverageMonths(t)
	if err != nil {
		return time.Time{}, err
	}
	until := calendar.AddMonths(paymentDate, months)
	if until.Year() > calendar.MaxYear {
		return time.Time{}, fmt.Errorf("%w: valid_until %d-%02d-%02d is past year %d",
			ErrInvalidPayment, until.Year(), until.Month(), until.Day(), calendar.MaxYear)
	}
	return until, nil
}

// CheckPaymentDate rejects a payment date before EarliestPaymentDate or more
// than MaxAdvanceYears after today.
// PRE: today is a calendar date in the business zone
func CheckPaymentDate(paid, today time.Time) error {
	paid = calendar.Normalize(paid)
	if paid.Before(EarliestPaymentDate) {
		return fmt.Errorf("%w: payment date cannot be before %s", ErrInvalidPayment, calendar.Format(EarliestPaymentDate))
	}
	if latest := calendar.Normalize(today).AddDate(MaxAdvanceYears, 0, 0); paid.After(latest) {
		return fmt.Errorf("%w: payment date cannot be after %s", ErrInvalidPayment, calendar.Format(latest))
	}
	return nil
}

// Validate checks if the Payment has valid data.
// PRE: Payment struct is populated
// POST: Returns an error wrapping ErrInvalidPayment if validation fails
// INVARIANT: ValidUntil always equals ValidUntilFor(PaymentDate, Type)
func (p *Payment) Validate() error {
	if strings.TrimSpace(p.MemberID) == "" {
		return fmt.Errorf("%w: member reference is required", ErrInvalidPayment)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	if p.PaymentDate.IsZero() {
		return fmt.Errorf("%w: payment date is required", ErrInvalidPayment)
	}
	if p.PaymentDate.Before(EarliestPaymentDate) {
		return fmt.Errorf("%w: payment date cannot be before %s", ErrInvalidPayment, calendar.Format(EarliestPaymentDate))
	}
	want, err := ValidUntilFor(p.PaymentDate, p.Type)
	if err != nil {
		return err
	}
	if !p.ValidUntil.Equal(want) {
		return fmt.Errorf("%w: valid_until must be %s", ErrInvalidPayment, calendar.Format(want))
	}
	if len(p.Notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes cannot exceed 500 characters", ErrInvalidPayment)
	}
	if len(p.ReceiptRef) > MaxReceiptRefLength {
		return fmt.Errorf("%w: receipt reference cannot exceed 500 characters", ErrInvalidPayment)
	}
	return nil
}

// MarshalJSON encodes payment and coverage dates as YYYY-MM-DD.
func (p Payment) MarshalJSON() ([]byte, error) {
	type plain Payment
	return json.Marshal(struct {
		plain
		PaymentDate *string `json:"payment_date"`
		ValidUntil  *string `json:"valid_until"`
	}{plain(p), calendar.JSONDate(p.PaymentDate), calendar.JSONDate(p.ValidUntil)})
}
