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
	"fitadmin/internal/domain/membership"
	"fitadmin/internal/domain/payment"
)

// PaymentStore defines the payment persistence needed by RecordPayment.
type PaymentStore interface {
	Save(ctx context.Context, p payment.Payment) error
	ListByMemberID(ctx context.Context, memberID string) ([]payment.Payment, error)
}

// MemberStatusStore reads members and writes their cached status.
type MemberStatusStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// PaymentMetrics receives a count for every recorded payment.
type PaymentMetrics interface {
	PaymentRecorded(paymentType string, amount float64)
}

// RecordPaymentInput carries input for the orchestrator.
type RecordPaymentInput struct {
	MemberID    string          `json:"member_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentType string          `json:"payment_type" validate:"omitempty,oneof=monthly quarterly yearly Monthly Quarterly Yearly"`
	PaymentDate string          `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	ReceiptRef  string          `json:"receipt_ref" validate:"max=500"`
	Notes       string          `json:"notes" validate:"max=500"`
}

// RecordPaymentDeps holds dependencies for RecordPayment.
type RecordPaymentDeps struct {
	MemberStore  MemberStatusStore
	PaymentStore PaymentStore
	Metrics      PaymentMetrics
	Clock        Clock
}

// RecordPaymentResult is the stored payment plus the member's status after it.
type RecordPaymentResult struct {
	Payment payment.Payment         `json:"payment"`
	Status  membership.StatusResult `json:"status"`
}

// ExecuteRecordPayment records a fee payment and recomputes the member's status.
// PRE: Member exists; amount is positive
// POST: Payment stored with valid_until derived from its type; cached member
// status matches the recomputed status
// INVARIANT: Stored payments are never modified
func ExecuteRecordPayment(ctx context.Context, input RecordPaymentInput, deps RecordPaymentDeps) (RecordPaymentResult, error) {
	if err := checkInput(input, payment.ErrInvalidPayment); err != nil {
		return RecordPaymentResult{}, err
	}

	paymentType := payment.NormalizeType(input.PaymentType)
	if paymentType == "" {
		paymentType = payment.TypeMonthly
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return RecordPaymentResult{}, err
	}

	now := deps.Clock.now()
	loc := deps.Clock.location()
	today := calendar.Day(now, loc)
	paidOn := today
	if input.PaymentDate != "" {
		if paidOn, err = calendar.ParseDate(input.PaymentDate); err != nil {
			return RecordPaymentResult{}, fmt.Errorf("%w: %w: payment_date: %w", ErrInvalidInput, payment.ErrInvalidPayment, err)
		}
		if err := payment.CheckPaymentDate(paidOn, today); err != nil {
			return RecordPaymentResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	validUntil, err := payment.ValidUntilFor(paidOn, paymentType)
	if err != nil {
		return RecordPaymentResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	p := payment.Payment{
		ID:          uuid.New().String(),
		MemberID:    m.ID,
		MemberName:  m.Name,
		Amount:      input.Amount,
		Type:        paymentType,
		PaymentDate: paidOn,
		ValidUntil:  validUntil,
		ReceiptRef:  input.ReceiptRef,
		Notes:       input.Notes,
		CreatedAt:   now.UTC(),
	}
	if err := p.Validate(); err != nil {
		return RecordPaymentResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := deps.PaymentStore.Save(ctx, p); err != nil {
		return RecordPaymentResult{}, err
	}

	status, err := refreshMemberStatus(ctx, m, now, loc, deps)
	if err != nil {
		return RecordPaymentResult{}, err
	}

	if deps.Metrics != nil {
		amount, _ := p.Amount.Float64()
		deps.Metrics.PaymentRecorded(p.Type, amount)
	}
	slog.Info("payment_event", "event", "payment_recorded",
		"payment_id", p.ID, "member_id", m.ID, "payment_type", p.Type,
		"amount", p.Amount.StringFixed(2), "valid_until", calendar.Format(p.ValidUntil))

	return RecordPaymentResult{Payment: p, Status: status}, nil
}

// refreshMemberStatus recomputes m's status from its full history and writes
// it back when it changed.
func refreshMemberStatus(ctx context.Context, m member.Member, now time.Time, loc *time.Location, deps RecordPaymentDeps) (membership.StatusResult, error) {
	history, err := deps.PaymentStore.ListByMemberID(ctx, m.ID)
	if err != nil {
		return membership.StatusResult{}, fmt.Errorf("load payment history: %w", err)
	}
	status := membership.ComputeStatus(m, history, now, loc)
	if status.Status != m.Status {
		if err := deps.MemberStore.UpdateStatus(ctx, m.ID, status.Status); err != nil {
			return membership.StatusResult{}, fmt.Errorf("update member status: %w", err)
		}
		slog.Info("member_event", "event", "status_changed", "member_id", m.ID, "from", m.Status, "to", status.Status)
	}
	return status, nil
}
