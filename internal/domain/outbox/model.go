// Package outbox models deliveries to external services that are retried
// until they succeed or run out of attempts.
package outbox

import (
	"errors"
	"time"
)

// Status values for an entry's lifecycle.
const (
	StatusPending  = "pending"
	StatusRetrying = "retrying"
	StatusDone     = "done"
	StatusFailed   = "failed"
)

// ActionFeeReportEmail delivers a rendered fee summary report by email.
const ActionFeeReportEmail = "fee_report_email"

// DefaultMaxAttempts applies when an entry does not set its own limit.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrNotFound        = errors.New("outbox entry not found")
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrTerminal        = errors.New("outbox entry is in a terminal state")
	// ErrUndeliverable marks a failure that no retry can fix, such as a
	// malformed payload.
	ErrUndeliverable = errors.New("undeliverable")
)

// Entry is one queued external action.
type Entry struct {
	ID              string    `json:"id"`
	ActionType      string    `json:"action_type"`
	Payload         string    `json:"-"` // JSON replayed by the executor
	Status          string    `json:"status"`
	Attempts        int       `json:"attempts"`
	MaxAttempts     int       `json:"max_attempts"`
	LastAttemptedAt time.Time `json:"last_attempted_at"`
	CreatedAt       time.Time `json:"created_at"`
	ExternalID      string    `json:"external_id,omitempty"` // provider message ID once delivered
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// Validate checks that the Entry has valid data and fills defaults.
// PRE: Entry struct is populated
// POST: MaxAttempts is positive when nil is returned
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	return nil
}

// CanRetry reports whether another attempt is allowed.
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying) && e.Attempts < e.MaxAttempts
}

// IsTerminal reports whether the entry will never be attempted again.
func (e *Entry) IsTerminal() bool {
	return e.Status == StatusDone || e.Status == StatusFailed
}

// MarkAttempt records the start of an attempt at `at`.
// POST: Attempts incremented, status retrying
func (e *Entry) MarkAttempt(at time.Time) {
	e.Attempts++
	e.LastAttemptedAt = at
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry delivered.
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records err. The entry stays retrying until attempts run out,
// unless err wraps ErrUndeliverable.
// POST: Status is failed iff Attempts >= MaxAttempts or err is undeliverable
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts || errors.Is(err, ErrUndeliverable) {
		e.Status = StatusFailed
	}
}

// NextRetryDelay is 2^attempts * base, capped at max.
func (e *Entry) NextRetryDelay(base, max time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return max
	}
	delay := base * (1 << e.Attempts)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// DueAt returns when the entry may next be attempted.
func (e *Entry) DueAt(base, max time.Duration) time.Time {
	if e.LastAttemptedAt.IsZero() {
		return e.CreatedAt
	}
	return e.LastAttemptedAt.Add(e.NextRetryDelay(base, max))
}
