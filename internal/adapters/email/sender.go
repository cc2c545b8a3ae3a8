// Package email delivers outgoing mail such as the fee summary report.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Errors returned before a request reaches a provider.
var (
	ErrNoRecipients     = errors.New("email has no recipients")
	ErrInvalidRecipient = errors.New("invalid recipient address")
	ErrEmptySubject     = errors.New("email subject is required")
)

// SendRequest is one outgoing email. It is stored as JSON in the outbox,
// so field names are part of the queued payload format.
type SendRequest struct {
	To      []string `json:"to"`
	From    string   `json:"from,omitempty"` // empty uses the sender's default
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
	// Kind labels the report for provider side filtering, e.g. "fee_summary".
	Kind string `json:"kind,omitempty"`
	// IdempotencyKey makes a retried send of the same outbox entry a no-op
	// at the provider.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Validate checks the request before it is handed to a provider.
// POST: Returns ErrNoRecipients, ErrInvalidRecipient or ErrEmptySubject
func (r SendRequest) Validate() error {
	if len(r.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range r.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidRecipient, to)
		}
	}
	if strings.TrimSpace(r.Subject) == "" {
		return ErrEmptySubject
	}
	return nil
}

// SendResult is what the provider reported back.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
