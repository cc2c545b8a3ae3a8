// Package audit records who changed what in the admin backend.
package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category groups events by the kind of resource they touch.
type Category string

const (
	CategoryAccount Category = "account"
	CategoryMember  Category = "member"
	CategoryPayment Category = "payment"
	CategoryReport  Category = "report"
)

// Action is what happened to the resource.
type Action string

const (
	ActionLogin          Action = "login"
	ActionLoginFailed    Action = "login_failed"
	ActionLogout         Action = "logout"
	ActionPasswordChange Action = "password_change"
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionSend           Action = "send"
	ActionRetry          Action = "retry"
	ActionExport         Action = "export"
)

var validCategories = map[Category]bool{
	CategoryAccount: true,
	CategoryMember:  true,
	CategoryPayment: true,
	CategoryReport:  true,
}

// Domain errors.
var (
	ErrNotFound        = errors.New("audit event not found")
	ErrInvalidCategory = errors.New("invalid audit category")
	ErrEmptyAction     = errors.New("audit action is required")
)

// Event is one entry in the audit trail. Events are append-only.
type Event struct {
	ID           string    `json:"id"`
	At           time.Time `json:"at"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	ActorID      string    `json:"actor_id"`
	ActorEmail   string    `json:"actor_email"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
}

// NewEvent creates an event with a fresh ID.
// PRE: at is the instant the action completed
// POST: Returns an Event with ID and At set
func NewEvent(at time.Time, category Category, action Action) Event {
	return Event{
		ID:       uuid.New().String(),
		At:       at.UTC(),
		Category: category,
		Action:   action,
	}
}

// By sets the acting account.
func (e Event) By(actorID, actorEmail string) Event {
	e.ActorID = actorID
	e.ActorEmail = actorEmail
	return e
}

// On sets the resource the action applied to.
func (e Event) On(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithSummary sets a short human readable description.
func (e Event) WithSummary(summary string) Event {
	e.Summary = summary
	return e
}

// From sets the client address.
func (e Event) From(ip string) Event {
	e.IPAddress = ip
	return e
}

// Validate checks that the Event has valid data.
// PRE: Event struct is populated
// POST: Returns nil if valid
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("audit event id is required")
	}
	if e.At.IsZero() {
		return errors.New("audit event time is required")
	}
	if !IsValidCategory(e.Category) {
		return ErrInvalidCategory
	}
	if e.Action == "" {
		return ErrEmptyAction
	}
	return nil
}

// IsValidCategory reports whether c is a known category.
func IsValidCategory(c Category) bool {
	return validCategories[c]
}
