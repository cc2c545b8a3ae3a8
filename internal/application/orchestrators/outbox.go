package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fitadmin/internal/adapters/email"
	domain "fitadmin/internal/domain/outbox"
)

// OutboxStore defines the outbox persistence needed by the processor.
type OutboxStore interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the action with the given payload and returns the
	// provider's ID for the delivered item.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor delivers queued external actions with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStore
	executors map[string]ActionExecutor
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store OutboxStore, executors map[string]ActionExecutor) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       time.Now,
		baseDelay: 30 * time.Second,
		maxDelay:  time.Hour,
		batchSize: 10,
	}
}

// ProcessPending attempts every pending entry whose backoff has elapsed.
// PRE: Context is valid
// POST: Attempted entries are saved as done, retrying or failed
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}

	now := p.now()
	for _, entry := range entries {
		if now.Before(entry.DueAt(p.baseDelay, p.maxDelay)) {
			continue
		}
		if _, err := p.attempt(ctx, entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
	}
	return nil
}

// OutboxCounter reports queue depth by status.
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// OutboxMetrics publishes queue depth.
type OutboxMetrics interface {
	SetOutboxCounts(counts map[string]int)
}

// DrainOutbox is one scheduled pass: deliver what is due, then publish how
// many entries remain in each status.
// POST: A counting failure is returned only when delivery succeeded
func DrainOutbox(ctx context.Context, p *OutboxProcessor, counter OutboxCounter, metrics OutboxMetrics) error {
	if err := p.ProcessPending(ctx); err != nil {
		return err
	}
	counts, err := counter.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count outbox entries: %w", err)
	}
	metrics.SetOutboxCounts(counts)
	if counts[domain.StatusFailed] > 0 {
		slog.Warn("outbox_failed_entries", "count", counts[domain.StatusFailed])
	}
	return nil
}

// ProcessSingle attempts one entry immediately, ignoring backoff.
// PRE: entryID is non-empty
// POST: Returns the saved entry; delivery failures are recorded on it, not returned
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.IsTerminal() {
		return entry, fmt.Errorf("entry %s: %w", entryID, domain.ErrTerminal)
	}
	return p.attempt(ctx, entry)
}

func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) (domain.Entry, error) {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkFailed(fmt.Errorf("%w: no executor for action type %q", domain.ErrUndeliverable, entry.ActionType))
		return entry, p.store.Save(ctx, entry)
	}

	entry.MarkAttempt(p.now().UTC())
	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "status", entry.Status, "error", err.Error())
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return entry, p.store.Save(ctx, entry)
}

// ReportMetrics counts fee report deliveries.
type ReportMetrics interface {
	ReportSent(err error)
}

// FeeReportEmailExecutor sends a queued fee report through an email.Sender.
type FeeReportEmailExecutor struct {
	Sender  email.Sender
	Metrics ReportMetrics
}

// Execute sends the email encoded in payload.
// PRE: payload is a JSON email.SendRequest
// POST: Returns the provider message ID. A payload that cannot become a
// valid email fails with domain.ErrUndeliverable.
func (e *FeeReportEmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var req email.SendRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("%w: decode payload: %w", domain.ErrUndeliverable, err)
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUndeliverable, err)
	}
	res, err := e.Sender.Send(ctx, req)
	if e.Metrics != nil {
		e.Metrics.ReportSent(err)
	}
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
