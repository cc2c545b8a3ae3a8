package orchestrators

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"fitadmin/internal/adapters/email"
	"fitadmin/internal/domain/calendar"
	"fitadmin/internal/domain/fees"
	"fitadmin/internal/domain/membership"
	"fitadmin/internal/domain/outbox"
	"fitadmin/internal/domain/payment"
)

// ErrNoRecipient is returned when no report address is configured.
var ErrNoRecipient = errors.New("no report recipient configured")

// reportRenderer turns the markdown report into HTML. Raw HTML in member
// names is escaped because WithUnsafe is not set.
var reportRenderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// maxOverdueRows caps the overdue table in the email.
const maxOverdueRows = 50

// EmailFeeReportInput carries input for the orchestrator.
type EmailFeeReportInput struct {
	// To overrides the configured recipient.
	To string `json:"to" validate:"omitempty,email"`
}

// EmailFeeReportDeps holds dependencies for EmailFeeReport.
type EmailFeeReportDeps struct {
	Members     MemberLister
	Payments    PaymentLister
	OutboxStore OutboxStore
	Processor   *OutboxProcessor
	DefaultTo   string
	From        string
	Clock       Clock
}

// ExecuteEmailFeeReport renders the fee summary and overdue list, queues the
// email in the outbox and makes the first delivery attempt.
// PRE: A recipient is configured or supplied
// POST: Returns the outbox entry; a failed first attempt leaves it retrying
func ExecuteEmailFeeReport(ctx context.Context, input EmailFeeReportInput, deps EmailFeeReportDeps) (outbox.Entry, error) {
	if err := checkInput(input, nil); err != nil {
		return outbox.Entry{}, err
	}
	to := input.To
	if to == "" {
		to = deps.DefaultTo
	}
	if to == "" {
		return outbox.Entry{}, fmt.Errorf("%w: %w", ErrInvalidInput, ErrNoRecipient)
	}

	members, err := deps.Members.ListAll(ctx)
	if err != nil {
		return outbox.Entry{}, fmt.Errorf("list members: %w", err)
	}
	payments, err := deps.Payments.ListAll(ctx)
	if err != nil {
		return outbox.Entry{}, fmt.Errorf("list payments: %w", err)
	}

	now, loc := deps.Clock.now(), deps.Clock.location()
	summary := fees.ComputeSummary(payments, len(members), now, loc)
	overdue := membership.Overdue(members, membership.ComputeAll(members, payments, now, loc), 1)

	md := FeeReportMarkdown(summary, overdue)
	var html bytes.Buffer
	if err := reportRenderer.Convert([]byte(md), &html); err != nil {
		return outbox.Entry{}, fmt.Errorf("render report: %w", err)
	}

	id := uuid.New().String()
	payload, err := json.Marshal(email.SendRequest{
		To:             []string{to},
		From:           deps.From,
		Subject:        "Fee summary " + calendar.Format(summary.AsOf),
		HTML:           html.String(),
		Text:           md,
		Kind:           outbox.ActionFeeReportEmail,
		IdempotencyKey: id,
	})
	if err != nil {
		return outbox.Entry{}, err
	}

	entry := outbox.Entry{
		ID:         id,
		ActionType: outbox.ActionFeeReportEmail,
		Payload:    string(payload),
		CreatedAt:  now.UTC(),
	}
	if err := entry.Validate(); err != nil {
		return outbox.Entry{}, err
	}
	if err := deps.OutboxStore.Save(ctx, entry); err != nil {
		return outbox.Entry{}, fmt.Errorf("queue report: %w", err)
	}
	slog.Info("report_event", "event", "fee_report_queued", "entry_id", entry.ID, "overdue", len(overdue))

	if deps.Processor == nil {
		return entry, nil
	}
	return deps.Processor.ProcessSingle(ctx, entry.ID)
}

// FeeReportMarkdown formats the summary and overdue members as markdown.
func FeeReportMarkdown(s fees.Summary, overdue []membership.OverdueMember) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Fee summary, %s\n\n", calendar.Format(s.AsOf))
	b.WriteString("| Period | Payments | Collected |\n|---|---:|---:|\n")
	fmt.Fprintf(&b, "| This month | %d | %s |\n", s.MonthlyCount, s.MonthlyTotal.StringFixed(2))
	fmt.Fprintf(&b, "| Last 3 months (from %s) | %d | %s |\n", calendar.Format(s.QuarterStart), s.QuarterlyCount, s.QuarterlyTotal.StringFixed(2))
	fmt.Fprintf(&b, "| This year | %d | %s |\n\n", s.YearlyCount, s.YearlyTotal.StringFixed(2))

	b.WriteString("This year by payment type:\n\n")
	for _, t := range payment.ValidTypes {
		fmt.Fprintf(&b, "- %s: %s\n", t, s.YearlyByType[t].StringFixed(2))
	}
	fmt.Fprintf(&b, "\nMembers: %d. Payments on record: %d.\n\n", s.TotalMembers, s.TotalPayments)

	b.WriteString("## Overdue members\n\n")
	if len(overdue) == 0 {
		b.WriteString("Nobody is overdue.\n")
		return b.String()
	}
	b.WriteString("| Name | Phone | Status | Due | Days overdue |\n|---|---|---|---|---:|\n")
	for i, o := range overdue {
		if i == maxOverdueRows {
			fmt.Fprintf(&b, "\n%d more not shown.\n", len(overdue)-maxOverdueRows)
			break
		}
		due := "never paid"
		if o.NextDueDate != nil {
			due = calendar.Format(*o.NextDueDate)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d |\n",
			tableCell(o.Member.Name), tableCell(o.Member.Phone), o.Status, due, o.DaysOverdue)
	}
	return b.String()
}

func tableCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
