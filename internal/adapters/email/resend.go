package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers reports through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a ResendSender.
// PRE: apiKey is a Resend API key; from is the default sender address
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send validates req and hands it to Resend. A request carrying an
// IdempotencyKey is sent with that key so a retried outbox entry is
// delivered at most once.
// POST: Returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := req.Validate(); err != nil {
		return SendResult{}, err
	}
	params := s.params(req)

	var (
		sent *resend.SendEmailResponse
		err  error
	)
	if req.IdempotencyKey != "" {
		sent, err = s.client.Emails.SendWithOptions(ctx, params, &resend.SendEmailOptions{IdempotencyKey: req.IdempotencyKey})
	} else {
		sent, err = s.client.Emails.SendWithContext(ctx, params)
	}
	if err != nil {
		slog.Error("report_email_failed", "provider", "resend", "kind", req.Kind, "to", req.To, "error", err)
		return SendResult{}, fmt.Errorf("resend: %w", err)
	}

	slog.Info("report_email_sent", "provider", "resend", "kind", req.Kind, "message_id", sent.Id, "to", req.To)
	return SendResult{MessageID: sent.Id, SentAt: time.Now().UTC()}, nil
}

func (s *ResendSender) params(req SendRequest) *resend.SendEmailRequest {
	from := req.From
	if from == "" {
		from = s.from
	}
	params := &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
		Text:    req.Text,
		ReplyTo: req.ReplyTo,
	}
	if tag := tagValue(req.Kind); tag != "" {
		params.Tags = []resend.Tag{{Name: "report", Value: tag}}
	}
	return params
}

// tagValue keeps the characters Resend accepts in tag values.
func tagValue(kind string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, kind)
}
