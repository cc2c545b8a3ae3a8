package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fitadmin/internal/domain/member"
	"fitadmin/internal/domain/membership"
	"fitadmin/internal/domain/payment"
)

// MemberLister lists every member and writes cached statuses.
type MemberLister interface {
	ListAll(ctx context.Context) ([]member.Member, error)
	// ReplaceStatus applies a change only if nothing moved since it was derived.
	ReplaceStatus(ctx context.Context, c member.StatusChange) (bool, error)
}

// PaymentLister lists the whole payment ledger.
type PaymentLister interface {
	ListAll(ctx context.Context) ([]payment.Payment, error)
}

// StatusMetrics receives the outcome of each refresh.
type StatusMetrics interface {
	SetStatusCounts(counts map[string]int)
	StatusRefreshed(err error)
}

// RefreshStatusesDeps holds dependencies for RefreshStatuses.
type RefreshStatusesDeps struct {
	Members  MemberLister
	Payments PaymentLister
	Metrics  StatusMetrics
	Clock    Clock
}

// RefreshResult summarises one refresh run.
type RefreshResult struct {
	Members int            `json:"members"`
	Changed int            `json:"changed"`
	Skipped int            `json:"skipped"`
	Counts  map[string]int `json:"counts"`
}

// ExecuteRefreshStatuses recomputes every member's status from one snapshot
// of the ledger and persists the ones that changed. A write only lands while
// the member's stored status and payment count still match the snapshot; a
// member paid or rewritten in the meantime is skipped.
// POST: Every cached status equals the derived status as of now, or a fresher one
// INVARIANT: Members are never created or deleted
func ExecuteRefreshStatuses(ctx context.Context, deps RefreshStatusesDeps) (RefreshResult, error) {
	res, err := refreshStatuses(ctx, deps)
	if deps.Metrics != nil {
		deps.Metrics.StatusRefreshed(err)
		if err == nil {
			deps.Metrics.SetStatusCounts(res.Counts)
		}
	}
	if err != nil {
		return RefreshResult{}, err
	}
	slog.Info("status_refresh_complete", "members", res.Members, "changed", res.Changed, "skipped", res.Skipped,
		"active", res.Counts[member.StatusActive],
		"inactive", res.Counts[member.StatusInactive],
		"deactivated", res.Counts[member.StatusDeactivated])
	return res, nil
}

func refreshStatuses(ctx context.Context, deps RefreshStatusesDeps) (RefreshResult, error) {
	members, err := deps.Members.ListAll(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("list members: %w", err)
	}
	payments, err := deps.Payments.ListAll(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("list payments: %w", err)
	}

	results := membership.ComputeAll(members, payments, deps.Clock.now(), deps.Clock.location())
	res := RefreshResult{Members: len(members), Counts: membership.CountByStatus(results)}
	paymentCounts := make(map[string]int, len(members))
	for _, p := range payments {
		paymentCounts[p.MemberID]++
	}
	for _, m := range members {
		next := results[m.ID].Status
		if next == m.Status {
			continue
		}
		if err := ctx.Err(); err != nil {
			return RefreshResult{}, err
		}
		ok, err := deps.Members.ReplaceStatus(ctx, member.StatusChange{
			MemberID: m.ID, From: m.Status, To: next, Payments: paymentCounts[m.ID],
		})
		if err != nil {
			return RefreshResult{}, fmt.Errorf("update status for %s: %w", m.ID, err)
		}
		if !ok {
			res.Skipped++
			slog.Info("member_event", "event", "status_refresh_skipped", "member_id", m.ID, "from", m.Status)
			continue
		}
		res.Changed++
		slog.Info("member_event", "event", "status_changed", "member_id", m.ID, "from", m.Status, "to", next)
	}
	return res, nil
}

// SchedulerConfig holds configuration for a background job.
type SchedulerConfig struct {
	Name     string
	Interval time.Duration
	Enabled  bool
	// RunAtStart runs the job once before the first tick.
	RunAtStart bool
}

// StartScheduler runs job every cfg.Interval until ctx is cancelled or the
// returned stop function is called.
// PRE: Interval > 0 when enabled
// POST: Goroutine started, returns cancel function
func StartScheduler(ctx context.Context, cfg SchedulerConfig, job func(context.Context) error) func() {
	if !cfg.Enabled || cfg.Interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	run := func() {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			slog.Error("scheduler_job_error", "job", cfg.Name, "error", err)
		}
	}

	go func() {
		if cfg.RunAtStart {
			run()
		}
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("scheduler_stopped", "job", cfg.Name)
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	return cancel
}
