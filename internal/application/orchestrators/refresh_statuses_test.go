package orchestrators

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fitadmin/internal/domain/member"
	"fitadmin/internal/domain/payment"
)

func monthlyPayment(id, memberID string, paidOn time.Time) payment.Payment {
	validUntil, _ := payment.ValidUntilFor(paidOn, payment.TypeMonthly)
	return payment.Payment{
		ID: id, MemberID: memberID, Amount: decimal.NewFromInt(1000), Type: payment.TypeMonthly,
		PaymentDate: paidOn, ValidUntil: validUntil, CreatedAt: paidOn,
	}
}

// TestExecuteRefreshStatuses_PersistsTransitions verifies only changed statuses are written.
func TestExecuteRefreshStatuses_PersistsTransitions(t *testing.T) {
	stale := sampleMember("m1", "Asha")
	stale.Status = member.StatusActive // lapsed 45 days ago
	current := sampleMember("m2", "Bilal")
	current.Status = member.StatusActive
	neverPaid := sampleMember("m3", "Chen")
	members := newMockMemberStore(stale, current, neverPaid)
	payments := &mockPaymentStore{payments: []payment.Payment{
		monthlyPayment("p1", "m1", day(2026, 8, 2)),
		monthlyPayment("p2", "m2", day(2026, 10, 1)),
	}}
	metrics := &recordingMetrics{}

	res, err := ExecuteRefreshStatuses(context.Background(), RefreshStatusesDeps{
		Members: members, Payments: payments, Metrics: metrics, Clock: fixedClock(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Members != 3 || res.Changed != 1 {
		t.Errorf("result = %+v, want 3 members 1 changed", res)
	}
	if got := members.statusUpdates; len(got) != 1 || got[0] != "m1=inactive" {
		t.Errorf("status updates = %v", got)
	}
	want := map[string]int{member.StatusActive: 1, member.StatusInactive: 2, member.StatusDeactivated: 0}
	for k, v := range want {
		if metrics.counts[k] != v {
			t.Errorf("counts[%s] = %d, want %d", k, metrics.counts[k], v)
		}
	}
	if len(metrics.refreshes) != 1 || metrics.refreshes[0] != nil {
		t.Errorf("refreshes = %v", metrics.refreshes)
	}
}

func TestExecuteRefreshStatuses_Idempotent(t *testing.T) {
	members := newMockMemberStore(sampleMember("m1", "Asha"))
	payments := &mockPaymentStore{payments: []payment.Payment{monthlyPayment("p1", "m1", day(2026, 1, 1))}}
	deps := RefreshStatusesDeps{Members: members, Payments: payments, Clock: fixedClock()}

	first, err := ExecuteRefreshStatuses(context.Background(), deps)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ExecuteRefreshStatuses(context.Background(), deps)
	if err != nil {
		t.Fatal(err)
	}
	if first.Changed != 1 || second.Changed != 0 {
		t.Errorf("changed = %d then %d, want 1 then 0", first.Changed, second.Changed)
	}
	if members.members["m1"].Status != member.StatusDeactivated {
		t.Errorf("status = %q", members.members["m1"].Status)
	}
}

// TestExecuteRefreshStatuses_KeepsFresherStatus verifies a status written after
// the snapshot was read is not rolled back.
func TestExecuteRefreshStatuses_KeepsFresherStatus(t *testing.T) {
	tests := []struct {
		name       string
		concurrent func(members *mockMemberStore, payments *mockPaymentStore)
		want       string
	}{
		{
			name: "status rewritten",
			concurrent: func(members *mockMemberStore, _ *mockPaymentStore) {
				m := members.members["m1"]
				m.Status = member.StatusDeactivated
				members.members["m1"] = m
			},
			want: member.StatusDeactivated,
		},
		{
			// The payment writes the same status the snapshot read.
			name: "renewed while still cached active",
			concurrent: func(_ *mockMemberStore, payments *mockPaymentStore) {
				payments.payments = append(payments.payments, monthlyPayment("p2", "m1", day(2026, 10, 17)))
			},
			want: member.StatusActive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lapsed := sampleMember("m1", "Asha")
			lapsed.Status = member.StatusActive
			members := newMockMemberStore(lapsed)
			payments := &mockPaymentStore{payments: []payment.Payment{monthlyPayment("p1", "m1", day(2026, 8, 2))}}
			members.ledger = payments
			members.beforeReplace = func(string) { tt.concurrent(members, payments) }

			res, err := ExecuteRefreshStatuses(context.Background(), RefreshStatusesDeps{
				Members: members, Payments: payments, Clock: fixedClock(),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Changed != 0 || res.Skipped != 1 {
				t.Errorf("result = %+v, want 0 changed 1 skipped", res)
			}
			if got := members.members["m1"].Status; got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
			if len(members.statusUpdates) != 0 {
				t.Errorf("status updates = %v, want none", members.statusUpdates)
			}
		})
	}
}

func TestExecuteRefreshStatuses_ListError(t *testing.T) {
	members := newMockMemberStore()
	members.failList = true
	metrics := &recordingMetrics{}

	_, err := ExecuteRefreshStatuses(context.Background(), RefreshStatusesDeps{
		Members: members, Payments: &mockPaymentStore{}, Metrics: metrics, Clock: fixedClock(),
	})
	if !errors.Is(err, errStore) {
		t.Fatalf("err = %v, want store error", err)
	}
	if len(metrics.refreshes) != 1 || metrics.refreshes[0] == nil {
		t.Errorf("expected a failed refresh to be counted, got %v", metrics.refreshes)
	}
	if metrics.counts != nil {
		t.Error("status gauge must not change on failure")
	}
}

func TestStartScheduler_RunsAtStartAndStops(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 10)
	stop := StartScheduler(context.Background(), SchedulerConfig{
		Name: "test", Interval: 10 * time.Millisecond, Enabled: true, RunAtStart: true,
	}, func(context.Context) error {
		runs.Add(1)
		done <- struct{}{}
		return nil
	})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	}
	stop()
	if runs.Load() < 2 {
		t.Errorf("runs = %d, want >= 2", runs.Load())
	}
}

func TestStartScheduler_Disabled(t *testing.T) {
	called := false
	stop := StartScheduler(context.Background(), SchedulerConfig{Interval: time.Millisecond}, func(context.Context) error {
		called = true
		return nil
	})
	stop()
	time.Sleep(5 * time.Millisecond)
	if called {
		t.Error("disabled scheduler must not run the job")
	}
}
