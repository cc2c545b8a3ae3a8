package orchestrators

import (
	"context"
	"testing"

	"fitadmin/internal/domain/member"
)

func TestExecuteSeedDemo_CoversEveryStatus(t *testing.T) {
	members := newMockMemberStore()
	payments := &mockPaymentStore{}
	ctx := context.Background()

	if err := ExecuteSeedDemo(ctx, DemoSeedDeps{MemberStore: members, PaymentStore: payments, Clock: fixedClock()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members.members) != len(demoMembers) {
		t.Fatalf("members = %d, want %d", len(members.members), len(demoMembers))
	}
	for _, p := range payments.payments {
		if err := p.Validate(); err != nil {
			t.Errorf("seeded payment %s invalid: %v", p.ID, err)
		}
	}
	for _, m := range members.members {
		if err := m.Validate(); err != nil {
			t.Errorf("seeded member %s invalid: %v", m.Name, err)
		}
	}

	res, err := ExecuteRefreshStatuses(ctx, RefreshStatusesDeps{Members: members, Payments: payments, Clock: fixedClock()})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{member.StatusActive, member.StatusInactive, member.StatusDeactivated} {
		if res.Counts[s] == 0 {
			t.Errorf("no %s member in demo data: %v", s, res.Counts)
		}
	}

	// A second run is a no-op.
	if err := ExecuteSeedDemo(ctx, DemoSeedDeps{MemberStore: members, PaymentStore: payments, Clock: fixedClock()}); err != nil {
		t.Fatal(err)
	}
	if len(members.members) != len(demoMembers) {
		t.Errorf("members = %d after reseed", len(members.members))
	}
}
