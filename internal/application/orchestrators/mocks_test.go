package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fitadmin/internal/domain/account"
	"fitadmin/internal/domain/member"
	"fitadmin/internal/domain/outbox"
	"fitadmin/internal/domain/payment"
)

var fixedTime = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func fixedClock() Clock {
	return Clock{Now: func() time.Time { return fixedTime }, Location: time.UTC}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var errStore = errors.New("store unavailable")

// mockMemberStore implements every member store interface used by orchestrators.
type mockMemberStore struct {
	members       map[string]member.Member
	statusUpdates []string
	failSave      bool
	failList      bool
	// ledger, when set, is counted by ReplaceStatus like the payment table.
	ledger        *mockPaymentStore
	// beforeReplace runs ahead of each ReplaceStatus to simulate a concurrent writer.
	beforeReplace func(id string)
}

func newMockMemberStore(ms ...member.Member) *mockMemberStore {
	s := &mockMemberStore{members: make(map[string]member.Member)}
	for _, m := range ms {
		s.members[m.ID] = m
	}
	return s
}

func (s *mockMemberStore) GetByID(_ context.Context, id string) (member.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return member.Member{}, fmt.Errorf("member %s: %w", id, member.ErrNotFound)
	}
	return m, nil
}

func (s *mockMemberStore) Save(_ context.Context, m member.Member) error {
	if s.failSave {
		return errStore
	}
	s.members[m.ID] = m
	return nil
}

func (s *mockMemberStore) UpdateStatus(_ context.Context, id, status string) error {
	m, ok := s.members[id]
	if !ok {
		return member.ErrNotFound
	}
	m.Status = status
	s.members[id] = m
	s.statusUpdates = append(s.statusUpdates, id+"="+status)
	return nil
}

func (s *mockMemberStore) ReplaceStatus(ctx context.Context, c member.StatusChange) (bool, error) {
	if s.beforeReplace != nil {
		s.beforeReplace(c.MemberID)
	}
	if m, ok := s.members[c.MemberID]; !ok || m.Status != c.From {
		return false, nil
	}
	if s.ledger != nil {
		n := 0
		for _, p := range s.ledger.payments {
			if p.MemberID == c.MemberID {
				n++
			}
		}
		if n != c.Payments {
			return false, nil
		}
	}
	return true, s.UpdateStatus(ctx, c.MemberID, c.To)
}

func (s *mockMemberStore) ListAll(_ context.Context) ([]member.Member, error) {
	if s.failList {
		return nil, errStore
	}
	out := make([]member.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// mockPaymentStore implements the payment store interfaces.
type mockPaymentStore struct {
	payments []payment.Payment
	failSave bool
}

func (s *mockPaymentStore) Save(_ context.Context, p payment.Payment) error {
	if s.failSave {
		return errStore
	}
	s.payments = append(s.payments, p)
	return nil
}

func (s *mockPaymentStore) ListByMemberID(_ context.Context, memberID string) ([]payment.Payment, error) {
	var out []payment.Payment
	for _, p := range s.payments {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *mockPaymentStore) ListAll(_ context.Context) ([]payment.Payment, error) {
	return append([]payment.Payment(nil), s.payments...), nil
}

// mockOutboxStore implements OutboxStore.
type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]outbox.Entry
	order   []string
}

func newMockOutboxStore(es ...outbox.Entry) *mockOutboxStore {
	s := &mockOutboxStore{entries: make(map[string]outbox.Entry)}
	for _, e := range es {
		s.Save(context.Background(), e)
	}
	return s
}

func (s *mockOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return outbox.Entry{}, outbox.ErrNotFound
	}
	return e, nil
}

func (s *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.entries[e.ID] = e
	return nil
}

func (s *mockOutboxStore) CountByStatus(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range s.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (s *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Entry
	for _, id := range s.order {
		e := s.entries[id]
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// mockAccountStore implements the account store interfaces.
type mockAccountStore struct {
	accounts map[string]account.Account
}

func newMockAccountStore(as ...account.Account) *mockAccountStore {
	s := &mockAccountStore{accounts: make(map[string]account.Account)}
	for _, a := range as {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *mockAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

func (s *mockAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range s.accounts {
		if a.Email == account.NormalizeEmail(email) {
			return a, nil
		}
	}
	return account.Account{}, fmt.Errorf("account %s: %w", email, account.ErrNotFound)
}

func (s *mockAccountStore) Save(_ context.Context, a account.Account) error {
	s.accounts[a.ID] = a
	return nil
}

func (s *mockAccountStore) CountByRole(_ context.Context, role string) (int, error) {
	n := 0
	for _, a := range s.accounts {
		if role == "" || a.Role == role {
			n++
		}
	}
	return n, nil
}

// recordingMetrics captures metric calls.
type recordingMetrics struct {
	payments  []string
	counts    map[string]int
	refreshes []error
	reports   []error
}

func (m *recordingMetrics) PaymentRecorded(t string, amount float64) {
	m.payments = append(m.payments, fmt.Sprintf("%s:%.2f", t, amount))
}
func (m *recordingMetrics) SetStatusCounts(c map[string]int) { m.counts = c }
func (m *recordingMetrics) StatusRefreshed(err error)        { m.refreshes = append(m.refreshes, err) }
func (m *recordingMetrics) ReportSent(err error)             { m.reports = append(m.reports, err) }

func sampleMember(id, name string) member.Member {
	return member.Member{
		ID:          id,
		Name:        name,
		Phone:       "021 555 0100",
		JoiningDate: day(2026, 1, 5),
		Status:      member.StatusInactive,
		CreatedAt:   day(2026, 1, 5),
	}
}
