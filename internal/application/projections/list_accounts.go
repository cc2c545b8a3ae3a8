package projections

import (
	"context"
	"time"

	domainAccount "fitadmin/internal/domain/account"
)

// AccountLister lists logins for the accounts screen.
type AccountLister interface {
	List(ctx context.Context) ([]domainAccount.Account, error)
}

// AccountView is an account without its password hash.
type AccountView struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	FailedLogins int       `json:"failed_logins"`
	Locked       bool      `json:"locked"`
	LockedUntil  string    `json:"locked_until,omitempty"`
}

// ListAccountsDeps holds dependencies for ListAccounts.
type ListAccountsDeps struct {
	Accounts AccountLister
	Clock    Clock
}

// QueryListAccounts returns every login, oldest first.
// POST: Locked reflects the lockout at the clock's now; hashes never leave
func QueryListAccounts(ctx context.Context, deps ListAccountsDeps) ([]AccountView, error) {
	accounts, err := deps.Accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	now := deps.Clock.now()
	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		v := AccountView{
			ID:           a.ID,
			Email:        a.Email,
			Role:         a.Role,
			CreatedAt:    a.CreatedAt.UTC(),
			FailedLogins: a.FailedLogins,
			Locked:       a.IsLocked(now),
		}
		if v.Locked {
			v.LockedUntil = a.LockedUntil.UTC().Format(time.RFC3339)
		}
		views = append(views, v)
	}
	return views, nil
}
