package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fitadmin/internal/domain/account"
)

type accountSaver interface {
	Save(ctx context.Context, a account.Account) error
}

// AccountStoreForLogin is the account store surface used by Login.
type AccountStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	accountSaver
}

// LoginInput is the body of POST /api/login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult identifies the signed-in account. It is also the body
// returned by /api/session and POST /api/accounts.
type LoginResult struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	AccountStore AccountStoreForLogin
	Clock        Clock
}

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// unknownEmailHash is compared against when no account matches so an
// unknown email costs the same bcrypt work as a wrong password.
var unknownEmailHash, _ = bcrypt.GenerateFromPassword([]byte("fitadmin-unknown-account"), bcrypt.DefaultCost)

// ExecuteLogin checks a staff member's credentials.
// PRE: none; empty fields fail as invalid credentials
// POST: A wrong password counts toward the lockout; success clears it
// INVARIANT: A locked account cannot log in until LockedUntil passes
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := deps.Clock.now()

	acct, err := deps.AccountStore.GetByEmail(ctx, input.Email)
	if errors.Is(err, account.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(unknownEmailHash, []byte(input.Password))
		slog.Info("auth_event", "event", "login_failed", "reason", "unknown_email")
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}

	if err := acct.LockError(now); err != nil {
		slog.Info("auth_event", "event", "login_blocked", "account_id", acct.ID, "locked_until", acct.LockedUntil)
		return LoginResult{}, err
	}

	if acct.CheckPassword(input.Password) != nil {
		recordFailure(ctx, deps.AccountStore, &acct, now)
		return LoginResult{}, ErrInvalidCredentials
	}

	if acct.FailedLogins > 0 || !acct.LockedUntil.IsZero() {
		acct.ResetFailedLogins()
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return LoginResult{}, err
		}
	}

	slog.Info("auth_event", "event", "login_success", "account_id", acct.ID, "role", acct.Role)
	return LoginResult{AccountID: acct.ID, Email: acct.Email, Role: acct.Role}, nil
}

// recordFailure counts a wrong password against acct. A save error is
// logged rather than returned so the caller still reports bad credentials.
func recordFailure(ctx context.Context, store accountSaver, acct *account.Account, now time.Time) {
	acct.RecordFailedLogin(now)
	if err := store.Save(ctx, *acct); err != nil {
		slog.Error("auth_event", "event", "failed_login_not_saved", "account_id", acct.ID, "error", err)
	}
	slog.Info("auth_event", "event", "login_failed", "account_id", acct.ID,
		"reason", "wrong_password", "failed_logins", acct.FailedLogins, "locked", acct.IsLocked(now))
}
