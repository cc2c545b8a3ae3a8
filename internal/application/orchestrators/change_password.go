package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fitadmin/internal/domain/account"
)

// ChangePasswordInput is the body of POST /api/account/password. AccountID
// comes from the session, never from the body.
type ChangePasswordInput struct {
	AccountID       string `json:"-" validate:"required"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=12"`
}

// AccountStoreForChangePassword is the account store surface used by
// ChangePassword.
type AccountStoreForChangePassword interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	accountSaver
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	AccountStore AccountStoreForChangePassword
	Clock        Clock
}

// Password rule errors.
var (
	ErrNewPasswordSame = errors.New("new password must be different from current password")
	ErrPasswordIsEmail = errors.New("password must not contain the account email")
)

// ExecuteChangePassword replaces the signed-in account's password.
// PRE: AccountID belongs to the signed-in account
// POST: A wrong current password counts toward the login lockout
// INVARIANT: A locked account keeps its password until the lock passes
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	if err := checkInput(input, nil); err != nil {
		return err
	}

	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return err
	}
	now := deps.Clock.now()
	if err := acct.LockError(now); err != nil {
		return err
	}
	if acct.CheckPassword(input.CurrentPassword) != nil {
		recordFailure(ctx, deps.AccountStore, &acct, now)
		return ErrInvalidCredentials
	}

	switch {
	case input.CurrentPassword == input.NewPassword:
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrNewPasswordSame)
	case containsEmail(input.NewPassword, acct.Email):
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrPasswordIsEmail)
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	acct.ResetFailedLogins()
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", acct.ID)
	return nil
}

// containsEmail reports whether password embeds the mailbox name of email.
// Mailbox names shorter than four characters are ignored.
func containsEmail(password, email string) bool {
	local, _, _ := strings.Cut(account.NormalizeEmail(email), "@")
	return len(local) >= 4 && strings.Contains(strings.ToLower(password), local)
}
