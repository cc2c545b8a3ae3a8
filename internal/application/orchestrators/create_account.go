package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fitadmin/internal/domain/account"
)

// AccountStoreForCreate is the account store surface used when adding
// logins and seeding the first admin.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	CountByRole(ctx context.Context, role string) (int, error)
}

// CreateAccountInput is the body of POST /api/accounts.
type CreateAccountInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=12"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	Clock        Clock
}

// ErrEmailAlreadyExists is returned when the email is already registered.
var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount adds a staff or admin login.
// PRE: input passes validation
// POST: The stored account has a bcrypt hash and a normalized email
// INVARIANT: At most one account per email, ignoring case
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (account.Account, error) {
	if err := checkInput(input, nil); err != nil {
		return account.Account{}, err
	}
	if err := ensureEmailFree(ctx, deps.AccountStore, input.Email); err != nil {
		return account.Account{}, err
	}

	acct := account.Account{
		ID:        uuid.New().String(),
		Email:     account.NormalizeEmail(input.Email),
		Role:      input.Role,
		CreatedAt: deps.Clock.now().UTC(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return account.Account{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}

	slog.Info("auth_event", "event", "account_created", "account_id", acct.ID, "role", acct.Role)
	return acct, nil
}

func ensureEmailFree(ctx context.Context, store AccountStoreForCreate, email string) error {
	_, err := store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailAlreadyExists
	case errors.Is(err, account.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("look up %s: %w", account.NormalizeEmail(email), err)
	}
}

// ExecuteSeedAdmin makes sure the gym has an admin who can create the other
// logins. It runs at startup with the configured credentials.
// PRE: Database is migrated
// POST: An admin exists, or credentials were missing and a warning was logged
// INVARIANT: Existing accounts are never modified
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	admins, err := deps.AccountStore.CountByRole(ctx, account.RoleAdmin)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return nil
	}
	if email == "" || password == "" {
		slog.Warn("auth_event", "event", "admin_seed_skipped", "reason", "no admin credentials configured")
		return nil
	}

	acct, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email:    email,
		Password: password,
		Role:     account.RoleAdmin,
	}, deps)
	if err != nil {
		return fmt.Errorf("seed admin %s: %w", account.NormalizeEmail(email), err)
	}

	slog.Info("auth_event", "event", "admin_seeded", "account_id", acct.ID)
	return nil
}
