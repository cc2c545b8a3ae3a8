// Package account models the staff logins that may use the admin API.
package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Field limits.
const (
	MaxEmailLength    = 254
	MinPasswordLength = 12
)

// Lockout policy: MaxFailedLogins wrong passwords in a row lock the
// account for LockoutDuration.
const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

// bcryptCost is a variable so tests can lower it.
var bcryptCost = 12

// Roles. Admins manage logins and read the operational screens; staff
// register members and record payments at the front desk.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Domain errors.
var (
	ErrNotFound         = errors.New("account not found")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmailTooLong     = fmt.Errorf("email cannot exceed %d characters", MaxEmailLength)
	ErrInvalidRole      = errors.New("role must be one of: admin, staff")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrWrongPassword    = errors.New("incorrect password")
	ErrLocked           = errors.New("account is temporarily locked")
)

// LockedError reports a lockout together with when it ends. It matches
// ErrLocked under errors.Is.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string { return ErrLocked.Error() }

// Is lets errors.Is(err, ErrLocked) match.
func (e *LockedError) Is(target error) bool { return target == ErrLocked }

// RetryAfter is the time left on the lock at now, rounded up to a second.
func (e *LockedError) RetryAfter(now time.Time) time.Duration {
	d := e.Until.Sub(now)
	if d <= 0 {
		return 0
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

// Account is a login. Email is kept normalized.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidRole reports whether role is admin or staff.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}

// Validate checks the email and role. The password is checked by SetPassword.
func (a *Account) Validate() error {
	email := strings.TrimSpace(a.Email)
	switch {
	case email == "":
		return ErrEmptyEmail
	case len(email) > MaxEmailLength:
		return ErrEmailTooLong
	case !strings.Contains(email, "@"):
		return ErrInvalidEmail
	case !ValidRole(a.Role):
		return ErrInvalidRole
	}
	return nil
}

// SetPassword replaces the password hash.
// PRE: plaintext is at least MinPasswordLength bytes
// POST: PasswordHash is a bcrypt hash of plaintext
func (a *Account) SetPassword(plaintext string) error {
	switch {
	case plaintext == "":
		return ErrEmptyPassword
	case len(plaintext) < MinPasswordLength:
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares plaintext with the stored hash.
// INVARIANT: the account is not modified
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)) != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked reports whether the account is locked out at now.
func (a *Account) IsLocked(now time.Time) bool {
	return now.Before(a.LockedUntil)
}

// LockError returns a *LockedError when the account is locked at now.
func (a *Account) LockError(now time.Time) error {
	if !a.IsLocked(now) {
		return nil
	}
	return &LockedError{Until: a.LockedUntil}
}

// RecordFailedLogin counts a wrong password.
// POST: LockedUntil = now + LockoutDuration once FailedLogins reaches MaxFailedLogins
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the failure count and any lock.
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}
