package middleware

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// Session lifetimes. A session ends SessionTTL after login, or sooner when
// it sits unused for SessionIdleTimeout.
const (
	SessionTTL         = 24 * time.Hour
	SessionIdleTimeout = 8 * time.Hour
)

// Session is a signed-in staff member.
type Session struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"-"`
}

func (s Session) expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > SessionTTL || now.Sub(s.LastSeen) > SessionIdleTimeout
}

// SessionStore keeps sessions in memory, keyed by the SHA-256 of the
// cookie token so the map never holds a usable credential. Sessions do not
// survive a restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Create starts a session and returns the cookie token.
// PRE: accountID and role are non-empty
// POST: token is 64 hex characters
func (ss *SessionStore) Create(accountID, email, role string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	now := ss.now()
	ss.sessions[tokenKey(token)] = Session{
		AccountID: accountID,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		LastSeen:  now,
	}
	return token, nil
}

// Get returns the live session for token and marks it as used.
// POST: Expired sessions are evicted and reported as missing
func (ss *SessionStore) Get(token string) (Session, bool) {
	key := tokenKey(token)
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[key]
	if !ok {
		return Session{}, false
	}
	now := ss.now()
	if s.expired(now) {
		delete(ss.sessions, key)
		return Session{}, false
	}
	s.LastSeen = now
	ss.sessions[key] = s
	return s, true
}

// Delete ends the session for token.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, tokenKey(token))
}

// DeleteAccount ends every session of accountID except the one for keep.
// POST: Returns the number of sessions ended
func (ss *SessionStore) DeleteAccount(accountID, keep string) int {
	keepKey := ""
	if keep != "" {
		keepKey = tokenKey(keep)
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	n := 0
	for key, s := range ss.sessions {
		if s.AccountID == accountID && key != keepKey {
			delete(ss.sessions, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, live or not yet swept.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// Sweep evicts expired sessions and returns how many it removed.
func (ss *SessionStore) Sweep() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	now := ss.now()
	n := 0
	for key, s := range ss.sessions {
		if s.expired(now) {
			delete(ss.sessions, key)
			n++
		}
	}
	return n
}

// StartSweep runs Sweep every interval until ctx is done.
func (ss *SessionStore) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := ss.Sweep(); n > 0 {
					slog.Debug("sessions_swept", "removed", n, "remaining", ss.Len())
				}
			}
		}
	}()
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
