package middleware

import (
	"context"
	"net/http"

	domainAccount "fitadmin/internal/domain/account"
)

type contextKey string

const sessionContextKey contextKey = "session"

const sessionCookieName = "fitadmin_session"

// SecureCookies marks the session cookie Secure. Set in production.
var SecureCookies bool

// Auth resolves the session cookie and stores the session in the request
// context. Anonymous requests pass through; RequireAuth and RequireRole
// decide what they may reach.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := SessionToken(r); token != "" {
				if s, ok := sessions.Get(token); ok {
					r = r.WithContext(ContextWithSession(r.Context(), s))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth answers 401 unless the request carries a live session.
func RequireAuth(next http.Handler) http.Handler {
	return RequireRole()(next)
}

// RequireRole answers 401 without a session and 403 when the session's
// role is not listed. With no roles any signed-in account passes.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := GetSessionFromContext(r.Context())
			switch {
			case !ok:
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
			case len(allowed) > 0 && !allowed[s.Role]:
				writeJSONError(w, http.StatusForbidden, "forbidden")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// GetSessionFromContext returns the session Auth stored, if any.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(Session)
	return s, ok
}

// ContextWithSession returns ctx carrying s.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// IsAdmin reports whether ctx carries an admin session.
func IsAdmin(ctx context.Context) bool {
	s, ok := GetSessionFromContext(ctx)
	return ok && s.Role == domainAccount.RoleAdmin
}

// SessionToken returns the session cookie value, or "".
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetSessionCookie hands token to the browser for SessionTTL.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, sessionCookie(token, int(SessionTTL.Seconds())))
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie("", -1))
}

func sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}
