package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuth_SetsSessionFromCookie(t *testing.T) {
	ss := NewSessionStore()
	token, _ := ss.Create("a1", "admin@gym.test", "admin")

	var got Session
	var found bool
	handler := Auth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = GetSessionFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/members", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !found || got.Email != "admin@gym.test" {
		t.Errorf("session = %+v, found = %v", got, found)
	}
}

func TestAuth_UnknownTokenLeavesContextEmpty(t *testing.T) {
	ss := NewSessionStore()
	var found bool
	handler := Auth(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = GetSessionFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/members", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "bogus"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("session found for unknown token")
	}
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(okHandler(http.StatusOK))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/members", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	req := httptest.NewRequest("GET", "/api/members", nil)
	req = req.WithContext(ContextWithSession(req.Context(), Session{AccountID: "a1", Role: "staff"}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("signed-in status = %d, want 200", rr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole("admin")(okHandler(http.StatusOK))

	tests := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"staff", ContextWithSession(context.Background(), Session{Role: "staff"}), http.StatusForbidden},
		{"admin", ContextWithSession(context.Background(), Session{Role: "admin"}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/admin/perf", nil).WithContext(tt.ctx)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestSessionCookie_RoundTrip(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "tok")
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "fitadmin_session" || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	if SessionToken(req) != "tok" {
		t.Errorf("SessionToken = %q, want tok", SessionToken(req))
	}

	rr = httptest.NewRecorder()
	ClearSessionCookie(rr)
	if c := rr.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("clear cookie = %+v", c)
	}
}

func TestIsAdmin(t *testing.T) {
	if IsAdmin(context.Background()) {
		t.Error("anonymous is admin")
	}
	if !IsAdmin(ContextWithSession(context.Background(), Session{Role: "admin"})) {
		t.Error("admin session not admin")
	}
}

func TestRequireAuth_AnyRole(t *testing.T) {
	handler := RequireAuth(okHandler(http.StatusOK))
	for _, role := range []string{"staff", "admin"} {
		req := httptest.NewRequest("GET", "/api/fees/summary", nil)
		req = req.WithContext(ContextWithSession(req.Context(), Session{Role: role}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", role, rr.Code)
		}
	}
}
