package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 3, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d blocked, want allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("4th request allowed, want blocked")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other IP blocked, want allowed")
	}
}

func TestRateLimit_KeysOnHostNotPort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimit(NewRateLimiter(ctx, 1, time.Hour))(okHandler(http.StatusOK))

	req := httptest.NewRequest("GET", "/api/", nil)
	req.RemoteAddr = "192.0.2.7:5000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest("GET", "/api/", nil)
	req.RemoteAddr = "192.0.2.7:5001"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(okHandler(http.StatusOK)).ServeHTTP(rr, httptest.NewRequest("GET", "/api/members", nil))

	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("%s not set", h)
		}
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", rr.Header().Get("Cache-Control"))
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"http://localhost:5173/"})(okHandler(http.StatusOK))

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed bool
	}{
		{"allowed simple", "GET", "http://localhost:5173", false, 200, true},
		{"disallowed simple", "GET", "http://evil.example", false, 200, false},
		{"no origin", "GET", "", false, 200, false},
		{"allowed preflight", "OPTIONS", "http://localhost:5173", true, 204, true},
		{"disallowed preflight", "OPTIONS", "http://evil.example", true, 204, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/members", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			got := rr.Header().Get("Access-Control-Allow-Origin")
			if tt.wantAllowed && got != tt.origin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.origin)
			}
			if !tt.wantAllowed && got != "" {
				t.Errorf("Allow-Origin = %q, want empty", got)
			}
			if tt.preflight && tt.wantAllowed && rr.Header().Get("Access-Control-Allow-Methods") == "" {
				t.Error("Allow-Methods missing on preflight")
			}
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler(http.StatusOK))
	req := httptest.NewRequest("GET", "/api/", nil)
	req.Header.Set("Origin", "https://anything.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://anything.example" {
		t.Errorf("Allow-Origin = %q, want echoed origin", got)
	}
}

func TestForgeable(t *testing.T) {
	tests := []struct {
		method string
		ct     string
		body   string
		want   bool
	}{
		{"GET", "", "", false},
		{"POST", "application/json", `{}`, false},
		{"POST", "application/json; charset=utf-8", `{}`, false},
		{"POST", "", "", false},
		{"POST", "", "x=1", true},
		{"POST", "application/x-www-form-urlencoded", "x=1", true},
		{"PUT", "multipart/form-data; boundary=x", "--x--", true},
		{"POST", "text/plain", `{"a":1}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.ct, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/members", strings.NewReader(tt.body))
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}
			if got := forgeable(req); got != tt.want {
				t.Errorf("forgeable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCSRF_RejectsFormPostWithoutToken(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	handler := CSRF(CSRFOptions{Key: key})(okHandler(http.StatusOK))

	req := httptest.NewRequest("POST", "/api/members", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("form status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest("POST", "/api/members", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("json status = %d, want 200", rr.Code)
	}
}

func TestRecover(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/members", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Error("panic value leaked to client")
	}
}

func TestChain_LastIsOutermost(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(okHandler(http.StatusOK), mark("inner"), mark("outer")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("order = %v, want [outer inner]", order)
	}
}
