package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"fitadmin/internal/adapters/email"
	"fitadmin/internal/adapters/http/perf"
	"fitadmin/internal/adapters/storage"
	accountStore "fitadmin/internal/adapters/storage/account"
	auditStore "fitadmin/internal/adapters/storage/audit"
	memberStore "fitadmin/internal/adapters/storage/member"
	outboxStore "fitadmin/internal/adapters/storage/outbox"
	paymentStore "fitadmin/internal/adapters/storage/payment"
	"fitadmin/internal/domain/account"
)

const (
	adminEmail    = "admin@gym.test"
	staffEmail    = "staff@gym.test"
	testPassword  = "correct-horse-battery"
	testReportTo  = "owner@gym.test"
	jsonMediaType = "application/json"
)

// fixedNow is Saturday 17 October 2026, mid-morning.
var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	stores  *Stores
	sender  *email.NoopSender
	metrics *perf.Metrics
}

func TestMain(m *testing.M) {
	UseNumericAmounts()
	os.Exit(m.Run())
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.MigrateDB(db, ":memory:"))

	s := &Stores{
		AccountStore: accountStore.NewSQLiteStore(db),
		MemberStore:  memberStore.NewSQLiteStore(db),
		PaymentStore: paymentStore.NewSQLiteStore(db),
		OutboxStore:  outboxStore.NewSQLiteStore(db),
		AuditStore:   auditStore.NewSQLiteStore(db),
	}
	saveAccount(t, s, "acct-admin", adminEmail, account.RoleAdmin)
	saveAccount(t, s, "acct-staff", staffEmail, account.RoleStaff)

	prevNow, prevRate := timeNow, RateLimitPerSecond
	timeNow = func() time.Time { return fixedNow }
	RateLimitPerSecond = 10000
	t.Cleanup(func() {
		timeNow = prevNow
		RateLimitPerSecond = prevRate
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sender := email.NewNoopSender()
	metrics := perf.NewMetrics()
	h := NewMux(s, Options{
		CSRFKey:     []byte("0123456789abcdef0123456789abcdef"),
		CORSOrigins: []string{"http://localhost:5173"},
		ReportTo:    testReportTo,
		ReportFrom:  "reports@gym.test",
		Sender:      sender,
		Collector:   perf.NewCollector(100),
		Metrics:     metrics,
		DB:          db,
		Background:  ctx,
	})
	return &testEnv{handler: h, stores: s, sender: sender, metrics: metrics}
}

func saveAccount(t *testing.T, s *Stores, id, addr, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.AccountStore.Save(context.Background(), account.Account{
		ID:           id,
		Email:        addr,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    fixedNow,
	}))
}

// do sends a request with an optional JSON body and session cookie.
func (e *testEnv) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(buf))
		req.Header.Set("Content-Type", jsonMediaType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(t *testing.T, addr string) *http.Cookie {
	t.Helper()
	rr := e.do(t, "POST", "/api/login", map[string]string{"email": addr, "password": testPassword}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == "fitadmin_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestRoot(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "GET", "/api/", nil, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]string{"message": "Fitness Admin API"}, decode[map[string]string](t, rr))
}

func TestUnknownAPIPath_IsJSON404(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "GET", "/api/nope", nil, nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, jsonMediaType, rr.Header().Get("Content-Type"))
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "GET", "/api/health", nil, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["database"])
}

func TestProtectedRoutes_RequireSession(t *testing.T) {
	e := newTestEnv(t)
	paths := []string{
		"/api/members",
		"/api/members/detail?member_id=x",
		"/api/members/status?member_id=x",
		"/api/members/overdue",
		"/api/payments",
		"/api/fee-summary",
		"/api/session",
		"/api/admin/perf",
	}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			rr := e.do(t, "GET", p, nil, nil)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestAdminRoutes_RejectStaff(t *testing.T) {
	e := newTestEnv(t)
	staff := e.login(t, staffEmail)

	assert.Equal(t, http.StatusForbidden, e.do(t, "GET", "/api/admin/perf", nil, staff).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, "GET", "/api/admin/outbox", nil, staff).Code)

	admin := e.login(t, adminEmail)
	assert.Equal(t, http.StatusOK, e.do(t, "GET", "/api/admin/perf", nil, admin).Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "POST", "/api/login", map[string]string{"email": adminEmail, "password": "nope"}, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestLogin_LockoutSetsRetryAfter(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < account.MaxFailedLogins; i++ {
		rr := e.do(t, "POST", "/api/login", map[string]string{"email": staffEmail, "password": "wrong-wrong-wrong"}, nil)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	rr := e.do(t, "POST", "/api/login", map[string]string{"email": staffEmail, "password": testPassword}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "900", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "locked")
}

func TestLogin_UnknownFieldRejected(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "POST", "/api/login", map[string]string{"email": adminEmail, "password": testPassword, "role": "admin"}, nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogout_EndsSession(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, adminEmail)

	rr := e.do(t, "GET", "/api/session", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, adminEmail, decode[map[string]any](t, rr)["email"])

	assert.Equal(t, http.StatusNoContent, e.do(t, "POST", "/api/logout", nil, cookie).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, "GET", "/api/session", nil, cookie).Code)
}

func TestChangePassword(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, staffEmail)
	other := e.login(t, staffEmail)

	rr := e.do(t, "POST", "/api/account/password", map[string]string{
		"current_password": "wrong-password-entirely",
		"new_password":     "a-brand-new-passphrase",
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, "POST", "/api/account/password", map[string]string{
		"current_password": testPassword,
		"new_password":     "a-brand-new-passphrase",
	}, cookie)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	assert.Equal(t, http.StatusOK, e.do(t, "GET", "/api/session", nil, cookie).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, "GET", "/api/session", nil, other).Code)
}

func TestCreateAccount(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, adminEmail)

	rr := e.do(t, "POST", "/api/accounts", map[string]string{
		"email": "new@gym.test", "password": "long-enough-password", "role": "staff",
	}, admin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = e.do(t, "POST", "/api/accounts", map[string]string{
		"email": "new@gym.test", "password": "long-enough-password", "role": "staff",
	}, admin)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestListAccounts_HidesHashes(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, adminEmail)

	rr := e.do(t, "GET", "/api/accounts", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "2", rr.Header().Get("X-Total-Count"))
	assert.NotContains(t, rr.Body.String(), "password")

	accounts := decode[[]map[string]any](t, rr)
	require.Len(t, accounts, 2)
	assert.Equal(t, adminEmail, accounts[0]["email"])
	assert.Equal(t, "admin", accounts[0]["role"])
	assert.Equal(t, false, accounts[1]["locked"])

	assert.Equal(t, http.StatusForbidden, e.do(t, "GET", "/api/accounts", nil, e.login(t, staffEmail)).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, e.do(t, "DELETE", "/api/accounts", nil, admin).Code)
}

func TestFormPost_RequiresCSRFToken(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t, adminEmail)

	req := httptest.NewRequest("POST", "/api/members", strings.NewReader("name=Asha&phone=0771234567"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCORS_PreflightAndHeaders(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/api/members", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, "GET", "/api/", nil, nil)

	rr := e.do(t, "GET", "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `fitadmin_http_request_duration_seconds_count{method="GET",route="/api/",status="200"} 1`)
}

func TestAdminPerf_SeesRequests(t *testing.T) {
	e := newTestEnv(t)
	admin := e.login(t, adminEmail)
	e.do(t, "GET", "/api/health", nil, nil)

	rr := e.do(t, "GET", "/api/admin/perf?window=5m&top=5", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[perf.Snapshot](t, rr)
	assert.GreaterOrEqual(t, snap.Requests, 2)

	assert.Equal(t, http.StatusBadRequest, e.do(t, "GET", "/api/admin/perf?window=soon", nil, admin).Code)
}
