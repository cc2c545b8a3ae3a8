package web

import (
	"net/http"

	"fitadmin/internal/adapters/http/middleware"
	"fitadmin/internal/domain/account"
)

// route is one registered path. Public routes skip RequireAuth.
type route struct {
	path    string
	handler http.HandlerFunc
	public  bool
	admin   bool
}

func routes() []route {
	return []route{
		{path: "/api/", handler: handleRoot, public: true},
		{path: "/api/health", handler: handleHealth, public: true},
		{path: "/api/login", handler: handleLogin, public: true},
		{path: "/api/logout", handler: handleLogout},
		{path: "/api/session", handler: handleSession},
		{path: "/api/account/password", handler: handleChangePassword},
		{path: "/api/accounts", handler: handleAccounts, admin: true},

		{path: "/api/members", handler: handleMembers},
		{path: "/api/members/detail", handler: handleMemberDetail},
		{path: "/api/members/status", handler: handleMemberStatus},
		{path: "/api/members/overdue", handler: handleOverdueMembers},
		{path: "/api/members/export", handler: handleExportMember, admin: true},

		{path: "/api/payments", handler: handlePayments},
		{path: "/api/fee-summary", handler: handleFeeSummary},
		{path: "/api/reports/fee-summary/email", handler: handleEmailFeeReport},

		{path: "/api/admin/perf", handler: handleAdminPerf, admin: true},
		{path: "/api/admin/outbox", handler: handleAdminOutbox, admin: true},
		{path: "/api/admin/outbox/retry", handler: handleAdminOutboxRetry, admin: true},
		{path: "/api/admin/audit", handler: handleAdminAudit, admin: true},
	}
}

// registerRoutes mounts every route plus /metrics and returns the mounted
// paths for the timing middleware's route labels.
func registerRoutes(mux *http.ServeMux) []string {
	var paths []string
	for _, rt := range routes() {
		var h http.Handler = rt.handler
		switch {
		case rt.admin:
			h = middleware.RequireRole(account.RoleAdmin)(h)
		case !rt.public:
			h = middleware.RequireAuth(h)
		}
		mux.Handle(rt.path, h)
		paths = append(paths, rt.path)
	}
	mux.Handle("/metrics", opts.Metrics.Handler())
	return append(paths, "/metrics")
}
