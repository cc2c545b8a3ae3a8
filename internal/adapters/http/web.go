package web

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"fitadmin/internal/adapters/email"
	"fitadmin/internal/adapters/http/middleware"
	"fitadmin/internal/adapters/http/perf"
	accountStore "fitadmin/internal/adapters/storage/account"
	auditStore "fitadmin/internal/adapters/storage/audit"
	memberStore "fitadmin/internal/adapters/storage/member"
	outboxStore "fitadmin/internal/adapters/storage/outbox"
	paymentStore "fitadmin/internal/adapters/storage/payment"
	"fitadmin/internal/application/orchestrators"
	"fitadmin/internal/application/projections"
	"fitadmin/internal/domain/outbox"
)

// UseNumericAmounts makes decimal amounts encode as JSON numbers instead of
// strings. The setting is process-wide in shopspring/decimal, so it is applied
// once at startup, before any handler runs.
func UseNumericAmounts() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore accountStore.Store
	MemberStore  memberStore.Store
	PaymentStore paymentStore.Store
	OutboxStore  outboxStore.Store
	AuditStore   auditStore.Store
}

// Pinger reports database reachability for the health check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	Production  bool
	Location    *time.Location // business zone for "today"
	CORSOrigins []string
	CSRFKey     []byte // 32 bytes; random when empty

	ReportTo   string
	ReportFrom string
	Sender     email.Sender
	Processor  *orchestrators.OutboxProcessor // built from Sender when nil

	Collector   *perf.Collector
	Metrics     *perf.Metrics
	SlowRequest time.Duration
	DB          Pinger

	// Background stops the rate limiter and session sweeps. Defaults to
	// context.Background.
	Background context.Context
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

var opts Options

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 20

// timeNow is a variable for testability.
var timeNow = time.Now

// NewMux wires HTTP handlers for the app.
// PRE: s has every store set
// POST: Returns the handler with the full middleware chain applied
func NewMux(s *Stores, o Options) http.Handler {
	stores = s
	opts = o
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Sender == nil {
		opts.Sender = email.NewNoopSender()
	}
	if opts.Processor == nil {
		opts.Processor = NewOutboxProcessor(s.OutboxStore, opts.Sender, opts.Metrics)
	}
	if opts.Background == nil {
		opts.Background = context.Background()
	}
	sessions = middleware.NewSessionStore()
	sessions.StartSweep(opts.Background, 10*time.Minute)
	middleware.SecureCookies = opts.Production

	mux := http.NewServeMux()
	paths := registerRoutes(mux)

	csrfKey := opts.CSRFKey
	if len(csrfKey) == 0 {
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			panic(err)
		}
		slog.Warn("csrf_key_random", "reason", "no key configured; tokens will not survive restart")
	}

	limiter := middleware.NewRateLimiter(opts.Background, RateLimitPerSecond, time.Second)

	// Timing -> RateLimit -> CORS -> SecurityHeaders -> Auth -> CSRF -> Recover -> Mux
	return middleware.Chain(mux,
		middleware.Recover,
		middleware.CSRF(middleware.CSRFOptions{
			Key:            csrfKey,
			Secure:         opts.Production,
			TrustedOrigins: trustedHosts(opts.CORSOrigins),
		}),
		middleware.Auth(sessions),
		middleware.SecurityHeaders,
		middleware.CORS(opts.CORSOrigins),
		middleware.RateLimit(limiter),
		middleware.Timing(middleware.TimingOptions{
			Collector:     opts.Collector,
			Metrics:       opts.Metrics,
			SlowThreshold: opts.SlowRequest,
			Routes:        paths,
		}),
	)
}

// NewOutboxProcessor builds the processor that delivers queued fee reports.
// The server and the background retry loop share one instance.
func NewOutboxProcessor(store outboxStore.Store, sender email.Sender, metrics *perf.Metrics) *orchestrators.OutboxProcessor {
	return orchestrators.NewOutboxProcessor(store, map[string]orchestrators.ActionExecutor{
		outbox.ActionFeeReportEmail: &orchestrators.FeeReportEmailExecutor{Sender: sender, Metrics: metrics},
	})
}

func orchestratorClock() orchestrators.Clock {
	return orchestrators.Clock{Now: timeNow, Location: opts.Location}
}

func projectionClock() projections.Clock {
	return projections.Clock{Now: timeNow, Location: opts.Location}
}
