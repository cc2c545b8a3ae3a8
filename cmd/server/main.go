package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "modernc.org/sqlite"

	emailPkg "fitadmin/internal/adapters/email"
	web "fitadmin/internal/adapters/http"
	"fitadmin/internal/adapters/http/perf"
	"fitadmin/internal/adapters/storage"
	accountStore "fitadmin/internal/adapters/storage/account"
	auditStore "fitadmin/internal/adapters/storage/audit"
	memberStore "fitadmin/internal/adapters/storage/member"
	outboxStorePkg "fitadmin/internal/adapters/storage/outbox"
	paymentStore "fitadmin/internal/adapters/storage/payment"
	"fitadmin/internal/application/orchestrators"
	"fitadmin/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Production() {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	web.UseNumericAmounts()

	// WAL mode, foreign keys and busy timeout
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Every store goes through the timed wrapper so slow queries show up in
	// the perf dashboard and the query histogram.
	collector := perf.NewCollector(perf.DefaultRingSize)
	metrics := perf.NewMetrics()
	timedDB := storage.NewTimedDB(db, storage.TimedOptions{
		Collector:     collector,
		Metrics:       metrics,
		SlowThreshold: cfg.SlowQuery,
	})

	members := memberStore.NewSQLiteStore(timedDB)
	payments := paymentStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore: accountStore.NewSQLiteStore(timedDB),
		MemberStore:  members,
		PaymentStore: payments,
		OutboxStore:  outboxStorePkg.NewSQLiteStore(timedDB),
		AuditStore:   auditStore.NewSQLiteStore(timedDB),
	}
	clock := orchestrators.Clock{Location: cfg.Location}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seedDeps := orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore, Clock: clock}
	if err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	if !cfg.Production() {
		demoDeps := orchestrators.DemoSeedDeps{MemberStore: members, PaymentStore: payments, Clock: clock}
		if err := orchestrators.ExecuteSeedDemo(ctx, demoDeps); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.ResendFrom)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		slog.Info("email_sender_configured", "provider", "noop")
	}
	processor := web.NewOutboxProcessor(stores.OutboxStore, sender, metrics)

	refreshDeps := orchestrators.RefreshStatusesDeps{
		Members:  members,
		Payments: payments,
		Metrics:  metrics,
		Clock:    clock,
	}
	stopRefresh := orchestrators.StartScheduler(ctx, orchestrators.SchedulerConfig{
		Name:       "status_refresh",
		Interval:   cfg.StatusRefreshInterval,
		Enabled:    cfg.StatusRefreshInterval > 0,
		RunAtStart: true,
	}, func(ctx context.Context) error {
		_, err := orchestrators.ExecuteRefreshStatuses(ctx, refreshDeps)
		return err
	})
	defer stopRefresh()

	stopOutbox := orchestrators.StartScheduler(ctx, orchestrators.SchedulerConfig{
		Name:     "outbox",
		Interval: time.Minute,
		Enabled:  true,
	}, func(ctx context.Context) error {
		return orchestrators.DrainOutbox(ctx, processor, stores.OutboxStore, metrics)
	})
	defer stopOutbox()

	mux := web.NewMux(stores, web.Options{
		Production:  cfg.Production(),
		Location:    cfg.Location,
		CORSOrigins: cfg.CORSOrigins,
		CSRFKey:     cfg.CSRFKey,
		ReportTo:    cfg.ReportTo,
		ReportFrom:  cfg.ResendFrom,
		Sender:      sender,
		Processor:   processor,
		Collector:   collector,
		Metrics:     metrics,
		SlowRequest: cfg.SlowRequest,
		DB:          timedDB,
		Background:  ctx,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown_failed", "error", err.Error())
		}
	}()

	slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env,
		"timezone", cfg.Location.String(), "schema", storage.LatestSchemaVersion())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	slog.Info("server_stopped")
}
