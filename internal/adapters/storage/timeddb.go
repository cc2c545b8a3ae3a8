package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"fitadmin/internal/adapters/http/perf"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var _ SQLDB = (*sql.DB)(nil)

// DefaultSlowQuery is the slow query threshold used when none is configured.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedOptions configures where TimedDB reports its timings.
type TimedOptions struct {
	Collector     *perf.Collector
	Metrics       *perf.Metrics
	SlowThreshold time.Duration
}

// TimedDB wraps a *sql.DB, labels each call by statement and table, logs
// slow calls and feeds the perf collector and prometheus histogram.
type TimedDB struct {
	db   *sql.DB
	opts TimedOptions
}

var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps a *sql.DB with timing instrumentation.
// PRE: db is a valid database connection
// POST: Returns a TimedDB; a zero SlowThreshold becomes DefaultSlowQuery
func NewTimedDB(db *sql.DB, opts TimedOptions) *TimedDB {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, opts: opts}
}

// RawDB returns the underlying *sql.DB (needed for migrations and pool config).
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

func (t *TimedDB) observe(op string, start time.Time, err error) {
	d := time.Since(start)
	if d >= t.opts.SlowThreshold {
		slog.Warn("slow_query", "op", op, "duration_ms", d.Milliseconds(), "error", err)
	} else {
		slog.Debug("query", "op", op, "duration_ms", float64(d.Microseconds())/1000.0)
	}
	t.opts.Collector.Record(perf.Entry{Kind: perf.KindQuery, Name: op, Duration: d, At: start})
	t.opts.Metrics.ObserveQuery(op, d)
}

// ExecContext wraps sql.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.observe(QueryLabel(query), start, err)
	return result, err
}

// QueryContext wraps sql.DB.QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe(QueryLabel(query), start, err)
	return rows, err
}

// QueryRowContext wraps sql.DB.QueryRowContext with timing.
// Errors surface on Scan, so none is logged here.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe(QueryLabel(query), start, nil)
	return row
}

// BeginTx wraps sql.DB.BeginTx with timing.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.observe("BEGIN", start, err)
	return tx, err
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// PingContext verifies the database connection.
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// QueryLabel reduces a statement to "VERB table", e.g. "SELECT payment".
// Unrecognised statements return the verb alone.
func QueryLabel(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	verb := strings.ToUpper(fields[0])
	var marker string
	switch verb {
	case "SELECT", "DELETE":
		marker = "FROM"
	case "INSERT", "REPLACE":
		marker = "INTO"
	case "UPDATE":
		return verb + " " + tableName(fields, 1)
	default:
		return verb
	}
	for i, f := range fields {
		if strings.EqualFold(f, marker) && i+1 < len(fields) {
			return verb + " " + tableName(fields, i+1)
		}
	}
	return verb
}

func tableName(fields []string, i int) string {
	if i >= len(fields) {
		return "?"
	}
	name := fields[i]
	if j := strings.IndexAny(name, "(,;"); j >= 0 {
		name = name[:j]
	}
	return strings.ToLower(strings.Trim(name, "`\""))
}
