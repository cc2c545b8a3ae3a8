package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fitadmin/internal/adapters/http/perf"
)

// DefaultSlowRequest is the slow request threshold used when none is configured.
const DefaultSlowRequest = 200 * time.Millisecond

// RequestIDHeader carries the id logged for each request back to the client.
const RequestIDHeader = "X-Request-ID"

// unmatchedRoute labels requests for paths outside the known route set.
const unmatchedRoute = "unmatched"

// recordingWriter remembers the status and body size of a response.
type recordingWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *recordingWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// TimingOptions configures where request timings go.
type TimingOptions struct {
	Collector     *perf.Collector
	Metrics       *perf.Metrics
	SlowThreshold time.Duration
	// Routes bounds the route label; other paths are labelled "unmatched".
	// Empty means every path is its own label.
	Routes []string
}

// Timing times every request, tags it with a request id, and feeds the
// collector and request histogram. Requests at or over the slow threshold
// log slow_request at WARN, the rest log at DEBUG.
// POST: a zero SlowThreshold becomes DefaultSlowRequest
func Timing(opts TimingOptions) func(http.Handler) http.Handler {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = DefaultSlowRequest
	}
	known := make(map[string]struct{}, len(opts.Routes))
	for _, r := range opts.Routes {
		known[r] = struct{}{}
	}
	label := func(path string) string {
		if len(known) == 0 {
			return path
		}
		if _, ok := known[path]; ok {
			return path
		}
		return unmatchedRoute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := uuid.NewString()
			w.Header().Set(RequestIDHeader, id)
			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}

			// Deferred so a panicking handler is still timed.
			defer func() {
				d := time.Since(start)
				route := label(r.URL.Path)
				attrs := []any{
					"request_id", id,
					"method", r.Method,
					"path", r.URL.Path,
					"status", rw.status,
					"bytes", rw.bytes,
					"duration_ms", float64(d.Microseconds()) / 1000,
				}
				if d >= opts.SlowThreshold {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}
				opts.Collector.Record(perf.Entry{
					Kind:     perf.KindRequest,
					Name:     r.Method + " " + route,
					Status:   rw.status,
					Duration: d,
					At:       start,
				})
				opts.Metrics.ObserveRequest(r.Method, route, rw.status, d)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
