package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fitadmin/internal/adapters/http/middleware"
	"fitadmin/internal/application/listutil"
	"fitadmin/internal/application/orchestrators"
	"fitadmin/internal/application/projections"
	"fitadmin/internal/domain/account"
	"fitadmin/internal/domain/member"
	"fitadmin/internal/domain/outbox"
	"fitadmin/internal/domain/payment"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal_error", "path", r.URL.Path, "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields
// and trailing data.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err.Error())
	}
}

// writeList writes a plain JSON array and reports the unpaged total in X-Total-Count.
func writeList(w http.ResponseWriter, items any, page listutil.PageInfo) {
	w.Header().Set("X-Total-Count", strconv.Itoa(page.Total))
	writeJSON(w, http.StatusOK, items)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, allow ...string) {
	w.Header().Set("Allow", strings.Join(allow, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
}

// writeError maps an application error onto a status code.
// Anything unrecognised is a 500 with the cause logged, never echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *orchestrators.InputError
	var choiceErr *listutil.ChoiceError
	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: inputErr.Fields})
	case errors.As(err, &choiceErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: map[string]string{choiceErr.Key: "oneof"}})
	case errors.Is(err, member.ErrNotFound),
		errors.Is(err, outbox.ErrNotFound),
		errors.Is(err, account.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFoundMessage(err)})
	case errors.Is(err, orchestrators.ErrInvalidInput),
		errors.Is(err, payment.ErrInvalidPayment),
		errors.Is(err, outbox.ErrTerminal):
		badRequest(w, err.Error())
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, account.ErrLocked):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, orchestrators.ErrEmailAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		slog.Warn("request_cancelled", "path", r.URL.Path, "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "request cancelled"})
	default:
		internalError(w, r, err)
	}
}

func notFoundMessage(err error) string {
	for _, target := range []error{member.ErrNotFound, outbox.ErrNotFound, account.ErrNotFound} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "not found"
}

// requiredQuery returns a non-empty query value or writes a 400.
func requiredQuery(w http.ResponseWriter, q url.Values, key string) (string, bool) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: map[string]string{key: "required"}})
		return "", false
	}
	return v, true
}

// optionalInt parses an integer query value, writing a 400 when malformed.
func optionalInt(w http.ResponseWriter, q url.Values, key string, def int) (int, bool) {
	raw := q.Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: map[string]string{key: "integer"}})
		return 0, false
	}
	return n, true
}

// handleRoot handles GET /api/
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/" {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Fitness Admin API"})
}

// handleHealth handles GET /api/health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if opts.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := opts.DB.PingContext(ctx); err != nil {
			slog.Error("health_check_failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}

// handleAdminPerf handles GET /api/admin/perf?window=30m&top=10
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := r.URL.Query()
	query := projections.GetPerfQuery{}
	if raw := q.Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: map[string]string{"window": "duration"}})
			return
		}
		query.Window = d
	}
	top, ok := optionalInt(w, q, "top", 10)
	if !ok {
		return
	}
	query.TopN = top
	writeJSON(w, http.StatusOK, projections.QueryGetPerf(query, opts.Collector, time.Now()))
}

// sessionOf returns the session placed by the Auth middleware. Routes that
// call it are wrapped in RequireAuth, so a missing session is a wiring bug.
func sessionOf(r *http.Request) middleware.Session {
	s, _ := middleware.GetSessionFromContext(r.Context())
	return s
}

// trustedHosts converts configured CORS origins to the host[:port] form the
// CSRF origin check expects.
func trustedHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		u, err := url.Parse(strings.TrimSpace(o))
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
