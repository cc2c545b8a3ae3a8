package web

import (
	"net/http"
	"strconv"

	"fitadmin/internal/application/listutil"
	"fitadmin/internal/domain/audit"
	"fitadmin/internal/domain/outbox"
)

// outboxStatuses are the values accepted by the status filter.
var outboxStatuses = map[string]bool{
	outbox.StatusPending:  true,
	outbox.StatusRetrying: true,
	outbox.StatusDone:     true,
	outbox.StatusFailed:   true,
}

// handleAdminOutbox handles GET /api/admin/outbox?status=&limit=
// Lists the newest queued emails so failed deliveries are visible.
// X-Total-Count is the number of entries matching the status filter.
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := r.URL.Query()
	status, err := listutil.Choice(q, "status", func(v string) bool { return outboxStatuses[v] })
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, ok := optionalInt(w, q, "limit", 50)
	if !ok {
		return
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	counts, err := stores.OutboxStore.CountByStatus(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	entries, err := stores.OutboxStore.ListRecent(r.Context(), status, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}

	total := counts[status]
	if status == "" {
		total = 0
		for _, n := range counts {
			total += n
		}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, entries)
}

// handleAdminOutboxRetry handles POST /api/admin/outbox/retry?id=
// Attempts delivery immediately, ignoring backoff. Terminal entries are a 400.
func handleAdminOutboxRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	id, ok := requiredQuery(w, r.URL.Query(), "id")
	if !ok {
		return
	}

	entry, err := opts.Processor.ProcessSingle(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recordAudit(r, audit.CategoryReport, audit.ActionRetry, "outbox", entry.ID, entry.Status)
	writeJSON(w, http.StatusOK, entry)
}
