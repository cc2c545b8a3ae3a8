package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"fitadmin/internal/adapters/http/middleware"
	auditStore "fitadmin/internal/adapters/storage/audit"
	auditDomain "fitadmin/internal/domain/audit"
)

// recordAudit appends an event for the signed-in account. A failed write is
// logged and never fails the request that already succeeded.
func recordAudit(r *http.Request, category auditDomain.Category, action auditDomain.Action, resourceType, resourceID, summary string) {
	s := sessionOf(r)
	recordAuditAs(r.Context(), auditDomain.NewEvent(timeNow(), category, action).
		By(s.AccountID, s.Email).
		On(resourceType, resourceID).
		WithSummary(summary).
		From(middleware.ClientIP(r)))
}

func recordAuditAs(ctx context.Context, e auditDomain.Event) {
	if err := e.Validate(); err != nil {
		slog.Error("audit_write_failed", "action", string(e.Action), "error", err.Error())
		return
	}
	if err := stores.AuditStore.Save(ctx, e); err != nil {
		slog.Error("audit_write_failed", "action", string(e.Action), "error", err.Error())
	}
}

// handleAdminAudit handles GET /api/admin/audit
// Filters: category, action, actor_id, resource_id; paging: limit, offset.
func handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := r.URL.Query()

	filter := auditStore.Filter{
		Category:   auditDomain.Category(q.Get("category")),
		Action:     auditDomain.Action(q.Get("action")),
		ActorID:    q.Get("actor_id"),
		ResourceID: q.Get("resource_id"),
	}
	if filter.Category != "" && !auditDomain.IsValidCategory(filter.Category) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: map[string]string{"category": "oneof"}})
		return
	}

	limit, ok := optionalInt(w, q, "limit", 100)
	if !ok {
		return
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset, ok := optionalInt(w, q, "offset", 0)
	if !ok {
		return
	}
	if offset < 0 {
		offset = 0
	}
	filter.Limit, filter.Offset = limit, offset

	ctx := r.Context()
	total, err := stores.AuditStore.Count(ctx, filter)
	if err != nil {
		internalError(w, r, err)
		return
	}
	events, err := stores.AuditStore.List(ctx, filter)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if events == nil {
		events = []auditDomain.Event{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, events)
}
