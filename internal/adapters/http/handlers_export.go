package web

import (
	"encoding/json"
	"net/http"

	"fitadmin/internal/application/projections"
	"fitadmin/internal/domain/audit"
)

// handleExportMember handles GET /api/members/export?member_id=
// Returns everything held about the member as a JSON download.
func handleExportMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	memberID, ok := requiredQuery(w, r.URL.Query(), "member_id")
	if !ok {
		return
	}

	deps := projections.GetMemberDetailDeps{
		MemberStore:  stores.MemberStore,
		PaymentStore: stores.PaymentStore,
		StatusWriter: stores.MemberStore,
		Clock:        projectionClock(),
	}
	data, err := projections.QueryExportMember(r.Context(), projections.GetMemberStatusQuery{MemberID: memberID}, deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		internalError(w, r, err)
		return
	}

	recordAudit(r, audit.CategoryMember, audit.ActionExport, "member", data.Member.ID, data.Member.Name)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+data.Filename()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
