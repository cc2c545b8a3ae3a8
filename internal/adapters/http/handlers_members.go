package web

import (
	"net/http"
	"strconv"

	"fitadmin/internal/application/listutil"
	"fitadmin/internal/application/orchestrators"
	"fitadmin/internal/application/projections"
	"fitadmin/internal/domain/audit"
	"fitadmin/internal/domain/member"
)

// handleMembers handles GET (list) and POST (register) for /api/members
func handleMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		status, err := listutil.Choice(q, "status", member.IsValidStatus)
		if err != nil {
			writeError(w, r, err)
			return
		}
		lp := listutil.ParseListParams(q, projections.MemberSortColumns)

		query := projections.GetMemberListQuery{
			Status:     status,
			Search:     lp.Search,
			PageParams: lp.PageParams,
			SortParams: lp.SortParams,
		}
		deps := projections.GetMemberListDeps{
			MemberStore:  stores.MemberStore,
			PaymentStore: stores.PaymentStore,
			Clock:        projectionClock(),
		}
		result, err := projections.QueryGetMemberList(ctx, query, deps)
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeList(w, result.Members, result.Page)

	case http.MethodPost:
		var input orchestrators.RegisterMemberInput
		if err := strictDecode(r, &input); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		deps := orchestrators.RegisterMemberDeps{
			MemberStore: stores.MemberStore,
			Clock:       orchestratorClock(),
		}
		m, err := orchestrators.ExecuteRegisterMember(ctx, input, deps)
		if err != nil {
			writeError(w, r, err)
			return
		}
		recordAudit(r, audit.CategoryMember, audit.ActionCreate, "member", m.ID, m.Name)
		writeJSON(w, http.StatusCreated, m)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleMemberDetail handles GET (profile, status, payments) and PUT (profile
// update) for /api/members/detail?member_id=
func handleMemberDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, ok := requiredQuery(w, r.URL.Query(), "member_id")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		deps := projections.GetMemberDetailDeps{
			MemberStore:  stores.MemberStore,
			PaymentStore: stores.PaymentStore,
			StatusWriter: stores.MemberStore,
			Clock:        projectionClock(),
		}
		detail, err := projections.QueryGetMemberDetail(ctx, projections.GetMemberStatusQuery{MemberID: memberID}, deps)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)

	case http.MethodPut:
		var input orchestrators.UpdateMemberInput
		if err := strictDecode(r, &input.MemberProfile); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		input.MemberID = memberID
		deps := orchestrators.UpdateMemberDeps{
			MemberStore: stores.MemberStore,
			Clock:       orchestratorClock(),
		}
		m, err := orchestrators.ExecuteUpdateMember(ctx, input, deps)
		if err != nil {
			writeError(w, r, err)
			return
		}
		recordAudit(r, audit.CategoryMember, audit.ActionUpdate, "member", m.ID, m.Name)
		writeJSON(w, http.StatusOK, m)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

// handleMemberStatus handles GET /api/members/status?member_id=
func handleMemberStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	memberID, ok := requiredQuery(w, r.URL.Query(), "member_id")
	if !ok {
		return
	}

	deps := projections.GetMemberStatusDeps{
		MemberStore:  stores.MemberStore,
		PaymentStore: stores.PaymentStore,
		StatusWriter: stores.MemberStore,
		Clock:        projectionClock(),
	}
	res, err := projections.QueryGetMemberStatus(r.Context(), projections.GetMemberStatusQuery{MemberID: memberID}, deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleOverdueMembers handles GET /api/members/overdue?min_days=
func handleOverdueMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	minDays, ok := optionalInt(w, r.URL.Query(), "min_days", 1)
	if !ok {
		return
	}

	deps := projections.GetOverdueMembersDeps{
		MemberStore:  stores.MemberStore,
		PaymentStore: stores.PaymentStore,
		Clock:        projectionClock(),
	}
	overdue, err := projections.QueryGetOverdueMembers(r.Context(), projections.GetOverdueMembersQuery{MinDays: minDays}, deps)
	if err != nil {
		internalError(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(overdue)))
	writeJSON(w, http.StatusOK, overdue)
}
