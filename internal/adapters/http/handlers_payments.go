package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"fitadmin/internal/application/listutil"
	"fitadmin/internal/application/orchestrators"
	"fitadmin/internal/application/projections"
	"fitadmin/internal/domain/audit"
	"fitadmin/internal/domain/calendar"
	"fitadmin/internal/domain/payment"
)

// handlePayments handles GET (list) and POST (record) for /api/payments
func handlePayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		query := projections.GetPaymentListQuery{
			MemberID:   q.Get("member_id"),
			PageParams: listutil.ParsePageParams(q),
		}
		if t := q.Get("payment_type"); t != "" {
			if _, err := payment.CoverageMonths(payment.NormalizeType(t)); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: map[string]string{"payment_type": "oneof"}})
				return
			}
			query.Type = t
		}
		var ok bool
		if query.From, ok = optionalDate(w, q.Get("from"), "from"); !ok {
			return
		}
		if query.To, ok = optionalDate(w, q.Get("to"), "to"); !ok {
			return
		}

		deps := projections.GetPaymentListDeps{PaymentStore: stores.PaymentStore}
		result, err := projections.QueryGetPaymentList(ctx, query, deps)
		if err != nil {
			internalError(w, r, err)
			return
		}
		writeList(w, result.Payments, result.Page)

	case http.MethodPost:
		var input orchestrators.RecordPaymentInput
		if err := strictDecode(r, &input); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		deps := orchestrators.RecordPaymentDeps{
			MemberStore:  stores.MemberStore,
			PaymentStore: stores.PaymentStore,
			Clock:        orchestratorClock(),
		}
		if opts.Metrics != nil {
			deps.Metrics = opts.Metrics
		}
		result, err := orchestrators.ExecuteRecordPayment(ctx, input, deps)
		if err != nil {
			writeError(w, r, err)
			return
		}
		p := result.Payment
		recordAudit(r, audit.CategoryPayment, audit.ActionCreate, "member", p.MemberID,
			p.Type+" "+p.Amount.String()+" on "+calendar.Format(p.PaymentDate))
		writeJSON(w, http.StatusCreated, result)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func optionalDate(w http.ResponseWriter, raw, key string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: map[string]string{key: "datetime"}})
		return time.Time{}, false
	}
	return d, true
}

// handleFeeSummary handles GET /api/fee-summary
func handleFeeSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	deps := projections.GetFeeSummaryDeps{
		MemberStore:  stores.MemberStore,
		PaymentStore: stores.PaymentStore,
		Clock:        projectionClock(),
	}
	summary, err := projections.QueryGetFeeSummary(r.Context(), deps)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleEmailFeeReport handles POST /api/reports/fee-summary/email.
// The body is optional; {"to": "..."} overrides the configured recipient.
func handleEmailFeeReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var input orchestrators.EmailFeeReportInput
	if err := strictDecode(r, &input); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid request body")
		return
	}

	deps := orchestrators.EmailFeeReportDeps{
		Members:     stores.MemberStore,
		Payments:    stores.PaymentStore,
		OutboxStore: stores.OutboxStore,
		Processor:   opts.Processor,
		DefaultTo:   opts.ReportTo,
		From:        opts.ReportFrom,
		Clock:       orchestratorClock(),
	}
	entry, err := orchestrators.ExecuteEmailFeeReport(r.Context(), input, deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recordAudit(r, audit.CategoryReport, audit.ActionSend, "outbox", entry.ID, entry.Status)
	// 202: a failed first attempt stays queued for the retry loop.
	writeJSON(w, http.StatusAccepted, entry)
}
