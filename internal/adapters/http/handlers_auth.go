package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"fitadmin/internal/adapters/http/middleware"
	"fitadmin/internal/application/orchestrators"
	"fitadmin/internal/application/projections"
	"fitadmin/internal/domain/account"
	"fitadmin/internal/domain/audit"
)

// handleLogin handles POST /api/login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var input orchestrators.LoginInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	deps := orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
		Clock:        orchestratorClock(),
	}
	result, err := orchestrators.ExecuteLogin(r.Context(), input, deps)
	if err != nil {
		if errors.Is(err, orchestrators.ErrInvalidCredentials) || errors.Is(err, account.ErrLocked) {
			recordAuditAs(r.Context(), audit.NewEvent(timeNow(), audit.CategoryAccount, audit.ActionLoginFailed).
				By("", input.Email).
				From(middleware.ClientIP(r)))
		}
		var locked *account.LockedError
		if errors.As(err, &locked) {
			w.Header().Set("Retry-After", strconv.Itoa(int(locked.RetryAfter(timeNow()).Seconds())))
		}
		writeError(w, r, err)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Email, result.Role)
	if err != nil {
		internalError(w, r, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	recordAuditAs(r.Context(), audit.NewEvent(timeNow(), audit.CategoryAccount, audit.ActionLogin).
		By(result.AccountID, result.Email).
		On("account", result.AccountID).
		From(middleware.ClientIP(r)))
	writeJSON(w, http.StatusOK, result)
}

// handleLogout handles POST /api/logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if token := middleware.SessionToken(r); token != "" {
		sessions.Delete(token)
	}
	slog.Info("auth_event", "event", "logout", "account_id", sessionOf(r).AccountID)
	recordAudit(r, audit.CategoryAccount, audit.ActionLogout, "account", sessionOf(r).AccountID, "")
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleSession handles GET /api/session, returning the signed-in account.
func handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, sessionOf(r))
}

// handleChangePassword handles POST /api/account/password
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	session := sessionOf(r)

	var input orchestrators.ChangePasswordInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	input.AccountID = session.AccountID

	deps := orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore, Clock: orchestratorClock()}
	if err := orchestrators.ExecuteChangePassword(r.Context(), input, deps); err != nil {
		if errors.Is(err, orchestrators.ErrInvalidCredentials) {
			badRequest(w, "current password is incorrect")
			return
		}
		writeError(w, r, err)
		return
	}

	// Other devices signed in with the old password are signed out.
	ended := sessions.DeleteAccount(session.AccountID, middleware.SessionToken(r))
	recordAudit(r, audit.CategoryAccount, audit.ActionPasswordChange, "account", session.AccountID,
		fmt.Sprintf("%d other sessions ended", ended))
	w.WriteHeader(http.StatusNoContent)
}

// handleAccounts handles GET and POST /api/accounts (admin only).
func handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		views, err := projections.QueryListAccounts(r.Context(), projections.ListAccountsDeps{
			Accounts: stores.AccountStore,
			Clock:    projectionClock(),
		})
		if err != nil {
			internalError(w, r, err)
			return
		}
		w.Header().Set("X-Total-Count", strconv.Itoa(len(views)))
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		createAccount(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func createAccount(w http.ResponseWriter, r *http.Request) {

	var input orchestrators.CreateAccountInput
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	deps := orchestrators.CreateAccountDeps{
		AccountStore: stores.AccountStore,
		Clock:        orchestratorClock(),
	}
	acct, err := orchestrators.ExecuteCreateAccount(r.Context(), input, deps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recordAudit(r, audit.CategoryAccount, audit.ActionCreate, "account", acct.ID, acct.Email+" as "+acct.Role)
	writeJSON(w, http.StatusCreated, orchestrators.LoginResult{
		AccountID: acct.ID,
		Email:     acct.Email,
		Role:      acct.Role,
	})
}
