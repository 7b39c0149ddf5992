package httpapi

import (
	"net/http"
	"strconv"

	"taskdeck.dev/internal/audit"
	"taskdeck.dev/internal/authz"
)

type auditListResponse struct {
	Items []audit.Record `json:"items"`
}

// handleAuditQuery serves the audit trail for the caller's accessible
// organizations, most recent first.
func (a *API) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity := a.identity(r)

	decision, err := a.gate.Authorize(r.Context(), identity, authz.PermViewAudit, "")
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if !decision.Allowed {
		handleDomainError(w, r, authz.DeniedError(decision.Reason))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	scope, err := a.gate.Scope(r.Context(), identity)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	items, err := a.recorder.Query(r.Context(), scope.IDs(), limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, auditListResponse{Items: items})
}
