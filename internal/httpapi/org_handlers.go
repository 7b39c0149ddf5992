package httpapi

import (
	"net/http"
	"strings"

	"taskdeck.dev/internal/directory"
)

type createOrgRequest struct {
	Name string `json:"name"`
}

type orgListResponse struct {
	Items []directory.Organization `json:"items"`
}

func (a *API) handleOrgsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// The caller's own organization.
		org, err := a.dir.GetOrganization(r.Context(), a.identity(r), "")
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, org)
	case http.MethodPost:
		a.createSubOrganization(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrgResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/children"); ok {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listChildOrganizations(w, r, id)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	org, err := a.dir.GetOrganization(r.Context(), a.identity(r), path)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) createSubOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.dir.CreateSubOrganization(r.Context(), a.identity(r), req.Name)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

// listChildOrganizations serves the caller's direct children. The id segment
// must match the caller's own organization; children of other nodes are not
// browsable.
func (a *API) listChildOrganizations(w http.ResponseWriter, r *http.Request, id string) {
	identity := a.identity(r)
	if identity != nil && id != identity.OrgID {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	items, err := a.dir.ListChildOrganizations(r.Context(), identity)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orgListResponse{Items: items})
}
