package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"taskdeck.dev/internal/audit"
	"taskdeck.dev/internal/auth"
	"taskdeck.dev/internal/authz"
	"taskdeck.dev/internal/directory"
	"taskdeck.dev/internal/task"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// decodeJSON enforces a single JSON object with known fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// handleDomainError translates service errors into HTTP responses. Denials
// keep their reason in the body so clients can distinguish a missing
// capability from an out-of-scope target.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if denied, ok := authz.AsDenied(err); ok {
		code := http.StatusForbidden
		if denied.Reason == authz.DenyUnauthenticated {
			code = http.StatusUnauthorized
		}
		writeJSON(w, code, errorResponse{Error: "access denied", Reason: string(denied.Reason)})
		return
	}
	switch {
	case errors.Is(err, task.ErrNotFound),
		errors.Is(err, directory.ErrNotFound),
		errors.Is(err, authz.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, directory.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "resource already exists")
	case errors.Is(err, task.ErrInvalidInput),
		errors.Is(err, directory.ErrInvalidInput),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, audit.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, authz.ErrStorage), errors.Is(err, audit.ErrStorage):
		writeError(w, r, http.StatusInternalServerError, "storage failure")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
