package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"taskdeck.dev/internal/auth"
	"taskdeck.dev/internal/authz"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/healthz",
	"/readyz",
	"/metrics",
	"/",
}

// withAuth resolves the bearer token into an identity and stores it on the
// request context. Protected paths without a valid token never reach their
// handler.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error:  err.Error(),
				Reason: string(authz.DenyUnauthenticated),
			})
			return
		}

		identity, err := auth.ParseAndValidate(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{
					Error:  "invalid token",
					Reason: string(authz.DenyUnauthenticated),
				})
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), identity)))
	})
}

// identity returns the authenticated identity or nil. Handlers pass the
// result straight to the services; a nil identity is denied by the gate with
// the unauthenticated reason.
func (a *API) identity(r *http.Request) *authz.Identity {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return id
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
