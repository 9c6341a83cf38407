package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"teamdir.org/internal/access"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/token",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth resolves the bearer token to a principal once per request. Routes
// decide authorization themselves via ensurePermission; the middleware only
// establishes identity.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.access == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="teamdir"`)
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.access.AuthenticateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, access.ErrInvalidToken), errors.Is(err, access.ErrNotFound):
				w.Header().Set("WWW-Authenticate", `Bearer realm="teamdir", error="invalid_token"`)
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := access.ContextWithPrincipal(r.Context(), principal)
		ctx = access.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensurePermission writes the error response itself and reports whether the
// request may proceed. Every permission the caller lacks ends the same way:
// 403 with a generic message, no hint which grants exist.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, keys ...string) bool {
	principal, ok := access.PrincipalFromContext(r.Context())
	if !ok || !principal.Authenticated() {
		w.Header().Set("WWW-Authenticate", `Bearer realm="teamdir"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return false
	}
	if !principal.HasAnyPermission(keys...) {
		writeError(w, r, http.StatusForbidden, "permission denied")
		return false
	}
	return true
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
