package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"teamdir.org/internal/access"
	"teamdir.org/internal/obs"
)

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Permissions []string  `json:"permissions"`
}

func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	token, expiresAt, principal, err := a.access.IssueToken(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, access.ErrUnauthorized) || errors.Is(err, access.ErrNotFound) {
			// One message for every failure mode; no account probing.
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		logger := obs.Logger()
		logger.Error().Err(err).Msg("token issuance failed")
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Token:       token,
		ExpiresAt:   expiresAt,
		Permissions: permissionKeys(principal),
	})
}

// handleAuthMe returns the caller's identity and effective permission set,
// re-evaluated on every call so clients can refresh their gates.
func (a *API) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := access.PrincipalFromContext(r.Context())
	if !ok || !principal.Authenticated() {
		w.Header().Set("WWW-Authenticate", `Bearer realm="teamdir"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"person":      principal.Person,
		"permissions": permissionKeys(principal),
	})
}

func permissionKeys(p access.Principal) []string {
	keys := make([]string, 0, len(p.Permissions))
	for key := range p.Permissions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
