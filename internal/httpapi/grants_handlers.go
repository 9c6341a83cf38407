package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"teamdir.org/internal/access"
)

type createGrantRequest struct {
	PermissionKey string     `json:"permission_id"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Notes         string     `json:"notes"`
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

// handlePersonGrants serves GET and POST /v1/people/{id}/grants.
func (a *API) handlePersonGrants(w http.ResponseWriter, r *http.Request, personID int64) {
	if !a.ensurePermission(w, r, access.PermGrants) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		grants, err := a.access.GrantsFor(r.Context(), personID)
		if err != nil {
			handleAccessError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"grants": grants})
	case http.MethodPost:
		var req createGrantRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		grant := access.Grant{
			PersonID:      personID,
			PermissionKey: strings.TrimSpace(req.PermissionKey),
			ExpiresAt:     req.ExpiresAt,
			Notes:         req.Notes,
		}
		if principal, ok := access.PrincipalFromContext(r.Context()); ok && principal.Person != nil {
			grant.GrantedBy = &principal.Person.ID
		}
		created, err := a.access.Grant(r.Context(), grant)
		if err != nil {
			handleAccessError(w, r, err)
			return
		}
		a.recorder.Record(r.Context(), "grant.create", "people_permissions", &created.ID, nil, created, "")
		w.Header().Set("Location", fmt.Sprintf("/v1/grants/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleGrantResource serves DELETE /v1/grants/{id}.
func (a *API) handleGrantResource(w http.ResponseWriter, r *http.Request) {
	id, rest, err := resourceID(r.URL.Path, "/v1/grants/")
	if err != nil || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if !a.ensurePermission(w, r, access.PermGrants) {
		return
	}
	if err := a.access.Revoke(r.Context(), id); err != nil {
		handleAccessError(w, r, err)
		return
	}
	a.recorder.Record(r.Context(), "grant.revoke", "people_permissions", &id, nil, nil, "")
	w.WriteHeader(http.StatusNoContent)
}

// handlePermissions lists the permission catalog for the grants admin UI.
func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, access.PermGrants) {
		return
	}
	perms, err := a.access.ListPermissions(r.Context())
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

// handlePersonPassword serves PUT /v1/people/{id}/password.
func (a *API) handlePersonPassword(w http.ResponseWriter, r *http.Request, personID int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensurePermission(w, r, access.PermPeople) {
		return
	}
	var req setPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.access.SetPassword(r.Context(), personID, req.Password); err != nil {
		handleAccessError(w, r, err)
		return
	}
	// Snapshots would leak the hash; record the action only.
	a.recorder.Record(r.Context(), "person.password.set", "people", &personID, nil, nil, "")
	w.WriteHeader(http.StatusNoContent)
}

func handleAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, access.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, access.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, access.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, access.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
