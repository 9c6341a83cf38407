package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"teamdir.org/internal/access"
	"teamdir.org/internal/directory"
)

type createEventRequest struct {
	Name        string    `json:"name"`
	OneLiner    string    `json:"one_liner"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Datetime    time.Time `json:"datetime"`
	Location    string    `json:"location"`
	Image       string    `json:"image"`
	Department  string    `json:"department"`
	Register    string    `json:"register"`
}

type updateEventRequest struct {
	Name        *string    `json:"name"`
	OneLiner    *string    `json:"one_liner"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Datetime    *time.Time `json:"datetime"`
	Location    *string    `json:"location"`
	Image       *string    `json:"image"`
	Department  *string    `json:"department"`
	Register    *string    `json:"register"`
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, access.PermEvents) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		events, err := a.directory.ListEvents(r.Context())
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
	case http.MethodPost:
		var req createEventRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.directory.CreateEvent(r.Context(), directory.Event{
			Name:        req.Name,
			OneLiner:    req.OneLiner,
			Description: req.Description,
			Category:    req.Category,
			Datetime:    req.Datetime,
			Location:    req.Location,
			Image:       req.Image,
			Department:  req.Department,
			Register:    req.Register,
		})
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		a.recorder.Record(r.Context(), "event.create", "events", &created.ID, nil, created, "")
		w.Header().Set("Location", fmt.Sprintf("/v1/events/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEventResource(w http.ResponseWriter, r *http.Request) {
	id, rest, err := resourceID(r.URL.Path, "/v1/events/")
	if err != nil || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if !a.ensurePermission(w, r, access.PermEvents) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ev, err := a.directory.GetEvent(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	case http.MethodPatch:
		var req updateEventRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		before, err := a.directory.GetEvent(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		updated, err := a.directory.UpdateEvent(r.Context(), id, directory.EventPatch{
			Name:        req.Name,
			OneLiner:    req.OneLiner,
			Description: req.Description,
			Category:    req.Category,
			Datetime:    req.Datetime,
			Location:    req.Location,
			Image:       req.Image,
			Department:  req.Department,
			Register:    req.Register,
		})
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		a.recorder.Record(r.Context(), "event.update", "events", &id, before, updated, "")
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		before, err := a.directory.GetEvent(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		if err := a.directory.DeleteEvent(r.Context(), id); err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		a.recorder.Record(r.Context(), "event.delete", "events", &id, before, nil, "")
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

type createPhotoRequest struct {
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption"`
}

type updatePhotoRequest struct {
	ImageURL *string `json:"image_url"`
	Caption  *string `json:"caption"`
}

func (a *API) handlePhotos(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, access.PermPhotos) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		photos, err := a.directory.ListPhotos(r.Context())
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"photos": photos})
	case http.MethodPost:
		var req createPhotoRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.directory.CreatePhoto(r.Context(), directory.Photo{
			ImageURL: req.ImageURL,
			Caption:  req.Caption,
		})
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		a.recorder.Record(r.Context(), "photo.create", "photos", &created.ID, nil, created, "")
		w.Header().Set("Location", fmt.Sprintf("/v1/photos/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePhotoResource(w http.ResponseWriter, r *http.Request) {
	id, rest, err := resourceID(r.URL.Path, "/v1/photos/")
	if err != nil || rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if !a.ensurePermission(w, r, access.PermPhotos) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := a.directory.GetPhoto(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPatch:
		var req updatePhotoRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		before, err := a.directory.GetPhoto(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		updated, err := a.directory.UpdatePhoto(r.Context(), id, directory.PhotoPatch{
			ImageURL: req.ImageURL,
			Caption:  req.Caption,
		})
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		a.recorder.Record(r.Context(), "photo.update", "photos", &id, before, updated, "")
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		before, err := a.directory.GetPhoto(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		if err := a.directory.DeletePhoto(r.Context(), id); err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		// The DB row is the source of truth; losing the blob only leaks
		// storage, so removal failures are not surfaced.
		a.removeAsset(r, before.ImageURL)
		a.recorder.Record(r.Context(), "photo.delete", "photos", &id, before, nil, "")
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

type createPersonRequest struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	ProfileImage string `json:"profile_image"`
	Linkedin     string `json:"linkedin"`
	Twitter      string `json:"twitter"`
	Instagram    string `json:"instagram"`
	RoleID       *int64 `json:"role_id"`
	TeamID       *int64 `json:"team_id"`
	CanLogin     bool   `json:"can_login"`
	IsActive     *bool  `json:"is_active"`
	DisplayOrder int    `json:"display_order"`
}

// updatePersonRequest keeps role_id and team_id as raw JSON so an explicit
// null (clear the reference) is distinguishable from an absent field.
type updatePersonRequest struct {
	FullName     *string         `json:"full_name"`
	Email        *string         `json:"email"`
	ProfileImage *string         `json:"profile_image"`
	Linkedin     *string         `json:"linkedin"`
	Twitter      *string         `json:"twitter"`
	Instagram    *string         `json:"instagram"`
	RoleID       json.RawMessage `json:"role_id"`
	TeamID       json.RawMessage `json:"team_id"`
	CanLogin     *bool           `json:"can_login"`
	IsActive     *bool           `json:"is_active"`
	DisplayOrder *int            `json:"display_order"`
}

func (a *API) handlePeople(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, access.PermPeople) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		var filter directory.ListPeopleFilter
		if v := r.URL.Query().Get("include_inactive"); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				filter.IncludeInactive = b
			}
		}
		people, err := a.directory.ListPeople(r.Context(), filter)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"people": people})
	case http.MethodPost:
		var req createPersonRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		created, err := a.directory.CreatePerson(r.Context(), directory.Person{
			FullName:     req.FullName,
			Email:        req.Email,
			ProfileImage: req.ProfileImage,
			Linkedin:     req.Linkedin,
			Twitter:      req.Twitter,
			Instagram:    req.Instagram,
			RoleID:       req.RoleID,
			TeamID:       req.TeamID,
			CanLogin:     req.CanLogin,
			IsActive:     active,
			DisplayOrder: req.DisplayOrder,
		})
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		a.recorder.Record(r.Context(), "person.create", "people", &created.ID, nil, created, "")
		w.Header().Set("Location", fmt.Sprintf("/v1/people/%d", created.ID))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePersonResource(w http.ResponseWriter, r *http.Request) {
	id, rest, err := resourceID(r.URL.Path, "/v1/people/")
	if err != nil {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if rest == "grants" {
		a.handlePersonGrants(w, r, id)
		return
	}
	if rest == "password" {
		a.handlePersonPassword(w, r, id)
		return
	}
	if rest != "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if !a.ensurePermission(w, r, access.PermPeople) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := a.directory.GetPerson(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPatch:
		var req updatePersonRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		patch := directory.PersonPatch{
			FullName:     req.FullName,
			Email:        req.Email,
			ProfileImage: req.ProfileImage,
			Linkedin:     req.Linkedin,
			Twitter:      req.Twitter,
			Instagram:    req.Instagram,
			CanLogin:     req.CanLogin,
			IsActive:     req.IsActive,
			DisplayOrder: req.DisplayOrder,
		}
		if ref, err := decodeNullableID(req.RoleID); err != nil {
			writeError(w, r, http.StatusBadRequest, "role_id must be an integer or null")
			return
		} else if ref != nil {
			patch.RoleID = ref
		}
		if ref, err := decodeNullableID(req.TeamID); err != nil {
			writeError(w, r, http.StatusBadRequest, "team_id must be an integer or null")
			return
		} else if ref != nil {
			patch.TeamID = ref
		}
		before, err := a.directory.GetPerson(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		updated, err := a.directory.UpdatePerson(r.Context(), id, patch)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		a.recorder.Record(r.Context(), "person.update", "people", &id, before, updated, "")
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		before, err := a.directory.GetPerson(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		if err := a.directory.DeletePerson(r.Context(), id); err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		a.recorder.Record(r.Context(), "person.delete", "people", &id, before, nil, "")
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// Teams and roles are reference data for the person forms; reading them
// requires the same permission as managing people.
func (a *API) handleTeams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, access.PermPeople) {
		return
	}
	teams, err := a.directory.ListTeams(r.Context())
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, access.PermPeople) {
		return
	}
	roles, err := a.directory.ListRoles(r.Context())
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// removeAsset best-effort deletes a stored object referenced by url.
func (a *API) removeAsset(r *http.Request, rawURL string) {
	if a.assets == nil || rawURL == "" {
		return
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return
	}
	_ = a.assets.Remove(r.Context(), parts[0], parts[1])
}

// decodeNullableID maps raw JSON to the double-pointer patch convention:
// nil result means the field was absent, outer non-nil with inner nil means
// clear.
func decodeNullableID(raw json.RawMessage) (**int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if string(raw) == "null" {
		var cleared *int64
		return &cleared, nil
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	ptr := &id
	return &ptr, nil
}

// resourceID splits "/v1/<kind>/{id}[/rest]" into the numeric id and the
// remaining path.
func resourceID(path, prefix string) (int64, string, error) {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return 0, "", errors.New("missing id")
	}
	idPart := trimmed
	rest := ""
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		idPart, rest = trimmed[:i], trimmed[i+1:]
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", errors.New("invalid id")
	}
	return id, rest, nil
}

func handleDirectoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
