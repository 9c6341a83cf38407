// Package httpapi is the HTTP surface of the admin service. Every mutating
// route sits behind bearer authentication and a permission gate; the gate is
// the security boundary, clients only mirror it for UX.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"teamdir.org/internal/access"
	"teamdir.org/internal/assets"
	"teamdir.org/internal/audit"
	"teamdir.org/internal/directory"
	"teamdir.org/internal/obs"
)

// ReadyProbe checks backing-store readiness, typically a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type API struct {
	mux        *http.ServeMux
	directory  *directory.Service
	access     *access.Service
	assets     *assets.Pipeline
	uploads    UploadConfig
	recorder   *audit.Recorder
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

// UploadConfig fixes where uploaded assets land.
type UploadConfig struct {
	EventBucket  string
	PhotoBucket  string
	AvatarBucket string
}

func New(dir *directory.Service, acc *access.Service, pipeline *assets.Pipeline, uploads UploadConfig, recorder *audit.Recorder, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		directory:  dir,
		access:     acc,
		assets:     pipeline,
		uploads:    uploads,
		recorder:   recorder,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)
	a.mux.HandleFunc("/v1/auth/me", a.handleAuthMe)

	// directory
	a.mux.HandleFunc("/v1/events", a.handleEvents)
	a.mux.HandleFunc("/v1/events/", a.handleEventResource)
	a.mux.HandleFunc("/v1/photos", a.handlePhotos)
	a.mux.HandleFunc("/v1/photos/", a.handlePhotoResource)
	a.mux.HandleFunc("/v1/people", a.handlePeople)
	a.mux.HandleFunc("/v1/people/", a.handlePersonResource)
	a.mux.HandleFunc("/v1/teams", a.handleTeams)
	a.mux.HandleFunc("/v1/roles", a.handleRoles)

	// access administration
	a.mux.HandleFunc("/v1/permissions", a.handlePermissions)
	a.mux.HandleFunc("/v1/grants/", a.handleGrantResource)

	// asset uploads
	a.mux.HandleFunc("/v1/uploads", a.handleUpload)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler composes the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 10<<20)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "teamdir-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "teamdir-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
