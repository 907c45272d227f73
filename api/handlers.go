/*
handlers.go - HTTP handlers for the operations API

PURPOSE:
  Exposes the cleaning domain over REST. Handlers parse the request, call
  the cleaning repositories and engines, and serialize the result. No
  business rule lives here.

ENDPOINTS:
  Entities (clients, buildings, units, employees, teams):
    GET    /api/{kind}            List, insertion order
    GET    /api/{kind}/{id}       Get
    POST   /api/{kind}            Add                      admin
    PATCH  /api/{kind}/{id}       Sparse update            admin
    DELETE /api/{kind}/{id}       Delete, no cascade       admin

  Jobs (jobs.go):
    GET    /api/jobs              List; ?group= or ?view=&date=
    POST   /api/jobs              Schedule one or a series admin, supervisor
    GET    /api/jobs/estimate     Estimate for ?unit_id=
    GET    /api/jobs/{id}         Get
    PATCH  /api/jobs/{id}         Sparse update
    DELETE /api/jobs/{id}         Delete                   admin, supervisor

  Reports (reports.go):
    GET    /api/reports           ?group_by=&start=&end=&format=xlsx
    GET    /api/dashboard         KPI summary

  Settings and users:
    GET    /api/settings
    PUT    /api/settings                                   admin
    PUT    /api/users/{id}        Upsert a profile         admin
    GET    /api/user-role         Role of the caller

ERROR HANDLING:
  Errors are returned as JSON {error, details}:
  - 400: cleaning.ErrValidation, malformed body or query
  - 401: missing, invalid or revoked token
  - 403: no profile, or role not allowed
  - 404: cleaning.NotFoundError
  - 500: storage failures and everything else (details are logged, not
         returned)

SEE ALSO:
  - middleware.go: Authentication and role checks
  - dto.go: Request/response shapes
  - server.go: Routes
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexisbanda/operations-management-system/auth"
	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// TokenVerifier turns a bearer token into a verified identity.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (cleaning.Identity, error)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Store      docstore.Store
	Verifier   TokenVerifier
	Terminator cleaning.SessionTerminator
	Logger     *zap.Logger
	// Location decides calendar-day boundaries; UTC when nil.
	Location        *time.Location
	MaxSeriesLength int
	// Now is time.Now when nil.
	Now func() time.Time
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	store    docstore.Store
	repos    *cleaning.Repositories
	jobs     *cleaning.JobRepository
	settings *cleaning.SettingsRepository
	profiles *cleaning.ProfileRepository
	sessions *cleaning.SessionResolver
	verifier TokenVerifier
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	terminator := d.Terminator
	if terminator != nil {
		terminator = LogTerminations(terminator, log)
	}

	repos := cleaning.NewRepositories(d.Store)
	settings := cleaning.NewSettingsRepository(d.Store)
	profiles := cleaning.NewProfileRepository(d.Store)
	return &Handler{
		store:    d.Store,
		repos:    repos,
		jobs:     cleaning.NewJobRepository(d.Store, repos, settings, cleaning.WithMaxSeriesLength(d.MaxSeriesLength)),
		settings: settings,
		profiles: profiles,
		sessions: cleaning.NewSessionResolver(profiles, terminator),
		verifier: d.Verifier,
		log:      log,
		loc:      loc,
		now:      now,
	}
}

// =============================================================================
// HEALTH AND CALLER
// =============================================================================

// Health is the unauthenticated liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UserRole returns the role of the authenticated caller.
// GET /api/user-role
func (h *Handler) UserRole(w http.ResponseWriter, r *http.Request) {
	profile, _ := ProfileFrom(r.Context())
	writeJSON(w, http.StatusOK, UserRoleDTO{ID: profile.Subject, Email: profile.Email, Role: profile.Role})
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSettings returns the saved rates, or the defaults.
// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SaveSettings replaces the rates.
// PUT /api/settings
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	cfg := cleaning.DefaultConfig()
	if err := decodeBody(w, r, &cfg); err != nil {
		h.respondError(w, r, err)
		return
	}
	saved, err := h.settings.Save(r.Context(), cfg)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// =============================================================================
// USERS
// =============================================================================

// SaveUser creates or replaces the profile of an identity subject.
// PUT /api/users/{id}
func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var req SaveUserRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	profile, err := h.profiles.Save(r.Context(), cleaning.Profile{
		Subject: chi.URLParam(r, "id"),
		Email:   req.Email,
		Role:    req.Role,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.log.Info("profile saved",
		zap.String("subject", profile.Subject),
		zap.String("role", string(profile.Role)),
		zap.String("trace_id", traceIDFrom(r.Context())))
	writeJSON(w, http.StatusOK, UserRoleDTO{ID: profile.Subject, Email: profile.Email, Role: profile.Role})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if status >= http.StatusInternalServerError {
		h.log.Error(message,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("trace_id", traceIDFrom(r.Context())),
			zap.Error(err))
	} else if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// respondError maps a domain or storage error onto a status code.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	h.writeError(w, r, status, message, err)
}

func classify(err error) (int, string) {
	switch {
	// first: a failed batch may also wrap docstore.ErrNotFound
	case errors.Is(err, docstore.ErrStorage):
		return http.StatusInternalServerError, "storage failure"
	case errors.Is(err, cleaning.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case cleaning.IsNotFound(err):
		return http.StatusNotFound, "not found"
	case errors.Is(err, cleaning.ErrUnauthorized):
		return http.StatusForbidden, "no profile for this identity"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevoked):
		return http.StatusUnauthorized, "invalid or revoked token"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// decodeBody decodes a JSON body into v. Malformed input is a
// ValidationError so it maps to 400.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &cleaning.ValidationError{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}
