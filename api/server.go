/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack and the route table.
  This is the wiring layer that connects URLs to handlers and roles.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request
  2. requestLogger: zap line per request with trace id, status, duration
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the frontend
  5. Authenticate:  Bearer token + profile, on every /api route except
                    /api/health

ROLES:
  Applied per route with RequireRole. Reads are open to any role;
  writes to reference entities and settings are admin only; scheduling
  and deleting jobs is admin or supervisor; any role may patch a job
  (workers record actual hours and status).

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Authentication, roles, request log
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions are the deployment-dependent parts of the router.
type RouterOptions struct {
	CORSOrigins []string
	// EnableSeed mounts POST /api/seed.
	EnableSeed bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", TraceHeader},
		ExposedHeaders:   []string{TraceHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	admin := h.RequireRole(cleaning.RoleAdmin)
	managers := h.RequireRole(cleaning.RoleAdmin, cleaning.RoleSupervisor)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Get("/user-role", h.UserRole)

			// Reference entities
			h.mountEntities(r)

			// Jobs
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", h.ListJobs)
				r.With(managers).Post("/", h.CreateJob)
				r.Get("/estimate", h.EstimateJob)
				r.Get("/{id}", h.GetJob)
				r.Patch("/{id}", h.UpdateJob)
				r.With(managers).Delete("/{id}", h.DeleteJob)
			})

			// Settings
			r.Get("/settings", h.GetSettings)
			r.With(admin).Put("/settings", h.SaveSettings)

			// Reports and dashboard
			r.With(managers).Get("/reports", h.GetReport)
			r.With(managers).Get("/dashboard", h.GetDashboard)

			// Users
			r.With(admin).Put("/users/{id}", h.SaveUser)

			if opts.EnableSeed {
				r.With(admin).Post("/seed", h.Seed)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusNotFound, "no such route", nil)
	})
	return r
}
