package api

import (
	"context"
	"net/http"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/go-chi/chi/v5"
)

// =============================================================================
// ENTITY ROUTES - One set of CRUD routes per kind
// =============================================================================

// entityRepository is the part of cleaning.Repository the routes use.
type entityRepository[T any] interface {
	Kind() cleaning.Kind
	All(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Add(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, patch docstore.Fields) (T, error)
	Delete(ctx context.Context, id string) error
}

// mountEntities registers every reference entity kind.
func (h *Handler) mountEntities(r chi.Router) {
	mountEntity[cleaning.Client](r, h, h.repos.Clients)
	mountEntity[cleaning.Building](r, h, h.repos.Buildings)
	mountEntity[cleaning.Unit](r, h, h.repos.Units)
	mountEntity[cleaning.Employee](r, h, h.repos.Employees)
	mountEntity[cleaning.Team](r, h, h.repos.Teams)
}

func mountEntity[T any](r chi.Router, h *Handler, repo entityRepository[T]) {
	adminOnly := h.RequireRole(cleaning.RoleAdmin)

	r.Route("/"+string(repo.Kind()), func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			items, err := repo.All(r.Context())
			if err != nil {
				h.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, items)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			item, err := repo.Get(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				h.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, item)
		})

		r.With(adminOnly).Post("/", func(w http.ResponseWriter, r *http.Request) {
			var item T
			if err := decodeBody(w, r, &item); err != nil {
				h.respondError(w, r, err)
				return
			}
			created, err := repo.Add(r.Context(), item)
			if err != nil {
				h.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, created)
		})

		r.With(adminOnly).Patch("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var patch map[string]any
			if err := decodeBody(w, r, &patch); err != nil {
				h.respondError(w, r, err)
				return
			}
			updated, err := repo.Update(r.Context(), chi.URLParam(r, "id"), docstore.Fields(patch))
			if err != nil {
				h.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		})

		r.With(adminOnly).Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
				h.respondError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}
