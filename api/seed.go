/*
seed.go - Sample data loader

PURPOSE:
  Fills the store with the demo data set of cleaning.SampleWrites in one
  atomic batch: clients c1-c2, buildings b1-b2, units u1-u3, employees
  e1-e4, teams t1-t2 and jobs j1-j6 around today.

USAGE VIA API:
  POST /api/seed
  {"reset": true}     drop every document first (store must support it)

NOTE:
  Seeding replaces documents with the same ids and leaves everything else
  alone unless reset is requested. Only use in development/demo
  environments; cmd/server mounts the route only when ENABLE_SEED is true.

SEE ALSO:
  - cleaning/seed.go: The data set
  - docstore/store.go: Resetter
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/alexisbanda/operations-management-system/docstore"
	"go.uber.org/zap"
)

// Seed loads the sample data set.
// POST /api/seed
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	// the body is optional
	var req SeedRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, r, &cleaning.ValidationError{Message: "invalid JSON body: " + err.Error()})
		return
	}

	ctx := r.Context()
	if req.Reset {
		resetter, ok := h.store.(docstore.Resetter)
		if !ok {
			h.respondError(w, r, &cleaning.ValidationError{Field: "reset", Message: "store does not support reset"})
			return
		}
		if err := resetter.Reset(ctx); err != nil {
			h.respondError(w, r, err)
			return
		}
		h.log.Warn("store reset", zap.String("trace_id", traceIDFrom(ctx)))
	}

	cfg, err := h.settings.Get(ctx)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writes := cleaning.SampleWrites(cfg, h.now().In(h.loc))
	if _, err := h.store.Commit(ctx, writes); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.log.Info("sample data seeded",
		zap.Int("documents", len(writes)),
		zap.Bool("reset", req.Reset),
		zap.String("trace_id", traceIDFrom(ctx)))
	writeJSON(w, http.StatusCreated, SeedResponse{Documents: len(writes), Reset: req.Reset})
}
