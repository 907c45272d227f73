package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// =============================================================================
// JOB HANDLERS
// =============================================================================

// ListJobs returns jobs in storage order. ?group= narrows to one recurring
// series; ?view= and/or ?date= return the planner agenda instead.
// GET /api/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("view") || q.Has("date") {
		h.agenda(w, r)
		return
	}

	var (
		jobs []cleaning.Job
		err  error
	)
	if group := q.Get("group"); group != "" {
		jobs, err = h.jobs.ListByGroup(r.Context(), group)
	} else {
		jobs, err = h.jobs.List(r.Context())
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) agenda(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	anchor := h.now().In(h.loc)
	if raw := q.Get("date"); raw != "" {
		d, err := cleaning.ParseDate(raw, h.loc)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		anchor = d
	}

	snap, err := h.loadSnapshot(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	agenda, err := cleaning.BuildAgenda(cleaning.AgendaInput{
		Jobs:      snap.jobs,
		Units:     snap.units,
		Buildings: snap.buildings,
		Employees: snap.employees,
		Location:  h.loc,
	}, cleaning.View(q.Get("view")), anchor)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAgendaDTO(agenda))
}

// CreateJob schedules a single job or a whole recurring series.
// POST /api/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var body JobRequestBody
	if err := decodeBody(w, r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := h.toJobRequest(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	jobs, err := h.jobs.Schedule(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Recurrence.IsRecurring() {
		h.log.Info("recurring series created",
			zap.String("recurrence_group_id", jobs[0].RecurrenceGroupID),
			zap.String("recurrence", string(req.Recurrence)),
			zap.Int("jobs", len(jobs)),
			zap.String("trace_id", traceIDFrom(r.Context())))
	}
	writeJSON(w, http.StatusCreated, ScheduleResponse{Count: len(jobs), Jobs: jobs})
}

// GetJob returns a single job.
// GET /api/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// UpdateJob applies a sparse patch; null clears the optional fields.
// PATCH /api/jobs/{id}
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var body JobPatchBody
	if err := decodeBody(w, r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}
	patch := body.JobPatch
	if raw, ok := body.Date.Get(); ok {
		d, err := h.parseInstant("job_date", raw, false)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		patch.Date = cleaning.Some(d)
	}

	job, err := h.jobs.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// DeleteJob removes one job; the rest of its series is untouched.
// DELETE /api/jobs/{id}
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EstimateJob previews the hours a new job on a stored unit would get.
// GET /api/jobs/estimate?unit_id=
func (h *Handler) EstimateJob(w http.ResponseWriter, r *http.Request) {
	unitID := r.URL.Query().Get("unit_id")
	if unitID == "" {
		h.respondError(w, r, &cleaning.ValidationError{Field: "unit_id", Message: "query parameter is required"})
		return
	}
	unit, err := h.repos.Units.Get(r.Context(), unitID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EstimateDTO{UnitID: unit.ID, EstimatedHours: cleaning.Estimate(unit, cfg)})
}

// =============================================================================
// REQUEST CONVERSION
// =============================================================================

func (h *Handler) toJobRequest(body JobRequestBody) (cleaning.JobRequest, error) {
	req := cleaning.JobRequest{
		UnitID:        body.UnitID,
		Status:        body.Status,
		AssignedTeam:  body.AssignedTeam,
		TeamIDs:       body.TeamIDs,
		ActualHours:   body.ActualHours,
		InvoicedPrice: body.InvoicedPrice,
		Notes:         body.Notes,
		Recurrence:    body.Recurrence,
	}
	if body.JobDate != "" {
		d, err := h.parseInstant("job_date", body.JobDate, false)
		if err != nil {
			return req, err
		}
		req.Date = d
	}
	if body.RecurrenceEndDate != "" {
		// a bare date includes the whole last day
		d, err := h.parseInstant("recurrence_end_date", body.RecurrenceEndDate, true)
		if err != nil {
			return req, err
		}
		req.RecurrenceEndDate = &d
	}
	return req, nil
}

// parseInstant accepts RFC 3339 or a bare YYYY-MM-DD date in the handler's
// location, taken at midnight or, with endOfDay, at 23:59:59.
func (h *Handler) parseInstant(field, raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(cleaning.DateLayout, raw, h.loc)
	if err != nil {
		return time.Time{}, &cleaning.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%q is neither RFC 3339 nor YYYY-MM-DD", raw),
		}
	}
	if endOfDay {
		return cleaning.EndOfDay(d), nil
	}
	return d, nil
}
