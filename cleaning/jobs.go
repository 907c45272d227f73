/*
jobs.go - Job repository adapter

PURPOSE:
  Creates, patches and deletes cleaning jobs. Creation is where the
  business rules meet storage:

    Create          one job; estimated hours computed from the unit
    CreateRecurring expand the recurrence rule, tag every job with one
                    group id, commit the whole series in a single batch
    Schedule        dispatch on the request's recurrence kind

ESTIMATION:
  estimated_hours is written once at creation and never recomputed, not
  even when a patch moves the job to another unit. Recurring series are
  estimated eagerly: the unit's estimate is computed once and copied to
  every job of the series.

TEAMS:
  A team selection is expanded into its member ids when the job is
  created or patched. Jobs store employee ids only.

ATOMICITY:
  A recurring series is one docstore.Commit. On failure nothing of the
  series is visible and the BatchWriteError is returned unchanged.

TIMESTAMPS:
  job_date and recurrence_end_date are docstore.Timestamp in storage and
  time.Time everywhere else; the conversion happens only in this file and
  in codec.go.

SEE ALSO:
  - estimate.go, recurrence.go: Pure engines used here
  - patch.go: Opt tri-state fields of JobPatch
*/
package cleaning

import (
	"context"
	"time"

	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/google/uuid"
)

// DefaultMaxSeriesLength bounds a single recurring request.
const DefaultMaxSeriesLength = 500

// =============================================================================
// REQUESTS
// =============================================================================

// JobRequest describes a job (or a recurring series) to schedule.
type JobRequest struct {
	UnitID            string     `json:"unit_id" validate:"required"`
	Date              time.Time  `json:"job_date" validate:"required"`
	Status            JobStatus  `json:"status"`
	AssignedTeam      []string   `json:"assigned_team"`
	TeamIDs           []string   `json:"team_ids"`
	ActualHours       *float64   `json:"actual_hours" validate:"omitempty,gte=0"`
	InvoicedPrice     *float64   `json:"invoiced_price" validate:"omitempty,gte=0"`
	Notes             string     `json:"notes"`
	Recurrence        Recurrence `json:"recurrence"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date"`
}

func (req *JobRequest) validate() error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if req.Status == "" {
		req.Status = StatusScheduled
	}
	if !req.Status.Valid() {
		return invalid("status", "unknown status %q", req.Status)
	}
	if !req.Recurrence.Valid() {
		return invalid("recurrence", "unknown recurrence %q", req.Recurrence)
	}
	return nil
}

// JobPatch is a sparse update. Absent fields are left untouched. Null
// clears actual_hours, invoiced_price and notes; null on any other field
// is treated as absent. TeamIDs are expanded and unioned into the
// assigned set (the patched one if given, otherwise the stored one).
type JobPatch struct {
	UnitID        Opt[string]    `json:"unit_id"`
	Date          Opt[time.Time] `json:"job_date"`
	Status        Opt[JobStatus] `json:"status"`
	ActualHours   Opt[float64]   `json:"actual_hours"`
	InvoicedPrice Opt[float64]   `json:"invoiced_price"`
	AssignedTeam  Opt[[]string]  `json:"assigned_team"`
	TeamIDs       []string       `json:"team_ids"`
	Notes         Opt[string]    `json:"notes"`
}

func (p JobPatch) validate() error {
	if v, ok := p.UnitID.Get(); ok && v == "" {
		return invalid("unit_id", "cannot be empty")
	}
	if v, ok := p.Date.Get(); ok && v.IsZero() {
		return invalid("job_date", "cannot be zero")
	}
	if v, ok := p.Status.Get(); ok && !v.Valid() {
		return invalid("status", "unknown status %q", v)
	}
	if v, ok := p.ActualHours.Get(); ok && v < 0 {
		return invalid("actual_hours", "must be >= 0")
	}
	if v, ok := p.InvoicedPrice.Get(); ok && v < 0 {
		return invalid("invoiced_price", "must be >= 0")
	}
	return nil
}

// touchesTeam reports whether the patch changes the assigned employees.
func (p JobPatch) touchesTeam() bool {
	_, ok := p.AssignedTeam.Get()
	return ok || len(p.TeamIDs) > 0
}

// fields converts the patch into the store's sparse field set.
func (p JobPatch) fields(team []string) docstore.Fields {
	f := docstore.Fields{}
	if v, ok := p.UnitID.Get(); ok {
		f["unit_id"] = v
	}
	if v, ok := p.Date.Get(); ok {
		f["job_date"] = docstore.NewTimestamp(v)
	}
	if v, ok := p.Status.Get(); ok {
		f["status"] = string(v)
	}
	clearable := func(key string, value any, set, null bool) {
		switch {
		case set:
			f[key] = value
		case null:
			f[key] = nil
		}
	}
	ah, ok := p.ActualHours.Get()
	clearable("actual_hours", ah, ok, p.ActualHours.IsNull())
	ip, ok := p.InvoicedPrice.Get()
	clearable("invoiced_price", ip, ok, p.InvoicedPrice.IsNull())
	notes, ok := p.Notes.Get()
	clearable("notes", notes, ok, p.Notes.IsNull())
	if team != nil {
		f["assigned_team"] = team
	}
	return f
}

// =============================================================================
// REPOSITORY
// =============================================================================

type JobRepository struct {
	store      docstore.Store
	units      *Repository[Unit, *Unit]
	teams      *Repository[Team, *Team]
	settings   *SettingsRepository
	maxSeries  int
	newGroupID func() string
}

// JobOption configures a JobRepository.
type JobOption func(*JobRepository)

// WithMaxSeriesLength bounds the number of jobs one recurring request may
// create.
func WithMaxSeriesLength(n int) JobOption {
	return func(r *JobRepository) {
		if n > 0 {
			r.maxSeries = n
		}
	}
}

// WithGroupIDGenerator replaces the uuid group id generator.
func WithGroupIDGenerator(fn func() string) JobOption {
	return func(r *JobRepository) { r.newGroupID = fn }
}

func NewJobRepository(store docstore.Store, repos *Repositories, settings *SettingsRepository, opts ...JobOption) *JobRepository {
	r := &JobRepository{
		store:      store,
		units:      repos.Units,
		teams:      repos.Teams,
		settings:   settings,
		maxSeries:  DefaultMaxSeriesLength,
		newGroupID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schedule creates a single job or a recurring series depending on
// req.Recurrence.
func (r *JobRepository) Schedule(ctx context.Context, req JobRequest) ([]Job, error) {
	if req.Recurrence.IsRecurring() {
		return r.CreateRecurring(ctx, req)
	}
	job, err := r.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return []Job{job}, nil
}

// Create writes one non-recurring job.
func (r *JobRepository) Create(ctx context.Context, req JobRequest) (Job, error) {
	if err := req.validate(); err != nil {
		return Job{}, err
	}
	if req.Recurrence.IsRecurring() {
		return Job{}, invalid("recurrence", "recurring requests must go through CreateRecurring")
	}

	job, err := r.template(ctx, req)
	if err != nil {
		return Job{}, err
	}
	job.Recurrence = RecurrenceNone

	id, err := r.store.Add(ctx, CollectionJobs, job.fields())
	if err != nil {
		return Job{}, err
	}
	job.ID = id
	return job, nil
}

// CreateRecurring expands req into a series sharing one group id and
// commits it atomically.
func (r *JobRepository) CreateRecurring(ctx context.Context, req JobRequest) ([]Job, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if !req.Recurrence.IsRecurring() {
		return nil, invalid("recurrence", "must be daily, weekly, biweekly or monthly")
	}
	if req.RecurrenceEndDate == nil || req.RecurrenceEndDate.IsZero() {
		return nil, invalid("recurrence_end_date", "required for recurring jobs")
	}
	end := *req.RecurrenceEndDate
	if req.Date.After(end) {
		return nil, invalid("recurrence_end_date", "is before job_date")
	}
	if n := SeriesLength(req.Date, end, req.Recurrence, r.maxSeries); n > r.maxSeries {
		return nil, invalid("recurrence_end_date", "series exceeds %d jobs", r.maxSeries)
	}

	base, err := r.template(ctx, req)
	if err != nil {
		return nil, err
	}
	base.Recurrence = req.Recurrence
	base.RecurrenceEndDate = &end
	base.RecurrenceGroupID = r.newGroupID()

	dates := Expand(req.Date, end, req.Recurrence)
	jobs := make([]Job, len(dates))
	writes := make([]docstore.Write, len(dates))
	for i, d := range dates {
		job := base
		job.Date = d
		job.AssignedTeam = nonNil(base.AssignedTeam)
		jobs[i] = job
		writes[i] = docstore.AddWrite(CollectionJobs, job.fields())
	}

	ids, err := r.store.Commit(ctx, writes)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		jobs[i].ID = ids[i]
	}
	return jobs, nil
}

// template builds the fields shared by every job created from req.
func (r *JobRepository) template(ctx context.Context, req JobRequest) (Job, error) {
	unit, err := r.units.Get(ctx, req.UnitID)
	if err != nil {
		return Job{}, err
	}
	cfg, err := r.settings.Get(ctx)
	if err != nil {
		return Job{}, err
	}
	team, err := r.expandTeam(ctx, req.AssignedTeam, req.TeamIDs)
	if err != nil {
		return Job{}, err
	}
	return Job{
		UnitID:         req.UnitID,
		Date:           req.Date,
		Status:         req.Status,
		EstimatedHours: Estimate(unit, cfg),
		ActualHours:    req.ActualHours,
		InvoicedPrice:  req.InvoicedPrice,
		AssignedTeam:   team,
		Notes:          req.Notes,
	}, nil
}

// Update applies patch to job id and returns the merged job.
func (r *JobRepository) Update(ctx context.Context, id string, patch JobPatch) (Job, error) {
	if err := patch.validate(); err != nil {
		return Job{}, err
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}

	var team []string
	if patch.touchesTeam() {
		base, ok := patch.AssignedTeam.Get()
		if !ok {
			base = current.AssignedTeam
		}
		if team, err = r.expandTeam(ctx, base, patch.TeamIDs); err != nil {
			return Job{}, err
		}
	}

	fields := patch.fields(team)
	if len(fields) == 0 {
		return current, nil
	}
	if err := r.store.Update(ctx, CollectionJobs, id, fields); err != nil {
		return Job{}, notFound("job", id, err)
	}
	return r.Get(ctx, id)
}

// Delete removes job id. A missing id is a NotFoundError.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	return notFound("job", id, r.store.Delete(ctx, CollectionJobs, id))
}

func (r *JobRepository) Get(ctx context.Context, id string) (Job, error) {
	doc, err := r.store.Get(ctx, CollectionJobs, id)
	if err != nil {
		return Job{}, notFound("job", id, err)
	}
	var job Job
	if err := decodeDocument(doc, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// List returns every job in storage order.
func (r *JobRepository) List(ctx context.Context) ([]Job, error) {
	docs, err := r.store.List(ctx, CollectionJobs)
	if err != nil {
		return nil, err
	}
	return decodeJobs(docs)
}

// ListByGroup returns the jobs of one recurring series.
func (r *JobRepository) ListByGroup(ctx context.Context, groupID string) ([]Job, error) {
	docs, err := r.store.Query(ctx, CollectionJobs, "recurrence_group_id", groupID)
	if err != nil {
		return nil, err
	}
	return decodeJobs(docs)
}

func decodeJobs(docs []docstore.Document) ([]Job, error) {
	jobs := make([]Job, 0, len(docs))
	for _, doc := range docs {
		var job Job
		if err := decodeDocument(doc, &job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// expandTeam unions explicitly selected employees with the members of the
// selected teams. Order is kept and duplicates are dropped.
func (r *JobRepository) expandTeam(ctx context.Context, employees, teamIDs []string) ([]string, error) {
	seen := make(map[string]bool, len(employees))
	out := make([]string, 0, len(employees))
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range employees {
		add(id)
	}
	for _, teamID := range teamIDs {
		team, err := r.teams.Get(ctx, teamID)
		if err != nil {
			return nil, err
		}
		for _, id := range team.EmployeeIDs {
			add(id)
		}
	}
	return out, nil
}
