package cleaning_test

import (
	"context"
	"testing"
	"time"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type env struct {
	store    docstore.Store
	repos    *cleaning.Repositories
	settings *cleaning.SettingsRepository
	jobs     *cleaning.JobRepository
	unit     cleaning.Unit
}

func newEnv(t *testing.T, store docstore.Store, opts ...cleaning.JobOption) *env {
	t.Helper()
	ctx := context.Background()
	repos := cleaning.NewRepositories(store)
	settings := cleaning.NewSettingsRepository(store)

	building, err := repos.Buildings.Add(ctx, cleaning.Building{Name: "Tower"})
	require.NoError(t, err)
	unit, err := repos.Units.Add(ctx, cleaning.Unit{
		NameIdentifier: "Apt 1", BuildingID: building.ID,
		SquareMeters: 150, RoomCount: 5, BathroomCount: 2, HasLargeWindows: true,
		FixedPrice: 200,
	})
	require.NoError(t, err)

	return &env{
		store:    store,
		repos:    repos,
		settings: settings,
		jobs:     cleaning.NewJobRepository(store, repos, settings, opts...),
		unit:     unit,
	}
}

// failingCommit makes every batch fail on its last write, after the real
// writes have been applied.
type failingCommit struct {
	*docstore.Memory
}

func (f failingCommit) Commit(ctx context.Context, writes []docstore.Write) ([]string, error) {
	poisoned := append(append([]docstore.Write(nil), writes...), docstore.Write{
		Kind: docstore.WriteUpdate, Collection: cleaning.CollectionJobs, ID: "does-not-exist",
		Fields: docstore.Fields{"status": "completed"},
	})
	return f.Memory.Commit(ctx, poisoned)
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_ComputesEstimateFromUnitAndSettings(t *testing.T) {
	// GIVEN: The reference unit and default settings
	// WHEN: Creating a one-off job
	// THEN: Estimated hours are 3.83 and the job is stored scheduled
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())

	job, err := e.jobs.Create(ctx, cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 3, 4)})
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 3.83, job.EstimatedHours)
	assert.Equal(t, cleaning.StatusScheduled, job.Status)
	assert.Equal(t, cleaning.RecurrenceNone, job.Recurrence)
	assert.Empty(t, job.RecurrenceGroupID)

	stored, err := e.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job, stored)
}

func TestCreate_UsesSavedSettings(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())
	cfg := cleaning.DefaultConfig()
	cfg.MinutesPerRoom = 30
	_, err := e.settings.Save(ctx, cfg)
	require.NoError(t, err)

	job, err := e.jobs.Create(ctx, cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 3, 4)})
	require.NoError(t, err)

	// 75 + 150 + 50 + 30 = 305 min
	assert.Equal(t, 5.08, job.EstimatedHours)
}

func TestCreate_EstimateNeverRecomputed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())
	job, err := e.jobs.Create(ctx, cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 3, 4)})
	require.NoError(t, err)

	_, err = e.repos.Units.Update(ctx, e.unit.ID, docstore.Fields{"square_meters": 1000})
	require.NoError(t, err)
	updated, err := e.jobs.Update(ctx, job.ID, cleaning.JobPatch{Status: cleaning.Some(cleaning.StatusCompleted)})
	require.NoError(t, err)

	assert.Equal(t, 3.83, updated.EstimatedHours)
}

func TestCreate_RejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())

	tests := []struct {
		name    string
		req     cleaning.JobRequest
		wantErr error
	}{
		{"missing unit id", cleaning.JobRequest{Date: day(2024, 1, 1)}, cleaning.ErrValidation},
		{"missing date", cleaning.JobRequest{UnitID: e.unit.ID}, cleaning.ErrValidation},
		{"unknown status", cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), Status: "done"}, cleaning.ErrValidation},
		{"negative hours", cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), ActualHours: f64(-1)}, cleaning.ErrValidation},
		{"unknown unit", cleaning.JobRequest{UnitID: "ghost", Date: day(2024, 1, 1)}, cleaning.ErrNotFound},
		{"unknown team", cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), TeamIDs: []string{"ghost"}}, cleaning.ErrNotFound},
		{"recurring via Create", cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), Recurrence: cleaning.RecurrenceDaily}, cleaning.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.jobs.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	jobs, err := e.jobs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected requests write nothing")
}

func TestCreate_ExpandsTeamsIntoEmployees(t *testing.T) {
	// GIVEN: Employees e1..e3 and a team of [e2, e3]
	// WHEN: Scheduling with assigned [e1, e2] plus the team
	// THEN: The job stores [e1, e2, e3] and no team reference
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())
	var ids []string
	for _, name := range []string{"Ana", "Bea", "Cruz"} {
		emp, err := e.repos.Employees.Add(ctx, cleaning.Employee{Name: name})
		require.NoError(t, err)
		ids = append(ids, emp.ID)
	}
	team, err := e.repos.Teams.Add(ctx, cleaning.Team{Name: "Night", EmployeeIDs: ids[1:]})
	require.NoError(t, err)

	job, err := e.jobs.Create(ctx, cleaning.JobRequest{
		UnitID: e.unit.ID, Date: day(2024, 1, 1),
		AssignedTeam: ids[:2], TeamIDs: []string{team.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, ids, job.AssignedTeam)
	doc, err := e.store.Get(ctx, cleaning.CollectionJobs, job.ID)
	require.NoError(t, err)
	assert.NotContains(t, doc.Fields, "team_ids")
}

// =============================================================================
// RECURRING
// =============================================================================

func TestCreateRecurring_WeeklySeriesRoundTrip(t *testing.T) {
	// GIVEN: Weekly from 2024-01-01 to 2024-01-22
	// WHEN: Scheduling
	// THEN: Four jobs share one group id and can be listed by it
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory(), cleaning.WithGroupIDGenerator(func() string { return "grp-1" }))
	end := day(2024, 1, 22)

	jobs, err := e.jobs.Schedule(ctx, cleaning.JobRequest{
		UnitID: e.unit.ID, Date: day(2024, 1, 1),
		Recurrence: cleaning.RecurrenceWeekly, RecurrenceEndDate: &end,
	})
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	series, err := e.jobs.ListByGroup(ctx, "grp-1")
	require.NoError(t, err)
	assert.Equal(t, jobs, series)

	wantDates := []time.Time{day(2024, 1, 1), day(2024, 1, 8), day(2024, 1, 15), day(2024, 1, 22)}
	for i, job := range series {
		assert.Equal(t, wantDates[i], job.Date)
		assert.Equal(t, "grp-1", job.RecurrenceGroupID)
		assert.Equal(t, cleaning.RecurrenceWeekly, job.Recurrence)
		assert.Equal(t, 3.83, job.EstimatedHours)
		require.NotNil(t, job.RecurrenceEndDate)
		assert.True(t, end.Equal(*job.RecurrenceEndDate))
	}
}

func TestCreateRecurring_GroupsAreDistinct(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())
	end := day(2024, 1, 3)
	req := cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), Recurrence: cleaning.RecurrenceDaily, RecurrenceEndDate: &end}

	first, err := e.jobs.CreateRecurring(ctx, req)
	require.NoError(t, err)
	second, err := e.jobs.CreateRecurring(ctx, req)
	require.NoError(t, err)

	assert.NotEqual(t, first[0].RecurrenceGroupID, second[0].RecurrenceGroupID)
	series, err := e.jobs.ListByGroup(ctx, first[0].RecurrenceGroupID)
	require.NoError(t, err)
	assert.Len(t, series, 3)
}

func TestCreateRecurring_Rejections(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory(), cleaning.WithMaxSeriesLength(5))
	before := day(2023, 12, 31)
	far := day(2024, 1, 10)

	tests := []struct {
		name    string
		req     cleaning.JobRequest
		wantErr error
	}{
		{"no end date", cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), Recurrence: cleaning.RecurrenceWeekly}, cleaning.ErrValidation},
		{"end before start", cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), Recurrence: cleaning.RecurrenceWeekly, RecurrenceEndDate: &before}, cleaning.ErrValidation},
		{"too many jobs", cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), Recurrence: cleaning.RecurrenceDaily, RecurrenceEndDate: &far}, cleaning.ErrValidation},
		{"not recurring", cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), RecurrenceEndDate: &far}, cleaning.ErrValidation},
		{"unknown rule", cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 1, 1), Recurrence: "yearly", RecurrenceEndDate: &far}, cleaning.ErrValidation},
		{"unknown unit", cleaning.JobRequest{UnitID: "ghost", Date: day(2024, 1, 1), Recurrence: cleaning.RecurrenceWeekly, RecurrenceEndDate: &far}, cleaning.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.jobs.CreateRecurring(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	jobs, err := e.jobs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCreateRecurring_AllOrNothing(t *testing.T) {
	// GIVEN: A store whose batch commit fails after the series was applied
	// WHEN: Scheduling a daily series
	// THEN: A storage error is returned and no job of the series is visible
	ctx := context.Background()
	e := newEnv(t, failingCommit{docstore.NewMemory()})
	end := day(2024, 1, 5)

	_, err := e.jobs.CreateRecurring(ctx, cleaning.JobRequest{
		UnitID: e.unit.ID, Date: day(2024, 1, 1),
		Recurrence: cleaning.RecurrenceDaily, RecurrenceEndDate: &end,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrStorage)
	var batchErr *docstore.BatchWriteError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 5, batchErr.Index)

	jobs, err := e.jobs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

// =============================================================================
// UPDATE & DELETE
// =============================================================================

func TestUpdate_PartialLeavesOtherFieldsUntouched(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())
	created, err := e.jobs.Create(ctx, cleaning.JobRequest{
		UnitID: e.unit.ID, Date: day(2024, 2, 1), Notes: "key at desk",
		AssignedTeam: []string{"e1"}, InvoicedPrice: f64(180),
	})
	require.NoError(t, err)

	updated, err := e.jobs.Update(ctx, created.ID, cleaning.JobPatch{
		Status:      cleaning.Some(cleaning.StatusCompleted),
		ActualHours: cleaning.Some(4.5),
	})
	require.NoError(t, err)

	want := created
	want.Status = cleaning.StatusCompleted
	want.ActualHours = f64(4.5)
	assert.Equal(t, want, updated)
}

func TestUpdate_NullClearsOptionalFields(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())
	created, err := e.jobs.Create(ctx, cleaning.JobRequest{
		UnitID: e.unit.ID, Date: day(2024, 2, 1), Notes: "n",
		ActualHours: f64(2), InvoicedPrice: f64(100),
	})
	require.NoError(t, err)

	updated, err := e.jobs.Update(ctx, created.ID, cleaning.JobPatch{
		ActualHours:   cleaning.Null[float64](),
		InvoicedPrice: cleaning.Null[float64](),
		Notes:         cleaning.Null[string](),
		UnitID:        cleaning.Null[string](),
	})
	require.NoError(t, err)

	assert.Nil(t, updated.ActualHours)
	assert.Nil(t, updated.InvoicedPrice)
	assert.Empty(t, updated.Notes)
	assert.Equal(t, e.unit.ID, updated.UnitID, "null on a required field is ignored")
}

func TestUpdate_TeamIDsUnionIntoStoredTeam(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())
	team, err := e.repos.Teams.Add(ctx, cleaning.Team{Name: "Pair", EmployeeIDs: []string{"e2", "e3"}})
	require.NoError(t, err)
	created, err := e.jobs.Create(ctx, cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 2, 1), AssignedTeam: []string{"e1", "e2"}})
	require.NoError(t, err)

	updated, err := e.jobs.Update(ctx, created.ID, cleaning.JobPatch{TeamIDs: []string{team.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3"}, updated.AssignedTeam)

	replaced, err := e.jobs.Update(ctx, created.ID, cleaning.JobPatch{AssignedTeam: cleaning.Some([]string{"e9"})})
	require.NoError(t, err)
	assert.Equal(t, []string{"e9"}, replaced.AssignedTeam)
}

func TestUpdate_RejectsInvalidPatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())
	created, err := e.jobs.Create(ctx, cleaning.JobRequest{UnitID: e.unit.ID, Date: day(2024, 2, 1)})
	require.NoError(t, err)

	_, err = e.jobs.Update(ctx, created.ID, cleaning.JobPatch{Status: cleaning.Some(cleaning.JobStatus("lost"))})
	assert.ErrorIs(t, err, cleaning.ErrValidation)
	_, err = e.jobs.Update(ctx, created.ID, cleaning.JobPatch{ActualHours: cleaning.Some(-2.0)})
	assert.ErrorIs(t, err, cleaning.ErrValidation)

	stored, err := e.jobs.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, stored)
}

func TestUpdateAndDelete_MissingJobIsNotFound(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())

	_, err := e.jobs.Update(ctx, "ghost", cleaning.JobPatch{Notes: cleaning.Some("x")})
	assert.ErrorIs(t, err, cleaning.ErrNotFound)

	err = e.jobs.Delete(ctx, "ghost")
	assert.ErrorIs(t, err, cleaning.ErrNotFound)
	var nf *cleaning.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "job", nf.Kind)
}

func TestDelete_RemovesOnlyThatJob(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, docstore.NewMemory())
	end := day(2024, 1, 3)
	series, err := e.jobs.CreateRecurring(ctx, cleaning.JobRequest{
		UnitID: e.unit.ID, Date: day(2024, 1, 1),
		Recurrence: cleaning.RecurrenceDaily, RecurrenceEndDate: &end,
	})
	require.NoError(t, err)

	require.NoError(t, e.jobs.Delete(ctx, series[1].ID))

	remaining, err := e.jobs.ListByGroup(ctx, series[0].RecurrenceGroupID)
	require.NoError(t, err)
	assert.Equal(t, []cleaning.Job{series[0], series[2]}, remaining)
}
