package cleaning_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// DASHBOARD
// =============================================================================

func TestSummarize_KPIs(t *testing.T) {
	// GIVEN: Two completed jobs (one recent), three scheduled (one today)
	// WHEN: Summarizing at 2024-06-15 12:00
	// THEN: Totals cover all completed jobs, productivity only the last month
	f := newReportFixture()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	recent := completed("recent", "u1", day(2024, 6, 10), 4, f64(5))
	recent.InvoicedPrice = f64(100)
	jobs := []cleaning.Job{
		recent,
		completed("old", "u1", day(2024, 3, 1), 2, f64(2)),
		{ID: "future", UnitID: "u2", Date: day(2024, 6, 20), Status: cleaning.StatusScheduled},
		{ID: "overdue", UnitID: "u2", Date: day(2024, 6, 1), Status: cleaning.StatusScheduled},
		{ID: "today", UnitID: "u2", Date: time.Date(2024, 6, 15, 15, 0, 0, 0, time.UTC), Status: cleaning.StatusScheduled},
		{ID: "dropped", UnitID: "u2", Date: day(2024, 6, 25), Status: cleaning.StatusCanceled},
	}

	d := cleaning.Summarize(cleaning.DashboardInput{
		Jobs: jobs, Units: f.units, Buildings: f.buildings, Clients: f.clients, Config: f.cfg,
	}, now)

	assert.True(t, dec("400").Equal(d.TotalRevenue))
	assert.True(t, dec("140").Equal(d.TotalCost))
	assert.True(t, dec("260").Equal(d.TotalProfit))
	assert.Equal(t, 2, d.UpcomingJobs)
	assert.Equal(t, "80%", d.MonthlyProductivity.String())
	assert.True(t, dec("20").Equal(d.EmployeeHourlyCost))

	require.Len(t, d.Today, 1)
	assert.Equal(t, "today", d.Today[0].Job.ID)
	assert.Equal(t, "Apt 2", d.Today[0].UnitName)
	assert.Equal(t, "Annex", d.Today[0].BuildingName)

	require.Len(t, d.RecentCompleted, 2)
	assert.Equal(t, "old", d.RecentCompleted[0].JobID)
	assert.Equal(t, "recent", d.RecentCompleted[1].JobID)
	assert.True(t, dec("0").Equal(d.RecentCompleted[1].Profit))
}

func TestSummarize_ChartKeepsMostRecent(t *testing.T) {
	f := newReportFixture()
	var jobs []cleaning.Job
	for i := 1; i <= cleaning.RecentChartSize+3; i++ {
		jobs = append(jobs, completed("j"+time.Month(i).String(), "u1", day(2023, time.Month(i), 1), 1, nil))
	}

	d := cleaning.Summarize(cleaning.DashboardInput{Jobs: jobs, Units: f.units}, day(2025, 1, 1))

	require.Len(t, d.RecentCompleted, cleaning.RecentChartSize)
	assert.Equal(t, day(2023, 4, 1), d.RecentCompleted[0].Date)
	assert.Equal(t, day(2024, 1, 1), d.RecentCompleted[cleaning.RecentChartSize-1].Date)
}

func TestSummarize_EmptyHasNoProductivity(t *testing.T) {
	d := cleaning.Summarize(cleaning.DashboardInput{Config: cleaning.DefaultConfig()}, day(2024, 1, 1))

	assert.True(t, d.TotalProfit.IsZero())
	assert.Equal(t, cleaning.NotApplicable, d.MonthlyProductivity.String())
	assert.NotNil(t, d.Today)
	assert.NotNil(t, d.RecentCompleted)
}

// =============================================================================
// AGENDA
// =============================================================================

func TestBuildAgenda_WeekView(t *testing.T) {
	// GIVEN: Jobs spread over two weeks, two on Tuesday out of order
	// WHEN: Building the week of Wednesday 2024-06-05
	// THEN: Seven days Monday..Sunday, Tuesday sorted by time, next week out
	f := newReportFixture()
	employees := []cleaning.Employee{{ID: "e1", Name: "Ana"}}
	jobs := []cleaning.Job{
		{ID: "late", UnitID: "u1", Date: time.Date(2024, 6, 4, 10, 0, 0, 0, time.UTC), AssignedTeam: []string{"e1", "gone"}},
		{ID: "early", UnitID: "u1", Date: time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC), Status: cleaning.StatusCompleted},
		{ID: "sunday", UnitID: "ghost", Date: day(2024, 6, 9)},
		{ID: "next-week", UnitID: "u1", Date: day(2024, 6, 10)},
	}

	agenda, err := cleaning.BuildAgenda(cleaning.AgendaInput{
		Jobs: jobs, Units: f.units, Buildings: f.buildings, Employees: employees,
	}, cleaning.ViewWeek, day(2024, 6, 5))
	require.NoError(t, err)

	require.Len(t, agenda.Days, 7)
	assert.Equal(t, day(2024, 6, 3), agenda.Days[0].Date)
	assert.Empty(t, agenda.Days[0].Entries)

	tuesday := agenda.Days[1].Entries
	require.Len(t, tuesday, 2)
	assert.Equal(t, "early", tuesday[0].Job.ID)
	assert.Equal(t, "late", tuesday[1].Job.ID)
	assert.Equal(t, []string{"Ana", cleaning.NotApplicable}, tuesday[1].EmployeeNames)
	assert.Equal(t, "Tower", tuesday[1].BuildingName)

	sunday := agenda.Days[6].Entries
	require.Len(t, sunday, 1)
	assert.Equal(t, cleaning.NotApplicable, sunday[0].UnitName)
}

func TestBuildAgenda_UsesLocationForDayBoundaries(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 2024-06-05 02:00 UTC is still June 4 at UTC-5
	job := cleaning.Job{ID: "j", UnitID: "u1", Date: time.Date(2024, 6, 5, 2, 0, 0, 0, time.UTC)}

	agenda, err := cleaning.BuildAgenda(cleaning.AgendaInput{Jobs: []cleaning.Job{job}, Location: loc},
		cleaning.ViewDay, time.Date(2024, 6, 4, 12, 0, 0, 0, loc))
	require.NoError(t, err)

	require.Len(t, agenda.Days, 1)
	assert.Len(t, agenda.Days[0].Entries, 1)
}

func TestBuildAgenda_DefaultsToDayAndRejectsUnknown(t *testing.T) {
	agenda, err := cleaning.BuildAgenda(cleaning.AgendaInput{}, "", day(2024, 6, 5))
	require.NoError(t, err)
	assert.Equal(t, cleaning.ViewDay, agenda.View)
	assert.Len(t, agenda.Days, 1)

	_, err = cleaning.BuildAgenda(cleaning.AgendaInput{}, "quarter", day(2024, 6, 5))
	assert.ErrorIs(t, err, cleaning.ErrValidation)
}

// =============================================================================
// PATCH DECODING
// =============================================================================

func TestJobPatch_JSONDistinguishesAbsentFromNull(t *testing.T) {
	var p cleaning.JobPatch
	require.NoError(t, json.Unmarshal([]byte(`{"actual_hours": null, "status": "completed", "job_date": "2024-06-04T08:00:00Z"}`), &p))

	assert.True(t, p.ActualHours.Present())
	assert.True(t, p.ActualHours.IsNull())

	status, ok := p.Status.Get()
	assert.True(t, ok)
	assert.Equal(t, cleaning.StatusCompleted, status)

	date, ok := p.Date.Get()
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC), date.UTC())

	assert.False(t, p.Notes.Present())
	assert.False(t, p.InvoicedPrice.Present())
}

func TestOpt_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(map[string]cleaning.Opt[float64]{"set": cleaning.Some(1.5), "null": cleaning.Null[float64]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"set": 1.5, "null": null}`, string(out))
}
