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

func TestSampleWrites_LoadsConsistentDataSet(t *testing.T) {
	// GIVEN: The sample batch committed to an empty store
	ctx := context.Background()
	store := docstore.NewMemory()
	today := time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)
	cfg := cleaning.DefaultConfig()

	writes := cleaning.SampleWrites(cfg, today)
	_, err := store.Commit(ctx, writes)
	require.NoError(t, err)

	// WHEN: Reading it back through the repositories
	repos := cleaning.NewRepositories(store)
	jobs := cleaning.NewJobRepository(store, repos, cleaning.NewSettingsRepository(store))

	clients, err := repos.Clients.All(ctx)
	require.NoError(t, err)
	units, err := repos.Units.All(ctx)
	require.NoError(t, err)
	employees, err := repos.Employees.All(ctx)
	require.NoError(t, err)
	teams, err := repos.Teams.All(ctx)
	require.NoError(t, err)
	all, err := jobs.List(ctx)
	require.NoError(t, err)

	// THEN: Every entity decodes and the jobs sit around today
	assert.Len(t, clients, 2)
	assert.Len(t, units, 3)
	assert.Len(t, employees, 4)
	assert.Len(t, teams, 2)
	require.Len(t, all, 6)

	unitByID := map[string]cleaning.Unit{}
	for _, u := range units {
		unitByID[u.ID] = u
	}
	for _, j := range all {
		assert.Equal(t, cleaning.Estimate(unitByID[j.UnitID], cfg), j.EstimatedHours, j.ID)
		assert.WithinDuration(t, today, j.Date, 4*24*time.Hour, j.ID)
		assert.Empty(t, j.RecurrenceGroupID)
	}

	onToday := 0
	for _, j := range all {
		if cleaning.SameDay(j.Date, today, time.UTC) {
			onToday++
		}
	}
	assert.Equal(t, 2, onToday)
}

func TestSampleWrites_SeedingTwiceOverwrites(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	today := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		_, err := store.Commit(ctx, cleaning.SampleWrites(cleaning.DefaultConfig(), today))
		require.NoError(t, err)
	}

	docs, err := store.List(ctx, cleaning.CollectionJobs)
	require.NoError(t, err)
	assert.Len(t, docs, 6)
}
