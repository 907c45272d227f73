package docstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/alexisbanda/operations-management-system/docstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() docstore.MemoryOption {
	n := 0
	return docstore.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func TestMemory_AddGetList_PreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := docstore.NewMemory(sequentialIDs())

	id1, err := m.Add(ctx, "clients", docstore.Fields{"name": "Acme"})
	require.NoError(t, err)
	id2, err := m.Add(ctx, "clients", docstore.Fields{"name": "Globex"})
	require.NoError(t, err)

	docs, err := m.List(ctx, "clients")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, id1, docs[0].ID)
	assert.Equal(t, id2, docs[1].ID)

	doc, err := m.Get(ctx, "clients", id2)
	require.NoError(t, err)
	assert.Equal(t, "Globex", doc.Fields["name"])
}

func TestMemory_ListUnknownCollection_IsEmptyNotError(t *testing.T) {
	docs, err := docstore.NewMemory().List(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemory_Update_MergesAndNilDeletes(t *testing.T) {
	// GIVEN: A job document with notes and a team
	// WHEN: Updating only status and clearing notes
	// THEN: The team is untouched, notes are gone
	ctx := context.Background()
	m := docstore.NewMemory()
	id, err := m.Add(ctx, "jobs", docstore.Fields{
		"status":        "scheduled",
		"notes":         "ring twice",
		"assigned_team": []string{"e1", "e2"},
	})
	require.NoError(t, err)

	require.NoError(t, m.Update(ctx, "jobs", id, docstore.Fields{"status": "completed", "notes": nil}))

	doc, err := m.Get(ctx, "jobs", id)
	require.NoError(t, err)
	assert.Equal(t, "completed", doc.Fields["status"])
	assert.NotContains(t, doc.Fields, "notes")
	assert.Equal(t, []string{"e1", "e2"}, doc.Fields["assigned_team"])
}

func TestMemory_MissingIDs_ReturnNotFound(t *testing.T) {
	ctx := context.Background()
	m := docstore.NewMemory()

	_, err := m.Get(ctx, "jobs", "nope")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.ErrorIs(t, m.Update(ctx, "jobs", "nope", docstore.Fields{"a": 1}), docstore.ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "jobs", "nope"), docstore.ErrNotFound)
}

func TestMemory_ReturnedDocumentsDoNotAliasState(t *testing.T) {
	ctx := context.Background()
	m := docstore.NewMemory()
	id, err := m.Add(ctx, "teams", docstore.Fields{"employee_ids": []string{"e1", "e2"}})
	require.NoError(t, err)

	doc, err := m.Get(ctx, "teams", id)
	require.NoError(t, err)
	doc.Fields["employee_ids"].([]string)[0] = "mutated"

	again, err := m.Get(ctx, "teams", id)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, again.Fields["employee_ids"])
}

func TestMemory_Query_MatchesFieldValue(t *testing.T) {
	ctx := context.Background()
	m := docstore.NewMemory()
	for _, g := range []string{"g1", "g2", "g1"} {
		_, err := m.Add(ctx, "jobs", docstore.Fields{"recurrence_group_id": g})
		require.NoError(t, err)
	}

	docs, err := m.Query(ctx, "jobs", "recurrence_group_id", "g1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemory_Commit_AllOrNothing(t *testing.T) {
	// GIVEN: A batch whose last write targets a missing document
	// WHEN: Committing the batch
	// THEN: BatchWriteError, and none of the earlier adds are visible
	ctx := context.Background()
	m := docstore.NewMemory()

	writes := []docstore.Write{
		docstore.AddWrite("jobs", docstore.Fields{"n": 1}),
		docstore.AddWrite("jobs", docstore.Fields{"n": 2}),
		{Kind: docstore.WriteUpdate, Collection: "jobs", ID: "missing", Fields: docstore.Fields{"n": 3}},
	}
	ids, err := m.Commit(ctx, writes)
	require.Error(t, err)
	assert.Nil(t, ids)

	var batchErr *docstore.BatchWriteError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, batchErr.Index)
	assert.ErrorIs(t, err, docstore.ErrStorage)

	docs, err := m.List(ctx, "jobs")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemory_Commit_ReturnsIDsInOrder(t *testing.T) {
	ctx := context.Background()
	m := docstore.NewMemory(sequentialIDs())

	ids, err := m.Commit(ctx, []docstore.Write{
		docstore.AddWrite("jobs", docstore.Fields{"n": 1}),
		docstore.SetWrite("settings", "main", docstore.Fields{"employee_hourly_cost": 25}),
		docstore.AddWrite("jobs", docstore.Fields{"n": 2}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1", "main", "id-2"}, ids)

	doc, err := m.Get(ctx, "settings", "main")
	require.NoError(t, err)
	assert.Equal(t, float64(25), doc.Fields["employee_hourly_cost"])
}

func TestCodec_RoundTripsTimestamps(t *testing.T) {
	when := time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)
	data, err := docstore.EncodeJSON(docstore.Fields{
		"job_date": docstore.NewTimestamp(when),
		"status":   "scheduled",
		"team":     []string{"e1"},
	})
	require.NoError(t, err)

	fields, err := docstore.DecodeJSON(data)
	require.NoError(t, err)

	ts, ok := fields["job_date"].(docstore.Timestamp)
	require.True(t, ok, "job_date should decode as a Timestamp")
	assert.True(t, when.Equal(ts.AsTime()))
	assert.Equal(t, []any{"e1"}, fields["team"])
}

func TestStorageError_Classification(t *testing.T) {
	cause := errors.New("disk full")
	err := docstore.Wrap("add", "jobs", cause)

	assert.ErrorIs(t, err, docstore.ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, docstore.Wrap("get", "jobs", docstore.ErrNotFound), docstore.ErrNotFound)
	assert.NoError(t, docstore.Wrap("get", "jobs", nil))
}

func TestMemory_EmptyStringListIsNotNil(t *testing.T) {
	// GIVEN: A document whose list field is empty
	ctx := context.Background()
	m := docstore.NewMemory()
	id, err := m.Add(ctx, "jobs", docstore.Fields{"assigned_team": []string{}})
	require.NoError(t, err)

	// WHEN: Reading it back
	doc, err := m.Get(ctx, "jobs", id)
	require.NoError(t, err)

	// THEN: The list is still an empty, non-nil slice
	team, ok := doc.Fields["assigned_team"].([]string)
	require.True(t, ok, "got %T", doc.Fields["assigned_team"])
	assert.NotNil(t, team)
	assert.Empty(t, team)
}

func TestMemory_WriteFailuresAreStorageErrors(t *testing.T) {
	ctx := context.Background()
	fixed := docstore.WithIDGenerator(func() string { return "same" })
	m := docstore.NewMemory(fixed)

	_, err := m.Add(ctx, "jobs", docstore.Fields{"n": 1})
	require.NoError(t, err)

	tests := []struct {
		name string
		err  error
	}{
		{"duplicate generated id", func() error { _, err := m.Add(ctx, "jobs", docstore.Fields{"n": 2}); return err }()},
		{"set without id", m.Set(ctx, "jobs", "", docstore.Fields{"n": 3})},
		{"unknown write kind", func() error {
			_, err := m.Commit(ctx, []docstore.Write{{Kind: docstore.WriteKind(99), Collection: "jobs"}})
			return err
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.ErrorIs(t, tt.err, docstore.ErrStorage)
			var storageErr *docstore.StorageError
			assert.ErrorAs(t, tt.err, &storageErr)
			assert.NotErrorIs(t, tt.err, docstore.ErrNotFound)
		})
	}
}

func TestMemory_Contract(t *testing.T) {
	storetest.Run(t, func(*testing.T) docstore.Store { return docstore.NewMemory() })
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := docstore.NewMemory()
	_, err := m.Add(ctx, "jobs", docstore.Fields{"n": 1})
	require.NoError(t, err)

	require.NoError(t, m.Reset(ctx))

	docs, err := m.List(ctx, "jobs")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
