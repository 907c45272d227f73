// Package storetest holds the behavioural contract every docstore.Store
// implementation must satisfy. Backend test files call Run with a factory.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) docstore.Store

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s docstore.Store)
	}{
		{"RoundTripsFieldTypes", testRoundTrip},
		{"EmptyListStaysEmptyNotNull", testEmptyList},
		{"ListKeepsInsertionOrder", testListOrder},
		{"ListUnknownCollectionIsEmpty", testListUnknown},
		{"QueryByTopLevelField", testQuery},
		{"UpdateMergesAndNilDeletes", testUpdate},
		{"MissingIDsAreNotFound", testMissing},
		{"DeleteRemovesDocument", testDelete},
		{"CommitReturnsIDsInOrder", testCommitIDs},
		{"CommitIsAllOrNothing", testCommitAtomic},
		{"ConcurrentWritesAllLand", testConcurrentWrites},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

// Strings flattens []string / []any (as returned by JSON-backed stores).
func Strings(t *testing.T, v any) []string {
	t.Helper()
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			s, ok := e.(string)
			require.True(t, ok, "element %d is %T", i, e)
			out[i] = s
		}
		return out
	}
	t.Fatalf("not a string list: %T", v)
	return nil
}

func ids(docs []docstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func testRoundTrip(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	when := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

	id, err := s.Add(ctx, "jobs", docstore.Fields{
		"unit_id":  "u1",
		"hours":    2.5,
		"rooms":    3,
		"done":     true,
		"team":     []string{"e1", "e2"},
		"job_date": docstore.NewTimestamp(when),
		"skipped":  nil,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, "jobs", id)
	require.NoError(t, err)

	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "u1", doc.Fields["unit_id"])
	assert.Equal(t, 2.5, doc.Fields["hours"])
	assert.Equal(t, float64(3), doc.Fields["rooms"])
	assert.Equal(t, true, doc.Fields["done"])
	assert.Equal(t, []string{"e1", "e2"}, Strings(t, doc.Fields["team"]))
	require.IsType(t, docstore.Timestamp{}, doc.Fields["job_date"])
	assert.True(t, when.Equal(doc.Fields["job_date"].(docstore.Timestamp).AsTime()))
	assert.NotContains(t, doc.Fields, "skipped")
}

func testEmptyList(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	id, err := s.Add(ctx, "jobs", docstore.Fields{"assigned_team": []string{}})
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, "jobs", id, docstore.Fields{"team_ids": []string{}}))

	doc, err := s.Get(ctx, "jobs", id)
	require.NoError(t, err)
	for _, key := range []string{"assigned_team", "team_ids"} {
		require.Contains(t, doc.Fields, key)
		got := Strings(t, doc.Fields[key])
		assert.NotNil(t, got, key)
		assert.Empty(t, got, key)
	}

	docs, err := s.List(ctx, "jobs")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotNil(t, Strings(t, docs[0].Fields["assigned_team"]))
}

func testListOrder(t *testing.T, s docstore.Store) {
	ctx := context.Background()

	a, err := s.Add(ctx, "clients", docstore.Fields{"name": "A"})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "clients", "fixed", docstore.Fields{"name": "B"}))
	c, err := s.Add(ctx, "clients", docstore.Fields{"name": "C"})
	require.NoError(t, err)
	_, err = s.Add(ctx, "buildings", docstore.Fields{"name": "other collection"})
	require.NoError(t, err)

	// replacing a document keeps its position
	require.NoError(t, s.Set(ctx, "clients", "fixed", docstore.Fields{"name": "B2"}))

	docs, err := s.List(ctx, "clients")
	require.NoError(t, err)
	assert.Equal(t, []string{a, "fixed", c}, ids(docs))
	assert.Equal(t, "B2", docs[1].Fields["name"])
}

func testListUnknown(t *testing.T, s docstore.Store) {
	docs, err := s.List(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func testQuery(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	first, err := s.Add(ctx, "jobs", docstore.Fields{"recurrence_group_id": "g1", "n": 1})
	require.NoError(t, err)
	_, err = s.Add(ctx, "jobs", docstore.Fields{"recurrence_group_id": "g2", "n": 2})
	require.NoError(t, err)
	third, err := s.Add(ctx, "jobs", docstore.Fields{"recurrence_group_id": "g1", "n": 3})
	require.NoError(t, err)
	_, err = s.Add(ctx, "jobs", docstore.Fields{"n": 4})
	require.NoError(t, err)

	docs, err := s.Query(ctx, "jobs", "recurrence_group_id", "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{first, third}, ids(docs))

	docs, err = s.Query(ctx, "jobs", "n", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{third}, ids(docs))

	docs, err = s.Query(ctx, "jobs", "recurrence_group_id", "missing")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func testUpdate(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	id, err := s.Add(ctx, "jobs", docstore.Fields{"status": "scheduled", "notes": "n", "hours": 1.0})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "jobs", id, docstore.Fields{"status": "completed", "notes": nil}))

	doc, err := s.Get(ctx, "jobs", id)
	require.NoError(t, err)
	assert.Equal(t, "completed", doc.Fields["status"])
	assert.Equal(t, 1.0, doc.Fields["hours"])
	assert.NotContains(t, doc.Fields, "notes")
}

func testMissing(t *testing.T, s docstore.Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "jobs", "ghost")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, "jobs", "ghost", docstore.Fields{"a": 1}), docstore.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "jobs", "ghost"), docstore.ErrNotFound)
}

func testDelete(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	keep, err := s.Add(ctx, "units", docstore.Fields{"name": "keep"})
	require.NoError(t, err)
	drop, err := s.Add(ctx, "units", docstore.Fields{"name": "drop"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "units", drop))

	_, err = s.Get(ctx, "units", drop)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	docs, err := s.List(ctx, "units")
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, ids(docs))
}

func testCommitIDs(t *testing.T, s docstore.Store) {
	ctx := context.Background()

	got, err := s.Commit(ctx, []docstore.Write{
		docstore.AddWrite("jobs", docstore.Fields{"n": 1}),
		docstore.SetWrite("settings", "main", docstore.Fields{"rate": 20}),
		docstore.AddWrite("jobs", docstore.Fields{"n": 2}),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "main", got[1])

	docs, err := s.List(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, []string{got[0], got[2]}, ids(docs))
}

func testCommitAtomic(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	existing, err := s.Add(ctx, "jobs", docstore.Fields{"n": 0})
	require.NoError(t, err)

	_, err = s.Commit(ctx, []docstore.Write{
		docstore.AddWrite("jobs", docstore.Fields{"n": 1}),
		{Kind: docstore.WriteUpdate, Collection: "jobs", ID: existing, Fields: docstore.Fields{"n": 9}},
		{Kind: docstore.WriteUpdate, Collection: "jobs", ID: "ghost", Fields: docstore.Fields{"n": 2}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrStorage)
	var batchErr *docstore.BatchWriteError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, batchErr.Index)

	docs, err := s.List(ctx, "jobs")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, float64(0), docs[0].Fields["n"])
}

func testConcurrentWrites(t *testing.T, s docstore.Store) {
	const adds, batches = 20, 5
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < adds; i++ {
		g.Go(func() error {
			_, err := s.Add(ctx, "jobs", docstore.Fields{"kind": "single"})
			return err
		})
	}
	for i := 0; i < batches; i++ {
		g.Go(func() error {
			_, err := s.Commit(ctx, []docstore.Write{
				docstore.AddWrite("jobs", docstore.Fields{"kind": "batch"}),
				docstore.AddWrite("jobs", docstore.Fields{"kind": "batch"}),
				docstore.AddWrite("jobs", docstore.Fields{"kind": "batch"}),
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	docs, err := s.List(context.Background(), "jobs")
	require.NoError(t, err)
	assert.Len(t, docs, adds+3*batches)
}
