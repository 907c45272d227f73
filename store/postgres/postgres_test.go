package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/alexisbanda/operations-management-system/docstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set TEST_DATABASE_URL to a disposable database to run these tests.
// Every subtest resets the documents table.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := New(ctx, url)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))
	return s
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store { return testStore(t) })
}

func TestSplit_SeparatesRemovals(t *testing.T) {
	set, removed := split(docstore.Fields{"b": nil, "a": 1, "c": nil})

	assert.Equal(t, docstore.Fields{"a": 1}, set)
	assert.Equal(t, []string{"b", "c"}, removed)
}

func TestSplit_EmptyPatch(t *testing.T) {
	set, removed := split(docstore.Fields{})

	assert.Empty(t, set)
	assert.NotNil(t, removed, "encoded as an empty text[] rather than NULL")
}
