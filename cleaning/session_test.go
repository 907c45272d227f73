package cleaning_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTerminator struct {
	subjects []string
	err      error
}

func (r *recordingTerminator) Terminate(_ context.Context, subject string) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

// brokenReads fails every Get with a storage error.
type brokenReads struct {
	*docstore.Memory
}

func (b brokenReads) Get(_ context.Context, collection, _ string) (docstore.Document, error) {
	return docstore.Document{}, docstore.Wrap("get", collection, errors.New("disk on fire"))
}

func TestResolve_KnownProfile(t *testing.T) {
	ctx := context.Background()
	profiles := cleaning.NewProfileRepository(docstore.NewMemory())
	_, err := profiles.Save(ctx, cleaning.Profile{Subject: "u1", Role: cleaning.RoleWorker})
	require.NoError(t, err)
	term := &recordingTerminator{}

	p, err := cleaning.NewSessionResolver(profiles, term).Resolve(ctx, cleaning.Identity{Subject: "u1", Email: "w@x.test"})

	require.NoError(t, err)
	assert.Equal(t, cleaning.RoleWorker, p.Role)
	assert.Equal(t, "w@x.test", p.Email, "email falls back to the identity")
	assert.Empty(t, term.subjects)
}

func TestResolve_MissingProfileFailsClosed(t *testing.T) {
	// GIVEN: A verified identity with no users/{subject} document
	// WHEN: Resolving the session
	// THEN: Access is denied and the session is terminated, no default role
	ctx := context.Background()
	profiles := cleaning.NewProfileRepository(docstore.NewMemory())
	term := &recordingTerminator{}

	p, err := cleaning.NewSessionResolver(profiles, term).Resolve(ctx, cleaning.Identity{Subject: "stranger"})

	assert.ErrorIs(t, err, cleaning.ErrUnauthorized)
	assert.Empty(t, p.Role)
	assert.Equal(t, []string{"stranger"}, term.subjects)
}

func TestResolve_UnknownRoleFailsClosed(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	require.NoError(t, store.Set(ctx, cleaning.CollectionUsers, "u1", docstore.Fields{"role": "guest"}))
	term := &recordingTerminator{}

	_, err := cleaning.NewSessionResolver(cleaning.NewProfileRepository(store), term).
		Resolve(ctx, cleaning.Identity{Subject: "u1"})

	assert.ErrorIs(t, err, cleaning.ErrUnauthorized)
	assert.Equal(t, []string{"u1"}, term.subjects)
}

func TestResolve_TerminateFailureStillDenies(t *testing.T) {
	ctx := context.Background()
	term := &recordingTerminator{err: errors.New("revocation list down")}

	_, err := cleaning.NewSessionResolver(cleaning.NewProfileRepository(docstore.NewMemory()), term).
		Resolve(ctx, cleaning.Identity{Subject: "u1"})

	assert.ErrorIs(t, err, cleaning.ErrUnauthorized)
	assert.Contains(t, err.Error(), "revocation list down")
}

func TestResolve_EmptySubject(t *testing.T) {
	term := &recordingTerminator{}

	_, err := cleaning.NewSessionResolver(cleaning.NewProfileRepository(docstore.NewMemory()), term).
		Resolve(context.Background(), cleaning.Identity{})

	assert.ErrorIs(t, err, cleaning.ErrUnauthorized)
	assert.Empty(t, term.subjects)
}

func TestResolve_StorageErrorPropagates(t *testing.T) {
	term := &recordingTerminator{}
	profiles := cleaning.NewProfileRepository(brokenReads{docstore.NewMemory()})

	_, err := cleaning.NewSessionResolver(profiles, term).Resolve(context.Background(), cleaning.Identity{Subject: "u1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrStorage)
	assert.NotErrorIs(t, err, cleaning.ErrUnauthorized)
	assert.Empty(t, term.subjects)
}
