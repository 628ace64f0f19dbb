package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOwnership(t *testing.T) {
	r := NewRegistry(newDeps(newFakeStore()), time.Hour)

	id, s := r.Open(ana, "user:u1")
	require.NotEmpty(t, id)

	got, err := r.Get(id, "user:u1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = r.Get(id, "user:u2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get("missing", "user:u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistrySeparatesCallersWithoutIdentity(t *testing.T) {
	r := NewRegistry(newDeps(newFakeStore()), time.Hour)

	first, _ := r.Open(nil, "token:aaa")
	second, _ := r.Open(nil, "token:bbb")

	_, err := r.Get(first, "token:aaa")
	assert.NoError(t, err)
	_, err = r.Get(first, "token:bbb")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get(second, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	unowned, _ := r.Open(nil, "")
	_, err = r.Get(unowned, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	r := NewRegistry(newDeps(newFakeStore()), time.Minute)
	now := time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	old, _ := r.Open(ana, "user:u1")
	now = now.Add(2 * time.Minute)

	_, err := r.Get(old, "user:u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	r.Open(ana, "user:u1")
	assert.Equal(t, 1, r.Len())
}
