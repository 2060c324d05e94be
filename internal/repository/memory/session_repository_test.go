package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querymate-be/pkg/contextbuilder"
	"querymate-be/pkg/store"
)

func TestSessionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Hour)

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	s := store.NewContextSession("u1", "hello", time.Now())
	require.NoError(t, repo.Create(ctx, s))
	assert.Equal(t, int64(1), s.Version)
	assert.ErrorIs(t, repo.Create(ctx, store.NewContextSession("u1", "", time.Now())), store.ErrSessionExists)

	loaded, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, store.StageCollecting, loaded.Stage)
	assert.Equal(t, "hello", loaded.InitialMessage())

	loaded.CollectedData.Set(contextbuilder.KeyBusinessName, "Acme")
	require.NoError(t, repo.Update(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)

	again, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.CollectedData.BusinessName)

	require.NoError(t, repo.Delete(ctx, "u1"))
	gone, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSessionRepository_VersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Hour)
	require.NoError(t, repo.Create(ctx, store.NewContextSession("u1", "", time.Now())))

	a, _ := repo.Get(ctx, "u1")
	b, _ := repo.Get(ctx, "u1")

	a.CollectedData.Set(contextbuilder.KeyPricing, "$1")
	require.NoError(t, repo.Update(ctx, a))

	b.CollectedData.Set(contextbuilder.KeySupport, "email")
	assert.ErrorIs(t, repo.Update(ctx, b), store.ErrVersionConflict)

	assert.ErrorIs(t, repo.Update(ctx, store.NewContextSession("nobody", "", time.Now())), store.ErrSessionNotFound)
}

func TestSessionRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Hour)
	s := store.NewContextSession("u1", "hi", time.Now())
	require.NoError(t, repo.Create(ctx, s))

	s.Messages[0].Content = "mutated"
	loaded, _ := repo.Get(ctx, "u1")
	assert.Equal(t, "hi", loaded.Messages[0].Content)
}

func TestSessionRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(30 * time.Millisecond)
	require.NoError(t, repo.Create(ctx, store.NewContextSession("u1", "", time.Now())))

	time.Sleep(60 * time.Millisecond)
	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
