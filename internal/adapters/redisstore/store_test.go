package redisstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
	"github.com/shopdesk/shopdesk-go/internal/testutil"
)

func TestStore_LoadMissingKey(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewWithKey(client, "test:credentials:missing")

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Empty())
}

func TestStore_SaveAndLoad(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewWithKey(client, "test:credentials:roundtrip")
	ctx := context.Background()

	saved := domainauth.PersistedState{
		Renewal: "renewal-1",
		Profile: &domainauth.UserProfile{ID: "u-1", Username: "fatou"},
	}
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestStore_Clear(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewWithKey(client, "test:credentials:clear")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.PersistedState{Renewal: "renewal-1"}))
	require.NoError(t, store.Clear(ctx))

	state, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, state.Empty())

	// Clearing again is a no-op.
	require.NoError(t, store.Clear(ctx))
}
