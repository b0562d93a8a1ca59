package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/shopdesk/shopdesk-go/internal/domain/auth"
)

func TestStore_LoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "credentials.json"))

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Empty())
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nested", "credentials.json"))
	ctx := context.Background()

	saved := domainauth.PersistedState{
		Renewal: "renewal-1",
		Profile: &domainauth.UserProfile{ID: "u-1", Username: "amadou", Email: "amadou@example.com"},
	}
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "credentials.json"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.PersistedState{Renewal: "old"}))
	require.NoError(t, store.Save(ctx, domainauth.PersistedState{Renewal: "new"}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.Renewal)
	assert.Nil(t, loaded.Profile)
}

func TestStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := New(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.PersistedState{Renewal: "renewal-1"}))
	require.NoError(t, store.Clear(ctx))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "credential file should be gone after Clear")

	// Clearing again is a no-op.
	require.NoError(t, store.Clear(ctx))
}

func TestStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := New(path)

	require.NoError(t, store.Save(context.Background(), domainauth.PersistedState{Renewal: "r"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := New(path)
	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal credential file")
}
