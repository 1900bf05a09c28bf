package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "home")

		store, err := NewStore(dir)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
		assert.Equal(t, filepath.Join(dir, "cache"), store.CacheDir())
	})
}

func TestStore_LoadOrCreate(t *testing.T) {
	t.Run("generates identity on first use", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)

		_, err = store.Load()
		require.ErrorIs(t, err, ErrIdentityNotFound)

		id, err := store.LoadOrCreate()
		require.NoError(t, err)
		assert.Equal(t, 1, id.Version)
		assert.False(t, id.CreatedAt.IsZero())

		_, err = uuid.Parse(id.CreatorID)
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(dir, identityFile))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("returns the same identity afterwards", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)

		first, err := store.LoadOrCreate()
		require.NoError(t, err)

		reopened, err := NewStore(dir)
		require.NoError(t, err)

		second, err := reopened.LoadOrCreate()
		require.NoError(t, err)
		assert.Equal(t, first.CreatorID, second.CreatorID)
	})

	t.Run("rejects a corrupt file", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(dir, identityFile), []byte(`{"creator_id":"nope"}`), 0600))

		_, err = store.LoadOrCreate()
		require.ErrorIs(t, err, ErrInvalidIdentity)
	})

	t.Run("canonicalises the creator id", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)

		id := uuid.New()
		require.NoError(t, os.WriteFile(filepath.Join(dir, identityFile),
			[]byte(`{"version":1,"creator_id":"urn:uuid:`+id.String()+`"}`), 0600))

		loaded, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, id.String(), loaded.CreatorID)
	})
}
