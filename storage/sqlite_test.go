package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenscan/chainrpc/pkg/logger"
)

func openTestStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(path, logger.Test(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	return store
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, ":memory:")

	_, ok := store.Get("missing")
	assert.False(t, ok)

	require.NoError(t, store.Set("ETHEREUM_customRPC", `{"chainKey":"ETHEREUM"}`))
	v, ok := store.Get("ETHEREUM_customRPC")
	require.True(t, ok)
	assert.Equal(t, `{"chainKey":"ETHEREUM"}`, v)

	// Upsert overwrites in place.
	require.NoError(t, store.Set("ETHEREUM_customRPC", "v2"))
	v, ok = store.Get("ETHEREUM_customRPC")
	require.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, store.Delete("ETHEREUM_customRPC"))
	_, ok = store.Get("ETHEREUM_customRPC")
	assert.False(t, ok)

	require.NoError(t, store.Delete("missing"))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kv.db")

	first, err := OpenSQLite(path, logger.Test(t))
	require.NoError(t, err)
	require.NoError(t, first.Set("selectedChain", "BASE"))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	v, ok := second.Get("selectedChain")
	require.True(t, ok)
	assert.Equal(t, "BASE", v)
}
