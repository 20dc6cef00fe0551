package pagestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*NodeStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewNodeStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNodeStore_AllocateIsMonotonic(t *testing.T) {
	store, _ := setupStore(t)

	first := store.Allocate()
	second := store.Allocate()
	third := store.Allocate()

	require.Equal(t, PageID(1), first, "ids start at 1")
	require.Equal(t, PageID(2), second)
	require.Equal(t, PageID(3), third)
	require.Equal(t, PageID(4), store.NextID())
}

func TestNodeStore_WriteReadRoundTrip(t *testing.T) {
	store, _ := setupStore(t)

	id := store.Allocate()
	page := NewPage(id)
	data := page.GetData()
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, store.WritePage(page))

	got, err := store.ReadPage(id)
	require.NoError(t, err)
	require.Equal(t, id, got.GetPageID())
	require.Equal(t, data, got.GetData())
}

func TestNodeStore_ReadUnknownPage(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.ReadPage(42)
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestNodeStore_ShortRead(t *testing.T) {
	store, dir := setupStore(t)

	// Truncated page file written behind the store's back.
	path := filepath.Join(dir, "leaves", "leaf_9")
	require.NoError(t, os.WriteFile(path, make([]byte, PageSize/2), 0644))

	_, err := store.ReadPage(9)
	require.ErrorIs(t, err, ErrShortRead)
}

func TestNodeStore_SetNextIDRestoresCounter(t *testing.T) {
	store, _ := setupStore(t)

	store.SetNextID(17)
	require.Equal(t, PageID(17), store.Allocate())
	require.Equal(t, PageID(18), store.Allocate())
}
