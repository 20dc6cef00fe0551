package rtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sushant-115/rtreedb/core/storage/pagestore"
)

func TestSession_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	want := &sessionState{RootID: 7, NextNodeID: 12, ObjectCount: 31}
	require.NoError(t, saveSession(dir, want))

	got, err := loadSession(dir)
	require.NoError(t, err)
	require.Equal(t, want, got)

	// The session page is exactly one page on disk.
	info, err := os.Stat(filepath.Join(dir, sessionFileName))
	require.NoError(t, err)
	require.Equal(t, int64(pagestore.PageSize), info.Size())
}

func TestSession_AbsentMeansFreshIndex(t *testing.T) {
	got, err := loadSession(t.TempDir())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSession_TruncatedPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, sessionFileName), make([]byte, 24), 0644))

	_, err := loadSession(dir)
	require.ErrorIs(t, err, pagestore.ErrShortRead)

	// Open refuses the corrupt directory instead of silently reinitializing.
	_, err = Open(dir, zap.NewNop())
	require.Error(t, err)
}
