package objectlog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLog(t *testing.T) (*Log, string) {
	t.Helper()
	dir := t.TempDir()
	log, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	return log, dir
}

func TestObjectLog_AppendAssignsDenseIDs(t *testing.T) {
	log, _ := setupLog(t)
	defer log.Close()

	for i := 0; i < 5; i++ {
		id, err := log.Append("payload")
		require.NoError(t, err)
		require.Equal(t, int64(i), id, "object ids are dense and zero-based")
	}
	require.Equal(t, int64(5), log.Count())
}

func TestObjectLog_GetByLineNumber(t *testing.T) {
	log, _ := setupLog(t)
	defer log.Close()

	payloads := []string{"a", "b", "c", "a"}
	for _, p := range payloads {
		_, err := log.Append(p)
		require.NoError(t, err)
	}

	for i, want := range payloads {
		got, err := log.Get(int64(i))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestObjectLog_GetBeyondEnd(t *testing.T) {
	log, _ := setupLog(t)
	defer log.Close()

	_, err := log.Get(0)
	require.ErrorIs(t, err, ErrObjectNotFound)

	_, err = log.Get(-1)
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestObjectLog_ReopenKeepsIDsStable(t *testing.T) {
	log, dir := setupLog(t)

	id, err := log.Append("first")
	require.NoError(t, err)
	require.Equal(t, int64(0), id)
	require.NoError(t, log.Close())

	reopened, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, int64(1), reopened.Count())
	id, err = reopened.Append("second")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	got, err := reopened.Get(0)
	require.NoError(t, err)
	require.Equal(t, "first", got)
}
