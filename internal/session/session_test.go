package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	s := New(path, "http://example.com", 100)
	s.MarkCompleted("admin")
	s.MarkCompleted("login")

	require.NoError(t, s.Save())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, s.ScanID, loaded.ScanID)
	require.True(t, loaded.IsCompleted("admin"))
	require.True(t, loaded.IsCompleted("login"))
	require.False(t, loaded.IsCompleted("secret"))
}

func TestLoad_MissingFileReturnsNilNil(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestLoad_RejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	s := New(path, "http://example.com", 10)
	require.NoError(t, s.Save())

	// Bump the version on disk, simulating a newer-format file.
	loaded, err := Load(path)
	require.NoError(t, err)
	loaded.Version = FormatVersion + 1
	require.NoError(t, loaded.Save())

	_, err = Load(path)
	require.Error(t, err)
}

func TestFilterRemaining_ExcludesCompleted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	s := New(path, "http://example.com", 3)
	s.MarkCompleted("a")

	remaining := s.FilterRemaining([]string{"a", "b", "c"})
	require.Equal(t, []string{"b", "c"}, remaining)
}

func TestMarkCompleted_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	s := New(path, "http://example.com", 1)
	s.MarkCompleted("a")
	s.MarkCompleted("a")
	require.Len(t, s.CompletedPaths, 1)
}

func TestRemove_DeletesSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	s := New(path, "http://example.com", 1)
	require.NoError(t, s.Save())
	require.NoError(t, s.Remove())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Nil(t, loaded, "Load must find no session file after Remove")
}
