package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, map[string]string{
		"access_token":  "token-a",
		"refresh_token": "token-r",
		"user":          `{"id":"user-1"}`,
	}))

	second, err := New(path)
	require.NoError(t, err)
	got, err := second.Get(ctx, "access_token", "user", "current_user_info")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"access_token": "token-a", "user": `{"id":"user-1"}`}, got)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestStoreDeleteRemovesAllKeys(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, map[string]string{"a": "1", "b": "2", "c": "3"}))
	require.NoError(t, s.Delete(ctx, "a", "b", "missing"))

	got, err := s.Get(ctx, "a", "b", "c")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"c": "3"}, got)
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	got, err := s.Get(context.Background(), "access_token")
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, s.Delete(context.Background(), "access_token"))
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	s, err := New(path)
	require.NoError(t, err)
	_, err = s.Get(context.Background(), "user")
	require.ErrorContains(t, err, "decode session file")
}
