package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, map[string]string{"access_token": "a", "refresh_token": "r"}))
	got, err := m.Get(ctx, "access_token", "refresh_token", "user")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"access_token": "a", "refresh_token": "r"}, got)

	require.NoError(t, m.Delete(ctx, "access_token", "refresh_token", "user"))
	require.Zero(t, m.Len())
}

func TestMemoryRejectsEmptyKey(t *testing.T) {
	err := NewMemory().Set(context.Background(), map[string]string{"": "x"})
	require.ErrorIs(t, err, ErrEmptyKey)
}

func TestMemoryHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().Get(ctx, "user")
	require.True(t, errors.Is(err, context.Canceled))
}

func TestCheckKind(t *testing.T) {
	for _, kind := range []string{KindMemory, KindFile, KindPostgres, KindRedis} {
		require.NoError(t, CheckKind(kind))
	}
	require.ErrorIs(t, CheckKind("sqlite"), ErrUnknownBackend)
}
