package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, goredis.UniversalClient, string) {
	t.Helper()
	addr := os.Getenv("PORTAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PORTAL_TEST_REDIS_ADDR is required for integration tests")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	prefix := "portal-test:" + uuid.NewString() + ":"
	return NewStore(client, prefix), client, prefix
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, client, prefix := setupTestStore(t)
	t.Cleanup(func() {
		_ = client.Del(context.Background(), prefix+"access_token", prefix+"refresh_token", prefix+"user").Err()
	})

	require.NoError(t, st.Set(ctx, map[string]string{"access_token": "a", "refresh_token": "r", "user": "{}"}))

	raw, err := client.Get(ctx, prefix+"access_token").Result()
	require.NoError(t, err)
	require.Equal(t, "a", raw)

	got, err := st.Get(ctx, "access_token", "refresh_token", "current_user_info")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"access_token": "a", "refresh_token": "r"}, got)

	require.NoError(t, st.Delete(ctx, "access_token", "refresh_token", "user", "current_user_info"))
	got, err = st.Get(ctx, "access_token", "refresh_token", "user")
	require.NoError(t, err)
	require.Empty(t, got)
}
