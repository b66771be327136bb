package postgres

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	require.NoError(t, st.Set(ctx, map[string]string{"access_token": "a", "refresh_token": "r", "user": "{}"}))
	require.NoError(t, st.Set(ctx, map[string]string{"access_token": "b"}))

	got, err := st.Get(ctx, "access_token", "refresh_token", "current_user_info")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"access_token": "b", "refresh_token": "r"}, got)

	require.NoError(t, st.Delete(ctx, "access_token", "refresh_token", "user", "current_user_info"))
	got, err = st.Get(ctx, "access_token", "refresh_token", "user")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStoreConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t, ctx)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value := uuid.NewString()
			if err := st.Set(ctx, map[string]string{"access_token": value, "refresh_token": value}); err != nil {
				t.Errorf("set: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := st.Get(ctx, "access_token", "refresh_token")
	require.NoError(t, err)
	require.Equal(t, got["access_token"], got["refresh_token"])
}

func setupTestStore(t *testing.T, ctx context.Context) *Store {
	t.Helper()
	dsn := os.Getenv("PORTAL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PORTAL_TEST_DATABASE_URL is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	require.NoError(t, execOnce(ctx, dsn, "CREATE SCHEMA "+schema))

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Close()
		_ = execOnce(context.Background(), dsn, "DROP SCHEMA "+schema+" CASCADE")
	})

	st := NewStore(pool)
	require.NoError(t, st.EnsureSchema(ctx))
	return st
}

func execOnce(ctx context.Context, dsn, sql string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, sql)
	return err
}
