// Package testkit starts throwaway Postgres and Redis containers for
// integration tests. Tests using it are skipped unless INTEGRATION is set.
package testkit

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/shandysiswandi/gootp/internal/pkg/migration"
	"github.com/shandysiswandi/gootp/migrations"
)

const (
	postgresImage = "postgres:16-alpine"
	redisImage    = "redis:7-alpine"
)

// RequireIntegration skips t unless INTEGRATION is set.
func RequireIntegration(t *testing.T) {
	t.Helper()

	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run container backed tests")
	}
}

// Postgres starts a migrated database and returns a pool connected to it.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	RequireIntegration(t)

	ctx := context.Background()

	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("gootp"),
		postgres.WithUsername("gootp"),
		postgres.WithPassword("gootp"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, migration.Up(migrations.FS, dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// Redis starts a Redis server and returns a client connected to it.
func Redis(t *testing.T) *goredis.Client {
	t.Helper()
	RequireIntegration(t)

	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, redisImage)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	opt, err := goredis.ParseURL(uri)
	require.NoError(t, err)

	client := goredis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return client
}
