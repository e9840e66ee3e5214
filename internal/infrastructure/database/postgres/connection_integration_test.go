//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
)

const migrationsDir = "../../../../migrations"

// startPostgres launches a PostgreSQL 16 container and returns its config.
func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "tradelink_test",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:          host,
		Port:          port.Int(),
		User:          "test",
		Password:      "test",
		DBName:        "tradelink_test",
		SSLMode:       "disable",
		MigrationPath: migrationsDir,
	}
}

func TestConnection_MigrateAndQuery(t *testing.T) {
	for _, driver := range []string{"postgres", "pgx"} {
		t.Run(driver, func(t *testing.T) {
			cfg := startPostgres(t)
			cfg.Driver = driver

			conn, err := postgres.NewConnection(cfg, logging.NewNopLogger())
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, conn.RunMigrations(migrationsDir))
			require.NoError(t, conn.HealthCheck(context.Background()))

			var n int
			err = conn.DB().QueryRowContext(context.Background(),
				`SELECT COUNT(*) FROM information_schema.tables WHERE table_name IN ('transactions', 'ranking_models', 'company_embeddings')`).Scan(&n)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
		})
	}
}

func TestMigrator_Lifecycle(t *testing.T) {
	cfg := startPostgres(t)
	m := postgres.NewMigrator(cfg)

	version, dirty, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up())

	version, _, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)

	require.NoError(t, m.Down(1))
	version, _, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	require.NoError(t, m.Reset())
	version, _, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)

	require.NoError(t, m.Force(2))
	version, _, err = m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

//Personal.AI order the ending
