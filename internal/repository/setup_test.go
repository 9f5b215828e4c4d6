package repository_test

import (
	"testing"
	"time"

	"github.com/SergeiKhy/linkshort/internal/config"
	"github.com/SergeiKhy/linkshort/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// setupPostgres поднимает PostgreSQL в контейнере и применяет миграции
func setupPostgres(t *testing.T) (*repository.PostgresDB, config.DBConfig) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test, skipped with -short")
	}
	ctx := t.Context()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("linkshort"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DBConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "user",
		Password: "password",
		Name:     "linkshort",
		MaxConns: 20,
	}

	require.NoError(t, repository.Migrate(cfg.MigrationURL(), zap.NewNop()))

	db, err := repository.NewPostgresDB(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db, cfg
}

// setupRedis поднимает Redis в контейнере
func setupRedis(t *testing.T) *repository.RedisDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test, skipped with -short")
	}
	ctx := t.Context()

	container, err := redis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := repository.NewRedisClient(config.RedisConfig{
		Host: host,
		Port: port.Port(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}
