package testutil

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	postgresImage = "postgres:15-alpine"
	schemaFile    = "001_create_tasks.up.sql"
)

// schemaPath - абсолютный путь к схеме tasks/stats, независимо от каталога теста
func schemaPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", schemaFile)
}

// SetupTestDB запускает одноразовый Postgres со схемой tasks/stats и
// возвращает пул к нему. Контейнер и пул закрываются через t.Cleanup.
// В режиме -short тест пропускается.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container is not started in short mode")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("tasktracker"),
		postgres.WithUsername("tasktracker"),
		postgres.WithPassword("tasktracker"),
		postgres.WithInitScripts(schemaPath()),
		postgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Errorf("terminate postgres container: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("open pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	return pool
}

// TruncateTables возвращает обе таблицы в пустое состояние между подтестами.
// Статистика удаляется вместе с задачами: следующий тест начнет без строки "default".
func TruncateTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), "TRUNCATE tasks, stats RESTART IDENTITY"); err != nil {
		t.Fatalf("truncate tasks and stats: %v", err)
	}
}
