package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/unilost/unilost/internal/config"
	"github.com/unilost/unilost/internal/db"
	"github.com/unilost/unilost/internal/store"
	"github.com/unilost/unilost/internal/store/postgres"
	"github.com/unilost/unilost/internal/store/storetest"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// setupDSN starts one PostgreSQL container for the whole test run and
// applies the migrations.
func setupDSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL tests in short mode")
	}

	once.Do(func() {
		sharedDSN, initErr = startContainer()
	})
	if initErr != nil {
		t.Skipf("PostgreSQL container unavailable: %v", initErr)
	}
	return sharedDSN
}

func startContainer() (dsn string, err error) {
	// testcontainers panics when no Docker host can be found.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("starting container: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "unilost",
			"POSTGRES_PASSWORD": "unilost",
			"POSTGRES_DB":       "unilost",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	dsn = fmt.Sprintf("postgres://unilost:unilost@%s:%s/unilost?sslmode=disable", host, port.Port())
	if err := db.MigratePostgres(ctx, dsn); err != nil {
		return "", err
	}
	return dsn, nil
}

// newStore returns a store over empty tables.
func newStore(t *testing.T) store.Store {
	t.Helper()
	dsn := setupDSN(t)
	ctx := context.Background()

	pool, err := db.OpenPostgres(ctx, config.DatabaseConfig{URL: dsn, MaxConns: 4})
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE thread_messages, chat_messages, items, users RESTART IDENTITY CASCADE`); err != nil {
		pool.Close()
		t.Fatalf("truncate: %v", err)
	}

	s := postgres.New(pool)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestMigrationsIdempotent(t *testing.T) {
	dsn := setupDSN(t)

	if err := db.MigratePostgres(context.Background(), dsn); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
}

func TestOpenSelectsPostgres(t *testing.T) {
	dsn := setupDSN(t)

	s, err := db.Open(context.Background(), config.DatabaseConfig{URL: dsn})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*postgres.Store); !ok {
		t.Errorf("Open returned %T, want *postgres.Store", s)
	}
}
