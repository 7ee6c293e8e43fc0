// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// StartPostgres runs a disposable PostgreSQL container and returns its URL.
// The caller must invoke terminate when done.
func StartPostgres(ctx context.Context) (string, func(context.Context) error, error) {
	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("blogger"),
		postgres.WithUsername("blogger"),
		postgres.WithPassword("blogger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, fmt.Errorf("postgres connection string: %w", err)
	}

	terminate := func(ctx context.Context) error {
		return container.Terminate(ctx)
	}
	return connStr, terminate, nil
}

// EnsureDatabaseURL sets DATABASE_URL from a fresh container when it is
// unset and USE_TESTCONTAINERS is true. The returned func stops the container.
func EnsureDatabaseURL(ctx context.Context) (func(), error) {
	if os.Getenv("DATABASE_URL") != "" || os.Getenv("USE_TESTCONTAINERS") != "true" {
		return func() {}, nil
	}

	url, terminate, err := StartPostgres(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.Setenv("DATABASE_URL", url); err != nil {
		_ = terminate(ctx)
		return nil, err
	}
	return func() { _ = terminate(context.Background()) }, nil
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema rolls every migration back and applies them again.
func ResetSchema(ctx context.Context, databaseURL string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open sql: %w", err)
	}
	defer func() { _ = db.Close() }()

	fsys := os.DirFS(filepath.Join(root, "internal", "repository", "migrations"))
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}

	if _, err := provider.DownTo(ctx, 0); err != nil {
		return fmt.Errorf("apply down migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply up migrations: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestPerson creates a transient person with sensible defaults.
func NewTestPerson(t testing.TB, name string) *model.Person {
	t.Helper()
	return &model.Person{
		Name:     model.StringPtr(name),
		Username: model.StringPtr(UniqueName(name)),
		Email:    model.StringPtr(name + "@example.com"),
		Company:  model.StringPtr("Acme"),
		Website:  model.StringPtr("https://example.com/" + name),
	}
}

// NewTestArticle creates a transient article written by personID.
func NewTestArticle(t testing.TB, title string, personID int64) *model.Article {
	t.Helper()
	return &model.Article{
		Title:   model.StringPtr(title),
		Content: model.StringPtr("content of " + title),
		Person:  &model.Person{ID: model.Int64Ptr(personID)},
	}
}

// UniqueName generates a unique name for tests.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
