package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	Healthz().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealth_NoPool(t *testing.T) {
	checker := NewHealthChecker(nil, false, "1.0.0", "abc123")

	w := httptest.NewRecorder()
	checker.Health().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response HealthCheck
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "unhealthy", response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Equal(t, "fail", response.Checks["database"].Status)
	assert.Equal(t, "warn", response.Checks["job_queue"].Status)
}

func TestHealth_CancelledRequest(t *testing.T) {
	checker := NewHealthChecker(nil, true, "1.0.0", "abc123")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	checker.Health().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "shutting_down")
}

func TestReadyz_NoPool(t *testing.T) {
	checker := NewHealthChecker(nil, false, "", "")

	w := httptest.NewRecorder()
	checker.Readyz().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}

func TestDescribeDBError(t *testing.T) {
	msg, _ := describeDBError(assert.AnError)
	assert.Equal(t, "Database query failed", msg)

	msg, remediation := describeDBError(errString("dial tcp 127.0.0.1:5432: connect: connection refused"))
	assert.Equal(t, "Database connection refused", msg)
	assert.Contains(t, remediation, "DATABASE_URL")
}

type errString string

func (e errString) Error() string { return string(e) }

func TestHealth_Database(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	pool, cleanup := setupTestDB(t, ctx)
	defer cleanup()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT PRIMARY KEY,
			dirty BOOLEAN NOT NULL
		)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE schema_migrations`)
	require.NoError(t, err)

	checker := NewHealthChecker(pool, true, "1.0.0", "abc123")

	t.Run("missing migrations fail", func(t *testing.T) {
		w := httptest.NewRecorder()
		checker.Health().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		var response HealthCheck
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "pass", response.Checks["database"].Status)
		assert.Equal(t, "fail", response.Checks["migrations"].Status)
	})

	t.Run("dirty migration fails", func(t *testing.T) {
		_, err := pool.Exec(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (3, true)`)
		require.NoError(t, err)
		defer pool.Exec(ctx, `TRUNCATE schema_migrations`) //nolint:errcheck

		result := checker.checkMigrations(ctx)
		assert.Equal(t, "fail", result.Status)
		assert.Equal(t, int64(3), result.Details["version"])
	})

	t.Run("clean migration without river degrades", func(t *testing.T) {
		_, err := pool.Exec(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (5, false)`)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		checker.Health().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		var response HealthCheck
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "degraded", response.Status)
		assert.Equal(t, "pass", response.Checks["migrations"].Status)
		assert.Equal(t, "warn", response.Checks["job_queue"].Status)
	})

	t.Run("readyz", func(t *testing.T) {
		w := httptest.NewRecorder()
		checker.Readyz().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
	})
}

// setupTestDB uses DATABASE_URL when it answers, otherwise a throwaway container.
func setupTestDB(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err == nil && pool.Ping(ctx) == nil {
			return pool, func() { pool.Close() }
		}
		t.Logf("DATABASE_URL set but connection failed, using testcontainer")
	}

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("zucchini_test"),
		tcpostgres.WithUsername("zucchini"),
		tcpostgres.WithPassword("zucchini-test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	return pool, func() {
		pool.Close()
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}
}
