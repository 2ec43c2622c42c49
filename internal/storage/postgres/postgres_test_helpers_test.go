package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// appTables are emptied between tests. schema_migrations is left alone.
const appTables = "users, mun_registrations, transactions, razorpay_payments, mun_transactions, admins, rate_limit_windows"

var testDB struct {
	once      sync.Once
	err       error
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	url       string
}

func TestMain(m *testing.M) {
	code := m.Run()
	if testDB.pool != nil {
		testDB.pool.Close()
	}
	if testDB.container != nil {
		_ = testcontainers.TerminateContainer(testDB.container)
	}
	os.Exit(code)
}

// setupPostgres returns a migrated, empty database. TEST_DATABASE_URL points
// at an existing server; otherwise one container is shared by the package.
func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	testDB.once.Do(func() { testDB.err = startDatabase() })
	require.NoError(t, testDB.err)

	_, err := testDB.pool.Exec(ctx, "TRUNCATE "+appTables+" RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return testDB.pool, testDB.url
}

func startDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("zucchini_test"),
			tcpostgres.WithUsername("zucchini"),
			tcpostgres.WithPassword("zucchini"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			return err
		}
		testDB.container = container

		url, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			return err
		}
	}
	testDB.url = url

	// The server may still be restarting after init when the log line appears.
	var err error
	for attempt := 0; attempt < 20; attempt++ {
		if err = MigrateUp(url, ""); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return err
	}

	testDB.pool, err = pgxpool.New(ctx, url)
	return err
}
