// Package testdb opens the Postgres database used by integration tests.
//
// Tests using it skip unless DATABASE_URL or RESSPECT_TEST_DB_URL is set.
// The schema is migrated once per Open and every test body runs in a
// transaction that is rolled back afterwards.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/cointoolbox/resspect/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// Timeout bounds the setup of the test database.
const Timeout = 10 * time.Second

// URL returns the database URL for tests, checking DATABASE_URL and
// RESSPECT_TEST_DB_URL in that order.
func URL() string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}
	return os.Getenv("RESSPECT_TEST_DB_URL")
}

// Open connects to the test database and migrates it, skipping the test
// when no database is configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	url := URL()
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping database test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	db, err := postgres.Open(ctx, url)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db, "up"), "failed to migrate test database")
	return db
}

// WithTx runs fn in a transaction that is rolled back when fn returns.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()
	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()
	fn(t, tx)
}
