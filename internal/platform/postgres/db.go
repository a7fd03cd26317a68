package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cointoolbox/resspect/internal/platform/logger"
	"github.com/cointoolbox/resspect/internal/redact"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver
)

// DriverName is the database/sql driver registered by pgx.
const DriverName = "pgx"

// pingTimeout bounds the connectivity check in Open.
const pingTimeout = 5 * time.Second

// dbtx is satisfied by both *sql.DB and *sql.Tx so the stores can run
// inside or outside RunInTransaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the database at dbURL and verifies the connection.
func Open(ctx context.Context, dbURL string) (*sql.DB, error) {
	log := logger.FromContext(ctx).With("component", "postgres")
	if dbURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open(DriverName, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %s", redact.Error(err))
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		log.Error("database ping failed",
			"url", redact.DatabaseURL(dbURL),
			"error", redact.Error(err))
		return nil, fmt.Errorf("failed to connect to database: %s", redact.Error(err))
	}

	log.Info("database connection established", "url", redact.DatabaseURL(dbURL))
	return db, nil
}
