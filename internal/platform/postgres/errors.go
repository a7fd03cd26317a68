package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cointoolbox/resspect/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// constraintErrors maps integrity violations onto the store sentinels.
var constraintErrors = map[string]struct {
	sentinel error
	kind     string
}{
	uniqueViolationCode:     {store.ErrDuplicate, "unique"},
	foreignKeyViolationCode: {store.ErrInvalidEntity, "foreign key"},
	checkViolationCode:      {store.ErrInvalidEntity, "check"},
	notNullViolationCode:    {store.ErrInvalidEntity, "not null"},
}

// MapError translates driver errors into store sentinels. The driver error
// stays in the chain.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	m, ok := constraintErrors[pgErr.Code]
	if !ok {
		return err
	}
	where := pgErr.ConstraintName
	if where == "" {
		where = pgErr.ColumnName
	}
	return fmt.Errorf("%w: %s violation (%s): %w", m.sentinel, m.kind, where, err)
}

// CheckRowsAffected returns notFound when an UPDATE touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("postgres: nil result")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
