package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cointoolbox/resspect/internal/platform/logger"
)

// TxFn does the work of one transaction. Returning an error rolls it back.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction runs fn in a new transaction on db and commits it when
// fn succeeds. Loop iterations use it so that metrics, queried objects and
// the raw event of an iteration are stored together. A panic in fn rolls
// back and propagates.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) (err error) {
	log := logger.FromContext(ctx).With("component", "store")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("begin transaction", "error", err)
		return fmt.Errorf("%w: begin: %w", ErrTransactionFailed, err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		p := recover()
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("roll back transaction", "error", rbErr, "cause", err, "panic", p)
			if p == nil {
				err = fmt.Errorf("%w: rollback: %v (cause: %w)", ErrTransactionFailed, rbErr, err)
			}
		} else {
			log.Debug("transaction rolled back", "cause", err, "panic", p)
		}
		if p != nil {
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	committed = true
	if err = tx.Commit(); err != nil {
		log.Error("commit transaction", "error", err)
		return fmt.Errorf("%w: commit: %w", ErrTransactionFailed, err)
	}
	return nil
}
