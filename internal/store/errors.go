package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed wraps failures to begin, commit or roll back.
	ErrTransactionFailed = errors.New("transaction failed")

	ErrRunNotFound = fmt.Errorf("run %w", ErrNotFound)
)

// IsNotFoundError reports whether err is ErrNotFound or one of its
// entity-specific variants.
func IsNotFoundError(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicateError reports whether err is ErrDuplicate.
func IsDuplicateError(err error) bool { return errors.Is(err, ErrDuplicate) }

// OpError records which store operation on which entity failed.
type OpError struct {
	Entity string // run, metric, query, event
	Op     string // e.g. "create", "list: scan"
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Wrap returns err annotated with the entity and operation, or nil when
// err is nil.
func Wrap(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Entity: entity, Op: op, Err: err}
}
