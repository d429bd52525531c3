package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when an insert or update hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// ErrInvalidReference is returned when a write points at a row that does
// not exist or at a malformed key.
var ErrInvalidReference = errors.New("invalid reference")

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	invalidTextFormat   = "22P02"
)

// DuplicateConstraint returns the violated constraint name when err is a
// unique violation.
func DuplicateConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func mapWriteError(err error) error {
	if constraint, ok := DuplicateConstraint(err); ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, constraint)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == foreignKeyViolation || pgErr.Code == invalidTextFormat) {
		return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
	}
	return err
}
