package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not_found")

// ErrDuplicateKey is returned when an insert violates a uniqueness constraint.
// Upsert paths recover from it internally; it only escapes from plain inserts.
var ErrDuplicateKey = errors.New("duplicate_key")

const uniqueViolationCode = "23505"

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return ErrDuplicateKey
	}
	return err
}
