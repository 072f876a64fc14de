package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("record already exists")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	invalidTextRepr     = "22P02"
)

// translate maps driver errors onto repository sentinels. A foreign key
// violation means the referenced parent row is gone, and a malformed UUID can
// never match a row; callers treat both as not found.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicate
		case foreignKeyViolation, invalidTextRepr:
			return ErrNotFound
		}
	}
	return err
}
