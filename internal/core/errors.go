package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a core error so that callers (the web adapter, the bot,
// the scheduler) can react uniformly without parsing message strings.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindForbidden       Kind = "forbidden"
	KindValidationError Kind = "validation_error"
	KindIntegrityError  Kind = "integrity_error"
	KindTimeout         Kind = "timeout"
	KindInternal        Kind = "internal"
)

// Error is the taxonomy described in spec.md §7. Operations exposed by the
// core return either a nil error or one wrapping an *Error, so callers can
// recover the Kind with errors.As. The exception is the list queries that end
// with `return out, rows.Err()`: a row-iteration error there is returned as
// pgx produced it, not as an *Error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func NotFound(format string, args ...any) error  { return newErr(KindNotFound, format, args...) }
func Conflict(format string, args ...any) error  { return newErr(KindConflict, format, args...) }
func Forbidden(format string, args ...any) error { return newErr(KindForbidden, format, args...) }
func Validation(format string, args ...any) error {
	return newErr(KindValidationError, format, args...)
}
func Internal(cause error, format string, args ...any) error {
	return wrapErr(KindInternal, cause, format, args...)
}

// IsKind reports whether err (or something it wraps) is a core *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// translateDBError maps a raw pgx/pgconn error into the taxonomy above.
// Every service wraps its database errors through this so that a caller
// never has to know pgx's own error types.
func translateDBError(err error, notFoundFormat string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return newErr(KindNotFound, notFoundFormat, args...)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return wrapErr(KindConflict, err, "duplicate entry")
		case "23503", "23502", "23514": // fk/not-null/check violation
			return wrapErr(KindIntegrityError, err, "constraint violation")
		}
		return wrapErr(KindIntegrityError, err, "database constraint error")
	}
	return wrapErr(KindInternal, err, "unexpected database error")
}
