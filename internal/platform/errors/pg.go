package errors

import (
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes / codes we care about
const (
	pgErrUniqueViolation  = "23505" // unique_violation
	pgErrForeignKey       = "23503" // foreign_key_violation
	pgErrNotNull          = "23502" // not_null_violation
	pgErrCheckViolation   = "23514" // check_violation
	pgErrSerialization    = "40001" // serialization_failure
	pgErrDeadlockDetected = "40P01" // deadlock_detected
	pgErrQueryCanceled    = "57014" // query_canceled
	pgErrAdminShutdown    = "57P01" // admin_shutdown
	pgErrCrashShutdown    = "57P02" // crash_shutdown
	pgErrCannotConnectNow = "57P03" // cannot_connect_now
)

// ExtractPgError returns the *pgconn.PgError if present
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pge *pgconn.PgError
	if stderrs.As(err, &pge) {
		return pge, true
	}
	return nil, false
}

// DBErrorCode maps a Postgres error to our ErrorCode taxonomy
func DBErrorCode(err error) ErrorCode {
	pge, ok := ExtractPgError(err)
	if !ok {
		return ErrorCodeDB
	}
	switch pge.Code {
	case pgErrUniqueViolation:
		return ErrorCodeDuplicateKey
	case pgErrForeignKey, pgErrNotNull, pgErrCheckViolation:
		return ErrorCodeInvalidArgument
	case pgErrSerialization, pgErrDeadlockDetected,
		pgErrQueryCanceled, pgErrAdminShutdown, pgErrCrashShutdown, pgErrCannotConnectNow:
		return ErrorCodeUnavailable
	default:
		return ErrorCodeDB
	}
}

// FromPostgres wraps a Postgres error with the mapped code and message
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, DBErrorCode(err), msg)
}

// FromPostgresf wraps a Postgres error with the mapped code and formatted message
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return Wrapf(err, DBErrorCode(err), format, a...)
}

// AttachFieldFromPg attaches the constraint/column name as the error field when known
func AttachFieldFromPg(err error) error {
	pge, ok := ExtractPgError(err)
	if !ok {
		return err
	}
	switch {
	case pge.ColumnName != "":
		return WithField(err, pge.ColumnName)
	case pge.ConstraintName != "":
		return WithField(err, pge.ConstraintName)
	default:
		return err
	}
}

// IsRetryable reports whether a database error is worth retrying
// (serialization failures, deadlocks, connection-level shutdowns)
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if pge, ok := ExtractPgError(err); ok {
		switch pge.Code {
		case pgErrSerialization, pgErrDeadlockDetected,
			pgErrCannotConnectNow, pgErrAdminShutdown, pgErrCrashShutdown:
			return true
		}
		return false
	}
	// pgx can surface commit/rollback races as plain errors
	s := err.Error()
	return strings.Contains(s, "conn busy") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "unexpected EOF")
}
