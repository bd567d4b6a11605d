package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// mapPostgresError annotates PostgreSQL errors with their class.
// Returns the original error if it's not a PostgreSQL error.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case isTransientCode(pgErr.Code):
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.IsConnectionException(pgErr.Code):
		return fmt.Errorf("database connection error: %w", err)

	case pgErr.Code == pgerrcode.AdminShutdown, pgErr.Code == pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	case pgErr.Code == pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	case pgErr.Code == pgerrcode.InsufficientResources,
		pgErr.Code == pgerrcode.DiskFull,
		pgErr.Code == pgerrcode.OutOfMemory,
		pgErr.Code == pgerrcode.TooManyConnections:
		return fmt.Errorf("database resource limit: %w", err)

	case pgErr.Code == pgerrcode.UndefinedTable:
		return fmt.Errorf("session table missing: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}

// isTransient reports whether a failed write is worth retrying.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return isTransientCode(pgErr.Code)
}

func isTransientCode(code string) bool {
	switch code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return true
	}
	return false
}
