package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrConflict is a concurrent-modification conflict detected by the database.
	ErrConflict = errors.New("transaction conflict")
	// ErrStoreFailure is a database that is unreachable, misbehaving, or rejected a statement.
	ErrStoreFailure = errors.New("store failure")
	// ErrDuplicate is a unique constraint violation.
	ErrDuplicate = errors.New("duplicate key")
)

// postgres SQLSTATE codes that mean "retry the transaction".
var pgConflictCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// Classify maps driver errors onto ErrConflict, ErrDuplicate and ErrStoreFailure, keeping the
// original in the chain. Context errors and errors that did not come from the driver are
// returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrConflict), errors.Is(err, ErrStoreFailure), errors.Is(err, ErrDuplicate):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgConflictCodes[pgErr.Code] {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidDB) {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	return err
}

// IsConflict reports whether err is a transaction conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsStoreFailure reports whether err is a store failure.
func IsStoreFailure(err error) bool {
	return errors.Is(err, ErrStoreFailure)
}
