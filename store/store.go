// Package store opens the catalog database and runs each operation inside one transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/judyrop/retail-catalog/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config describes how to reach the database.
type Config struct {
	Driver        string
	DSN           string
	MaxOpenConns  int
	MaxIdleConns  int
	SlowThreshold time.Duration
}

// DefaultConfig returns a file-backed sqlite configuration.
func DefaultConfig() Config {
	return Config{
		Driver:        DriverSQLite,
		DSN:           "file:catalog.db?_foreign_keys=on",
		MaxOpenConns:  10,
		MaxIdleConns:  2,
		SlowThreshold: 200 * time.Millisecond,
	}
}

// DB wraps a gorm handle. It is safe for concurrent use; all shared state lives in the database.
type DB struct {
	gorm *gorm.DB
	log  *slog.Logger
}

// Open connects with the configured driver and applies pool settings.
func Open(cfg Config, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Default()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "sqlite3":
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log, cfg.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if dialector.Name() == DriverSQLite {
		// sqlite has a single writer, and an in-memory database lives only as long as its connection.
		sqlDB.SetMaxOpenConns(1)
		if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return New(gdb, log), nil
}

// New wraps an existing gorm handle, which may itself be an open transaction.
func New(gdb *gorm.DB, log *slog.Logger) *DB {
	if log == nil {
		log = slog.Default()
	}
	return &DB{gorm: gdb, log: log}
}

// Gorm returns the underlying handle.
func (d *DB) Gorm() *gorm.DB {
	return d.gorm
}

// Migrate creates or updates the catalog tables.
func (d *DB) Migrate(ctx context.Context) error {
	if err := d.gorm.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", Classify(err))
	}
	return nil
}

// Ping verifies the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return Classify(err)
	}
	return Classify(sqlDB.PingContext(ctx))
}

// Close closes the connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transact runs fn in a single transaction. Any error from fn rolls the transaction back.
// A conflict reported by the database reruns the whole of fn once; a second conflict is returned.
func (d *DB) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := d.transactOnce(ctx, fn)
	if errors.Is(err, ErrConflict) {
		d.log.WarnContext(ctx, "transaction conflict, retrying", "error", err)
		err = d.transactOnce(ctx, fn)
	}
	return err
}

func (d *DB) transactOnce(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return Classify(d.gorm.WithContext(ctx).Transaction(fn))
}

// View runs a read-only fn outside an explicit transaction.
func (d *DB) View(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return Classify(fn(d.gorm.WithContext(ctx)))
}

// ForUpdate locks the selected rows until commit. sqlite already serializes writers and has no
// row locks, so the clause is only added for postgres.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == DriverPostgres {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// ForShare takes a shared lock on the selected rows, blocking a concurrent ForUpdate on them.
func ForShare(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == DriverPostgres {
		return tx.Clauses(clause.Locking{Strength: "SHARE"})
	}
	return tx
}
