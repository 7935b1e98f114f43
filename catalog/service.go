// Package catalog implements the catalog operations: uniqueness and foreign-key checks, the
// inventory ledger, the sales recorder, cascading deletes and the read projections.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// Store runs operations against the transactional database.
type Store interface {
	Transact(ctx context.Context, fn func(tx *gorm.DB) error) error
	View(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SaleRetention decides what happens to a product's sales when the product is deleted.
type SaleRetention string

const (
	// RetainDelete removes the sales together with the product.
	RetainDelete SaleRetention = "delete"
	// RetainDetach keeps the sales and clears their product reference.
	RetainDetach SaleRetention = "detach"
)

func ParseSaleRetention(s string) (SaleRetention, error) {
	switch SaleRetention(s) {
	case "", RetainDelete:
		return RetainDelete, nil
	case RetainDetach:
		return RetainDetach, nil
	default:
		return "", fmt.Errorf("unknown sale retention policy: %q", s)
	}
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock replaces time.Now, which stamps sales recorded without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithSaleRetention(r SaleRetention) Option {
	return func(s *Service) { s.retention = r }
}

// Service holds no mutable state of its own; every call runs in its own transaction.
type Service struct {
	db        Store
	log       *slog.Logger
	now       func() time.Time
	retention SaleRetention
}

func New(db Store, opts ...Option) *Service {
	s := &Service{
		db:        db,
		log:       slog.Default(),
		now:       time.Now,
		retention: RetainDelete,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaleRetention returns the policy applied by product deletes.
func (s *Service) SaleRetention() SaleRetention {
	return s.retention
}

// done logs the outcome of a mutation. Rejected input is logged at debug, since it is the
// caller's mistake rather than the service's.
func (s *Service) done(ctx context.Context, msg string, start time.Time, err error, args ...any) {
	args = append(args, "duration_ms", time.Since(start).Milliseconds())
	switch {
	case err == nil:
		s.log.InfoContext(ctx, msg, args...)
	case IsValidation(err):
		s.log.DebugContext(ctx, msg+" rejected", append(args, "error", err)...)
	default:
		s.log.ErrorContext(ctx, msg+" failed", append(args, "error", err)...)
	}
}
