package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/judyrop/retail-catalog/models"
	"github.com/judyrop/retail-catalog/store"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// newTestService returns a service over a fresh in-memory database, plus the handle for
// assertions and fault injection.
func newTestService(t *testing.T, opts ...Option) (*Service, *store.DB) {
	t.Helper()
	return newTestServiceDSN(t, "file::memory:", opts...)
}

// newFileTestService is newTestService over a file, for tests where database/sql may drop the
// connection and with it an in-memory database.
func newFileTestService(t *testing.T, opts ...Option) (*Service, *store.DB) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "catalog.db") + "?_foreign_keys=on"
	return newTestServiceDSN(t, dsn, opts...)
}

func newTestServiceDSN(t *testing.T, dsn string, opts ...Option) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(store.Config{Driver: store.DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(db, opts...), db
}

type fixture struct {
	category *models.Category
	brand    *models.Brand
	product  *models.ProductView
}

// seed creates Footwear / Acme / Sneaker.
func seed(t *testing.T, s *Service) fixture {
	t.Helper()
	ctx := context.Background()
	category, err := s.CreateCategory(ctx, CategoryInput{Name: "Footwear"})
	require.NoError(t, err)
	brand, err := s.CreateBrand(ctx, BrandInput{Name: "Acme"})
	require.NoError(t, err)
	product, err := s.CreateProduct(ctx, ProductInput{
		Name:       "Sneaker",
		CategoryID: category.ID,
		BrandID:    brand.ID,
		Price:      decimal.RequireFromString("59.99"),
	})
	require.NoError(t, err)
	return fixture{category: category, brand: brand, product: product}
}

func count(t *testing.T, db *store.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Gorm().Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

// failOn fails a delete against table whenever err returns non-nil.
func failOn(t *testing.T, db *store.DB, table string, err func() error) {
	t.Helper()
	name := "test:fail_" + table
	require.NoError(t, db.Gorm().Callback().Delete().Before("gorm:delete").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			if e := err(); e != nil {
				_ = tx.AddError(e)
			}
		}
	}))
	t.Cleanup(func() { _ = db.Gorm().Callback().Delete().Remove(name) })
}
