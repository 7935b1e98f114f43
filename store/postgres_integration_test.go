//go:build integration
// +build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/judyrop/retail-catalog/catalog"
	"github.com/judyrop/retail-catalog/models"
	"github.com/judyrop/retail-catalog/store"
)

// setupPostgres starts a PostgreSQL container and returns a migrated store.
func setupPostgres(t *testing.T) *store.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("catalog"),
		postgres.WithPassword("catalog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := store.Open(store.Config{Driver: store.DriverPostgres, DSN: dsn, MaxOpenConns: 8}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestPostgresCascade(t *testing.T) {
	db := setupPostgres(t)
	svc := catalog.New(db)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, catalog.CategoryInput{Name: "Footwear"})
	require.NoError(t, err)
	brand, err := svc.CreateBrand(ctx, catalog.BrandInput{Name: "Acme"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: "Sneaker", CategoryID: category.ID, BrandID: brand.ID})
	require.NoError(t, err)
	_, err = svc.SetQuantity(ctx, product.ID, "store", 5)
	require.NoError(t, err)
	_, err = svc.RecordSale(ctx, catalog.SaleInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = svc.DeleteCategory(ctx, category.ID)
	require.NoError(t, err)

	_, err = svc.GetProduct(ctx, product.ID)
	assert.True(t, catalog.IsNotFound(err))
	var n int64
	require.NoError(t, db.Gorm().Model(&models.Sale{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPostgresUniqueIndexBackstop(t *testing.T) {
	db := setupPostgres(t)
	svc := catalog.New(db)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBrand(ctx, catalog.BrandInput{Name: "Acme"})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case catalog.IsDuplicateName(err), store.IsConflict(err):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
}

func TestPostgresCreateRacesCascade(t *testing.T) {
	db := setupPostgres(t)
	svc := catalog.New(db)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, catalog.CategoryInput{Name: "Footwear"})
	require.NoError(t, err)
	brand, err := svc.CreateBrand(ctx, catalog.BrandInput{Name: "Acme"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	var createErr, deleteErr error
	go func() {
		defer wg.Done()
		_, createErr = svc.CreateProduct(ctx, catalog.ProductInput{Name: "Sneaker", CategoryID: category.ID, BrandID: brand.ID})
	}()
	go func() {
		defer wg.Done()
		_, deleteErr = svc.DeleteCategory(ctx, category.ID)
	}()
	wg.Wait()

	// Whichever order the two ran in, no product may reference a missing category.
	var orphans int64
	require.NoError(t, db.Gorm().Model(&models.Product{}).
		Where("category_id NOT IN (SELECT id FROM categories)").
		Count(&orphans).Error)
	assert.Zero(t, orphans)
	if createErr != nil {
		assert.True(t, catalog.IsNotFound(createErr) || errors.Is(createErr, store.ErrConflict), "create: %v", createErr)
	}
	assert.NoError(t, deleteErr)
}
