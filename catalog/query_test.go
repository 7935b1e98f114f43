package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListsAreEmptyNotNil(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)

	brands, err := s.ListBrands(ctx)
	require.NoError(t, err)
	assert.NotNil(t, brands)

	products, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.NotNil(t, products)

	inventory, err := s.ListInventory(ctx, InventoryFilter{})
	require.NoError(t, err)
	assert.NotNil(t, inventory)
}

func TestListCategoriesOrderedByID(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Zebra", "Apple", "Mango"} {
		_, err := s.CreateCategory(ctx, CategoryInput{Name: name})
		require.NoError(t, err)
	}
	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Zebra", categories[0].Name)
	assert.Equal(t, "Mango", categories[2].Name)
}

func TestProductViewJoinsNames(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	f := seed(t, s)

	view, err := s.GetProduct(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sneaker", view.Name)
	assert.Equal(t, "Footwear", view.CategoryName)
	assert.Equal(t, "Acme", view.BrandName)
	assert.Equal(t, "59.99", view.Price.StringFixed(2))

	// Renames show up on the next read; the product keeps its ids.
	_, err = s.UpdateBrand(ctx, f.brand.ID, BrandInput{Name: "Acme Corp"})
	require.NoError(t, err)
	view, err = s.GetProduct(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", view.BrandName)
	assert.Equal(t, f.brand.ID, view.BrandID)

	_, err = s.GetProduct(ctx, 999)
	assert.True(t, IsNotFound(err))
}

func TestListProductsFilterAndPage(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	f := seed(t, s)

	boots, err := s.CreateCategory(ctx, CategoryInput{Name: "Boots"})
	require.NoError(t, err)
	for _, name := range []string{"Hiker", "Chelsea", "Rigger"} {
		_, err := s.CreateProduct(ctx, ProductInput{Name: name, CategoryID: boots.ID, BrandID: f.brand.ID})
		require.NoError(t, err)
	}

	inBoots, err := s.ListProducts(ctx, ProductFilter{CategoryID: &boots.ID})
	require.NoError(t, err)
	assert.Len(t, inBoots, 3)

	byBrand, err := s.ListProducts(ctx, ProductFilter{BrandID: &f.brand.ID})
	require.NoError(t, err)
	assert.Len(t, byBrand, 4)

	page, err := s.ListProducts(ctx, ProductFilter{Page: Page{Offset: 1, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Hiker", page[0].Name)
	assert.Equal(t, "Chelsea", page[1].Name)
}

func TestPageValidation(t *testing.T) {
	tests := []struct {
		name    string
		page    Page
		wantErr bool
	}{
		{"zero", Page{}, false},
		{"full page", Page{Offset: 10, Limit: MaxPageSize}, false},
		{"negative offset", Page{Offset: -1}, true},
		{"negative limit", Page{Limit: -1}, true},
		{"limit over max", Page{Limit: MaxPageSize + 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.page.validate(EntityProduct)
			if tt.wantErr {
				assert.True(t, IsInvalidField(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseSaleRetention(t *testing.T) {
	for in, want := range map[string]SaleRetention{"": RetainDelete, "delete": RetainDelete, "detach": RetainDetach} {
		got, err := ParseSaleRetention(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSaleRetention("archive")
	assert.Error(t, err)
}
