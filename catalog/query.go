package catalog

import (
	"gorm.io/gorm"
)

// MaxPageSize bounds a single page of a paged listing.
const MaxPageSize = 100

// Page selects a window of a listing. A zero Limit returns every row after Offset.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) validate(entity Entity) error {
	if p.Offset < 0 {
		return NewInvalidFieldError(entity, "offset", "must be non-negative", p.Offset)
	}
	if p.Limit < 0 || p.Limit > MaxPageSize {
		return NewInvalidFieldError(entity, "limit", "must be between 0 and 100", p.Limit)
	}
	return nil
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	return q
}

// productViews selects products joined with their category and brand names. The foreign keys
// stay authoritative; the names are for display only.
func productViews(tx *gorm.DB) *gorm.DB {
	return tx.Table("products").
		Select("products.id, products.name, " +
			"products.category_id, categories.name AS category_name, " +
			"products.brand_id, brands.name AS brand_name, " +
			"products.price, products.created_at, products.updated_at").
		Joins("JOIN categories ON categories.id = products.category_id").
		Joins("JOIN brands ON brands.id = products.brand_id")
}
