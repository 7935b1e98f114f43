package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/judyrop/retail-catalog/models"
)

type ProductInput struct {
	Name       string          `json:"name"`
	CategoryID uint            `json:"category_id"`
	BrandID    uint            `json:"brand_id"`
	Price      decimal.Decimal `json:"price"`
}

// ProductFilter narrows ListProducts. Nil ids match every product.
type ProductFilter struct {
	CategoryID *uint
	BrandID    *uint
	Page
}

func validateProduct(in ProductInput) (ProductInput, error) {
	name, err := normalizeName(EntityProduct, in.Name)
	if err != nil {
		return in, err
	}
	in.Name = name
	if err := validatePrice(EntityProduct, "price", in.Price); err != nil {
		return in, err
	}
	return in, nil
}

// maxPrice is the first amount a decimal(12,2) column cannot hold.
var maxPrice = decimal.New(1, 10)

// validatePrice accepts amounts that fit a decimal(12,2) column exactly.
func validatePrice(entity Entity, field string, price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return NewInvalidFieldError(entity, field, "must be non-negative", price)
	case !price.Equal(price.Truncate(2)):
		return NewInvalidFieldError(entity, field, "must have at most two decimal places", price)
	case price.GreaterThanOrEqual(maxPrice):
		return NewInvalidFieldError(entity, field, "must be less than 10000000000", price)
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]models.ProductView, error) {
	if err := filter.Page.validate(EntityProduct); err != nil {
		return nil, err
	}
	views := make([]models.ProductView, 0)
	err := s.db.View(ctx, func(tx *gorm.DB) error {
		q := productViews(tx)
		if filter.CategoryID != nil {
			q = q.Where("products.category_id = ?", *filter.CategoryID)
		}
		if filter.BrandID != nil {
			q = q.Where("products.brand_id = ?", *filter.BrandID)
		}
		return filter.Page.apply(q.Order("products.id")).Scan(&views).Error
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*models.ProductView, error) {
	var view *models.ProductView
	err := s.db.View(ctx, func(tx *gorm.DB) error {
		var err error
		view, err = loadProductView(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func loadProductView(tx *gorm.DB, id uint) (*models.ProductView, error) {
	var views []models.ProductView
	if err := productViews(tx).Where("products.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, NewNotFoundError(EntityProduct, id)
	}
	return &views[0], nil
}

// CreateProduct inserts a product after checking that its category and brand exist.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.ProductView, error) {
	start := time.Now()
	in, err := validateProduct(in)
	if err != nil {
		return nil, err
	}

	var view *models.ProductView
	var product models.Product
	err = s.db.Transact(ctx, func(tx *gorm.DB) error {
		if err := validateForeignKey(tx, EntityCategory, in.CategoryID); err != nil {
			return err
		}
		if err := validateForeignKey(tx, EntityBrand, in.BrandID); err != nil {
			return err
		}
		product = models.Product{
			Name:       in.Name,
			CategoryID: in.CategoryID,
			BrandID:    in.BrandID,
			Price:      in.Price,
		}
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		created, err := loadProductView(tx, product.ID)
		view = created
		return err
	})
	s.done(ctx, "product created", start, err,
		"product_id", product.ID, "category_id", in.CategoryID, "brand_id", in.BrandID)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateProduct replaces every field of a product, re-checking both foreign keys.
func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.ProductView, error) {
	start := time.Now()
	in, err := validateProduct(in)
	if err != nil {
		return nil, err
	}

	var view *models.ProductView
	err = s.db.Transact(ctx, func(tx *gorm.DB) error {
		var product models.Product
		if err := lockRow(tx, EntityProduct, id, &product); err != nil {
			return err
		}
		if err := validateForeignKey(tx, EntityCategory, in.CategoryID); err != nil {
			return err
		}
		if err := validateForeignKey(tx, EntityBrand, in.BrandID); err != nil {
			return err
		}
		err := tx.Model(&product).
			Select("Name", "CategoryID", "BrandID", "Price").
			Updates(models.Product{
				Name:       in.Name,
				CategoryID: in.CategoryID,
				BrandID:    in.BrandID,
				Price:      in.Price,
			}).Error
		if err != nil {
			return err
		}
		view, err = loadProductView(tx, id)
		return err
	})
	s.done(ctx, "product updated", start, err, "product_id", id)
	if err != nil {
		return nil, err
	}
	return view, nil
}
