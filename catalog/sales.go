package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/judyrop/retail-catalog/models"
)

type SaleInput struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Platform  string          `json:"platform"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	// SoldAt defaults to the service clock when zero.
	SoldAt time.Time `json:"sold_at"`
}

// SaleUpdate changes only the fields that are set.
type SaleUpdate struct {
	Quantity  *int             `json:"quantity"`
	Platform  *string          `json:"platform"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	SoldAt    *time.Time       `json:"sold_at"`
}

type SaleFilter struct {
	ProductID *uint
	Platform  string
	// SoldOn keeps the sales of that calendar day, in SoldOn's location. Timestamps are
	// stored in UTC and the day bounds are converted before comparing.
	SoldOn time.Time
	Page
}

func validateSaleQuantity(quantity int) error {
	if quantity <= 0 {
		return NewInvalidQuantityError(EntitySale, quantity, "must be greater than zero")
	}
	return nil
}

func validateUnitPrice(price decimal.Decimal) error {
	return validatePrice(EntitySale, "unit_price", price)
}

// RecordSale stores a sale of an existing product. Stock is managed separately through
// SetQuantity; recording a sale does not change it.
func (s *Service) RecordSale(ctx context.Context, in SaleInput) (*models.Sale, error) {
	start := time.Now()
	if err := validateSaleQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if err := validateUnitPrice(in.UnitPrice); err != nil {
		return nil, err
	}
	soldAt := in.SoldAt
	if soldAt.IsZero() {
		soldAt = s.now()
	}
	soldAt = soldAt.UTC()

	var sale models.Sale
	err := s.db.Transact(ctx, func(tx *gorm.DB) error {
		if err := validateForeignKey(tx, EntityProduct, in.ProductID); err != nil {
			return err
		}
		productID := in.ProductID
		sale = models.Sale{
			ProductID: &productID,
			Platform:  strings.TrimSpace(in.Platform),
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			SoldAt:    soldAt,
		}
		return tx.Create(&sale).Error
	})
	s.done(ctx, "sale recorded", start, err, "sale_id", sale.ID, "product_id", in.ProductID, "quantity", in.Quantity)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Service) UpdateSale(ctx context.Context, id uint, in SaleUpdate) (*models.Sale, error) {
	start := time.Now()
	if in.Quantity != nil {
		if err := validateSaleQuantity(*in.Quantity); err != nil {
			return nil, err
		}
	}
	if in.UnitPrice != nil {
		if err := validateUnitPrice(*in.UnitPrice); err != nil {
			return nil, err
		}
	}
	if in.SoldAt != nil && in.SoldAt.IsZero() {
		return nil, NewInvalidFieldError(EntitySale, "sold_at", "cannot be zero", *in.SoldAt)
	}

	var sale models.Sale
	err := s.db.Transact(ctx, func(tx *gorm.DB) error {
		if err := lockRow(tx, EntitySale, id, &sale); err != nil {
			return err
		}
		changes := map[string]interface{}{}
		if in.Quantity != nil {
			changes["quantity"] = *in.Quantity
		}
		if in.Platform != nil {
			changes["platform"] = strings.TrimSpace(*in.Platform)
		}
		if in.UnitPrice != nil {
			changes["unit_price"] = *in.UnitPrice
		}
		if in.SoldAt != nil {
			changes["sold_at"] = in.SoldAt.UTC()
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&sale).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Take(&sale).Error
	})
	s.done(ctx, "sale updated", start, err, "sale_id", id)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// DeleteSale removes a single sale. Nothing depends on a sale.
func (s *Service) DeleteSale(ctx context.Context, id uint) error {
	start := time.Now()
	err := s.db.Transact(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Sale{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NewNotFoundError(EntitySale, id)
		}
		return nil
	})
	s.done(ctx, "sale deleted", start, err, "sale_id", id)
	return err
}

func (s *Service) GetSale(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.View(ctx, func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).Take(&sale).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError(EntitySale, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSales returns sales ordered by id.
func (s *Service) ListSales(ctx context.Context, filter SaleFilter) ([]models.Sale, error) {
	if err := filter.Page.validate(EntitySale); err != nil {
		return nil, err
	}
	sales := make([]models.Sale, 0)
	err := s.db.View(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&models.Sale{})
		if filter.ProductID != nil {
			q = q.Where("product_id = ?", *filter.ProductID)
		}
		if filter.Platform != "" {
			q = q.Where("platform = ?", strings.TrimSpace(filter.Platform))
		}
		if !filter.SoldOn.IsZero() {
			y, m, d := filter.SoldOn.Date()
			from := time.Date(y, m, d, 0, 0, 0, 0, filter.SoldOn.Location())
			to := from.AddDate(0, 0, 1)
			q = q.Where("sold_at >= ? AND sold_at < ?", from.UTC(), to.UTC())
		}
		return filter.Page.apply(q.Order("id")).Find(&sales).Error
	})
	if err != nil {
		return nil, err
	}
	return sales, nil
}
