package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/judyrop/retail-catalog/models"
)

// InventoryFilter narrows ListInventory. Zero values match everything.
type InventoryFilter struct {
	ProductID   *uint
	Platform    string
	MinQuantity *int
	MaxQuantity *int
	Page
}

func normalizePlatform(platform string) (string, error) {
	p := strings.TrimSpace(platform)
	if p == "" {
		return "", NewInvalidFieldError(EntityInventory, "platform", "cannot be empty", platform)
	}
	if len(p) > 64 {
		return "", NewInvalidFieldError(EntityInventory, "platform", "must be at most 64 bytes", len(p))
	}
	return p, nil
}

// SetQuantity upserts the stock of a product on one platform. Setting the same quantity twice
// leaves one row with that quantity.
func (s *Service) SetQuantity(ctx context.Context, productID uint, platform string, quantity int) (*models.Inventory, error) {
	start := time.Now()
	if quantity < 0 {
		return nil, NewInvalidQuantityError(EntityInventory, quantity, "must be zero or more")
	}
	platform, err := normalizePlatform(platform)
	if err != nil {
		return nil, err
	}

	var row models.Inventory
	err = s.db.Transact(ctx, func(tx *gorm.DB) error {
		var product models.Product
		if err := lockRow(tx, EntityProduct, productID, &product); err != nil {
			return err
		}
		row = models.Inventory{
			ProductID: productID,
			Platform:  platform,
			Quantity:  quantity,
			UpdatedAt: s.now(),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "platform"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("product_id = ? AND platform = ?", productID, platform).Take(&row).Error
	})
	s.done(ctx, "inventory set", start, err, "product_id", productID, "platform", platform, "quantity", quantity)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteInventory removes one (product, platform) row; other platforms keep their stock.
func (s *Service) DeleteInventory(ctx context.Context, productID uint, platform string) error {
	start := time.Now()
	platform, err := normalizePlatform(platform)
	if err != nil {
		return err
	}
	err = s.db.Transact(ctx, func(tx *gorm.DB) error {
		res := tx.Where("product_id = ? AND platform = ?", productID, platform).Delete(&models.Inventory{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NewNotFoundError(EntityInventory, inventoryKey(productID, platform))
		}
		return nil
	})
	s.done(ctx, "inventory deleted", start, err, "product_id", productID, "platform", platform)
	return err
}

// ListInventoryByProduct returns a product's stock ordered by platform.
func (s *Service) ListInventoryByProduct(ctx context.Context, productID uint) ([]models.Inventory, error) {
	rows := make([]models.Inventory, 0)
	err := s.db.View(ctx, func(tx *gorm.DB) error {
		err := tx.Select("id").Where("id = ?", productID).Take(&models.Product{}).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError(EntityProduct, productID)
		}
		if err != nil {
			return err
		}
		return tx.Where("product_id = ?", productID).Order("platform").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListInventory returns stock rows ordered by (product_id, platform).
func (s *Service) ListInventory(ctx context.Context, filter InventoryFilter) ([]models.Inventory, error) {
	if err := filter.Page.validate(EntityInventory); err != nil {
		return nil, err
	}
	if filter.MinQuantity != nil && filter.MaxQuantity != nil && *filter.MinQuantity > *filter.MaxQuantity {
		return nil, NewInvalidFieldError(EntityInventory, "min_quantity", "must not exceed max_quantity", *filter.MinQuantity)
	}

	rows := make([]models.Inventory, 0)
	err := s.db.View(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&models.Inventory{})
		if filter.ProductID != nil {
			q = q.Where("product_id = ?", *filter.ProductID)
		}
		if filter.Platform != "" {
			q = q.Where("platform = ?", strings.TrimSpace(filter.Platform))
		}
		if filter.MinQuantity != nil {
			q = q.Where("quantity >= ?", *filter.MinQuantity)
		}
		if filter.MaxQuantity != nil {
			q = q.Where("quantity <= ?", *filter.MaxQuantity)
		}
		return filter.Page.apply(q.Order("product_id").Order("platform")).Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func inventoryKey(productID uint, platform string) string {
	return fmt.Sprintf("%d/%s", productID, platform)
}
