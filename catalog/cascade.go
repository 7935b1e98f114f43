package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/judyrop/retail-catalog/models"
	"github.com/judyrop/retail-catalog/store"
)

// CascadeReport describes the rows a delete removed, or would remove when DryRun is set.
type CascadeReport struct {
	Root          Entity        `json:"root"`
	RootID        uint          `json:"root_id"`
	ProductIDs    []uint        `json:"product_ids"`
	InventoryRows int64         `json:"inventory_rows"`
	SaleRows      int64         `json:"sale_rows"`
	SaleRetention SaleRetention `json:"sale_retention"`
	DryRun        bool          `json:"dry_run"`
}

// closure is the set of rows that must go together with a root so nothing is left pointing at it.
type closure struct {
	root       Entity
	rootID     uint
	productIDs []uint
}

// DeleteProduct removes a product with its inventory rows and sales.
func (s *Service) DeleteProduct(ctx context.Context, id uint) (*CascadeReport, error) {
	return s.cascade(ctx, EntityProduct, id, false)
}

// DeleteCategory removes a category, every product in it, and their inventory rows and sales.
func (s *Service) DeleteCategory(ctx context.Context, id uint) (*CascadeReport, error) {
	return s.cascade(ctx, EntityCategory, id, false)
}

// DeleteBrand removes a brand, every product of it, and their inventory rows and sales.
func (s *Service) DeleteBrand(ctx context.Context, id uint) (*CascadeReport, error) {
	return s.cascade(ctx, EntityBrand, id, false)
}

// PlanDelete reports what deleting root would remove without removing anything.
func (s *Service) PlanDelete(ctx context.Context, root Entity, id uint) (*CascadeReport, error) {
	return s.cascade(ctx, root, id, true)
}

func (s *Service) cascade(ctx context.Context, root Entity, id uint, dryRun bool) (*CascadeReport, error) {
	start := time.Now()
	var report *CascadeReport
	err := s.db.Transact(ctx, func(tx *gorm.DB) error {
		c, err := resolveClosure(tx, root, id)
		if err != nil {
			return err
		}
		r, err := s.measure(tx, c)
		if err != nil {
			return err
		}
		r.DryRun = dryRun
		if !dryRun {
			if err := s.deleteClosure(tx, c); err != nil {
				return err
			}
		}
		report = r
		return nil
	})
	if dryRun {
		return report, err
	}
	args := []any{"root", root, "root_id", id}
	if report != nil {
		args = append(args,
			"products", len(report.ProductIDs),
			"inventory_rows", report.InventoryRows,
			"sale_rows", report.SaleRows,
			"sale_retention", report.SaleRetention)
	}
	s.done(ctx, "cascade delete", start, err, args...)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// resolveClosure locks the root and collects the products under it. For a product root the
// product is its own closure; for a category or brand it is every product referencing it.
func resolveClosure(tx *gorm.DB, root Entity, id uint) (*closure, error) {
	var column string
	switch root {
	case EntityProduct:
	case EntityCategory:
		column = "category_id"
	case EntityBrand:
		column = "brand_id"
	default:
		return nil, fmt.Errorf("cannot cascade from %s", root)
	}

	model, err := newModel(root)
	if err != nil {
		return nil, err
	}
	err = store.ForUpdate(tx).Select("id").Where("id = ?", id).Take(model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError(root, id)
	}
	if err != nil {
		return nil, err
	}

	c := &closure{root: root, rootID: id}
	if root == EntityProduct {
		c.productIDs = []uint{id}
		return c, nil
	}
	c.productIDs = make([]uint, 0)
	err = store.ForUpdate(tx).Model(&models.Product{}).
		Where(column+" = ?", id).
		Order("id").
		Pluck("id", &c.productIDs).Error
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) measure(tx *gorm.DB, c *closure) (*CascadeReport, error) {
	r := &CascadeReport{
		Root:          c.root,
		RootID:        c.rootID,
		ProductIDs:    c.productIDs,
		SaleRetention: s.retention,
	}
	if len(c.productIDs) == 0 {
		return r, nil
	}
	if err := tx.Model(&models.Inventory{}).Where("product_id IN ?", c.productIDs).Count(&r.InventoryRows).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Sale{}).Where("product_id IN ?", c.productIDs).Count(&r.SaleRows).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// deleteClosure removes leaves before parents: sales and inventory, then products, then the
// category or brand root. Sales and inventory rows have no order among themselves.
func (s *Service) deleteClosure(tx *gorm.DB, c *closure) error {
	if len(c.productIDs) > 0 {
		var err error
		if s.retention == RetainDetach {
			err = tx.Model(&models.Sale{}).
				Where("product_id IN ?", c.productIDs).
				Update("product_id", gorm.Expr("NULL")).Error
		} else {
			err = tx.Where("product_id IN ?", c.productIDs).Delete(&models.Sale{}).Error
		}
		if err != nil {
			return fmt.Errorf("delete sales: %w", err)
		}
		if err := tx.Where("product_id IN ?", c.productIDs).Delete(&models.Inventory{}).Error; err != nil {
			return fmt.Errorf("delete inventory: %w", err)
		}

		res := tx.Where("id IN ?", c.productIDs).Delete(&models.Product{})
		if res.Error != nil {
			return fmt.Errorf("delete products: %w", res.Error)
		}
		if res.RowsAffected != int64(len(c.productIDs)) {
			return fmt.Errorf("%w: %d of %d products deleted", store.ErrConflict, res.RowsAffected, len(c.productIDs))
		}
	}

	if c.root == EntityProduct {
		return nil
	}
	model, err := newModel(c.root)
	if err != nil {
		return err
	}
	res := tx.Where("id = ?", c.rootID).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", c.root, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: %s %d already deleted", store.ErrConflict, c.root, c.rootID)
	}
	return nil
}
