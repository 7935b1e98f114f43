package catalog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/judyrop/retail-catalog/models"
)

type BrandInput struct {
	Name string `json:"name"`
}

func (s *Service) ListBrands(ctx context.Context) ([]models.Brand, error) {
	brands := make([]models.Brand, 0)
	if err := s.db.View(ctx, func(tx *gorm.DB) error {
		return tx.Order("id").Find(&brands).Error
	}); err != nil {
		return nil, err
	}
	return brands, nil
}

func (s *Service) GetBrand(ctx context.Context, id uint) (*models.Brand, error) {
	var brand models.Brand
	if err := s.db.View(ctx, func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).Take(&brand).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError(EntityBrand, id)
		}
		return err
	}); err != nil {
		return nil, err
	}
	return &brand, nil
}

func (s *Service) CreateBrand(ctx context.Context, in BrandInput) (*models.Brand, error) {
	start := time.Now()
	name, err := normalizeName(EntityBrand, in.Name)
	if err != nil {
		return nil, err
	}

	var brand models.Brand
	err = s.db.Transact(ctx, func(tx *gorm.DB) error {
		if err := validateUnique(tx, EntityBrand, name, 0); err != nil {
			return err
		}
		brand = models.Brand{Name: name}
		return duplicateAsName(tx.Create(&brand).Error, EntityBrand, name)
	})
	s.done(ctx, "brand created", start, err, "brand_id", brand.ID, "name", name)
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

func (s *Service) UpdateBrand(ctx context.Context, id uint, in BrandInput) (*models.Brand, error) {
	start := time.Now()
	name, err := normalizeName(EntityBrand, in.Name)
	if err != nil {
		return nil, err
	}

	var brand models.Brand
	err = s.db.Transact(ctx, func(tx *gorm.DB) error {
		if err := lockRow(tx, EntityBrand, id, &brand); err != nil {
			return err
		}
		if err := validateUnique(tx, EntityBrand, name, id); err != nil {
			return err
		}
		if err := tx.Model(&brand).Update("name", name).Error; err != nil {
			return duplicateAsName(err, EntityBrand, name)
		}
		return tx.Where("id = ?", id).Take(&brand).Error
	})
	s.done(ctx, "brand updated", start, err, "brand_id", id, "name", name)
	if err != nil {
		return nil, err
	}
	return &brand, nil
}
