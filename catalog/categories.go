package catalog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/judyrop/retail-catalog/models"
)

type CategoryInput struct {
	Name string `json:"name"`
}

// ListCategories returns every category ordered by id.
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := make([]models.Category, 0)
	err := s.db.View(ctx, func(tx *gorm.DB) error {
		return tx.Order("id").Find(&categories).Error
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := s.db.View(ctx, func(tx *gorm.DB) error {
		err := tx.Where("id = ?", id).Take(&category).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError(EntityCategory, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	start := time.Now()
	name, err := normalizeName(EntityCategory, in.Name)
	if err != nil {
		return nil, err
	}

	var category models.Category
	err = s.db.Transact(ctx, func(tx *gorm.DB) error {
		if err := validateUnique(tx, EntityCategory, name, 0); err != nil {
			return err
		}
		category = models.Category{Name: name}
		return duplicateAsName(tx.Create(&category).Error, EntityCategory, name)
	})
	s.done(ctx, "category created", start, err, "category_id", category.ID, "name", name)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// UpdateCategory renames a category. Its products are untouched.
func (s *Service) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	start := time.Now()
	name, err := normalizeName(EntityCategory, in.Name)
	if err != nil {
		return nil, err
	}

	var category models.Category
	err = s.db.Transact(ctx, func(tx *gorm.DB) error {
		if err := lockRow(tx, EntityCategory, id, &category); err != nil {
			return err
		}
		if err := validateUnique(tx, EntityCategory, name, id); err != nil {
			return err
		}
		if err := tx.Model(&category).Update("name", name).Error; err != nil {
			return duplicateAsName(err, EntityCategory, name)
		}
		return tx.Where("id = ?", id).Take(&category).Error
	})
	s.done(ctx, "category updated", start, err, "category_id", id, "name", name)
	if err != nil {
		return nil, err
	}
	return &category, nil
}
