package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/judyrop/retail-catalog/models"
	"github.com/judyrop/retail-catalog/store"
)

func newModel(entity Entity) (interface{}, error) {
	switch entity {
	case EntityCategory:
		return &models.Category{}, nil
	case EntityBrand:
		return &models.Brand{}, nil
	case EntityProduct:
		return &models.Product{}, nil
	case EntitySale:
		return &models.Sale{}, nil
	default:
		return nil, fmt.Errorf("no id-keyed table for %s", entity)
	}
}

// normalizeName trims surrounding whitespace; case is kept and compared exactly.
func normalizeName(entity Entity, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", NewInvalidFieldError(entity, "name", "cannot be empty", name)
	}
	if len(trimmed) > 255 {
		return "", NewInvalidFieldError(entity, "name", "must be at most 255 bytes", len(trimmed))
	}
	return trimmed, nil
}

// validateUnique fails with DuplicateNameError if another row of entity already has name.
// excludeID is the row being renamed, or 0 on create.
func validateUnique(tx *gorm.DB, entity Entity, name string, excludeID uint) error {
	model, err := newModel(entity)
	if err != nil {
		return err
	}
	q := tx.Model(model).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return NewDuplicateNameError(entity, name)
	}
	return nil
}

// validateForeignKey fails with NotFoundError naming the reference if id does not resolve.
// On postgres the referenced row is share-locked until commit, so a concurrent cascade on it
// waits for this transaction or this transaction waits for the cascade.
func validateForeignKey(tx *gorm.DB, entity Entity, id uint) error {
	model, err := newModel(entity)
	if err != nil {
		return err
	}
	err = store.ForShare(tx).Select("id").Where("id = ?", id).Take(model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError(entity, id)
	}
	return err
}

// lockRow loads the row with id into dest and holds it for update until commit.
func lockRow(tx *gorm.DB, entity Entity, id uint, dest interface{}) error {
	err := store.ForUpdate(tx).Where("id = ?", id).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError(entity, id)
	}
	return err
}

// duplicateAsName turns the store's unique-index violation, which only fires when two writers
// race past validateUnique, into the same error validateUnique would have returned.
func duplicateAsName(err error, entity Entity, name string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, store.ErrDuplicate) {
		return NewDuplicateNameError(entity, name)
	}
	return err
}
