package catalog

import (
	"errors"
	"fmt"
)

// Entity names a catalog table in errors and logs.
type Entity string

const (
	EntityCategory  Entity = "category"
	EntityBrand     Entity = "brand"
	EntityProduct   Entity = "product"
	EntityInventory Entity = "inventory"
	EntitySale      Entity = "sale"
)

// NotFoundError is returned when an id or a foreign key does not resolve.
type NotFoundError struct {
	Entity Entity
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: id=%s", e.Entity, e.ID)
}

// Is allows errors.Is to match any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// DuplicateNameError is returned when a category or brand name is already taken.
type DuplicateNameError struct {
	Entity Entity
	Name   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s: name=%q already exists", e.Entity, e.Name)
}

func (e *DuplicateNameError) Is(target error) bool {
	_, ok := target.(*DuplicateNameError)
	return ok
}

// InvalidFieldError is returned when a scalar field is malformed or out of range.
type InvalidFieldError struct {
	Entity Entity
	Field  string
	Reason string
	Value  interface{}
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: field=%s, reason=%s, value=%v", e.Entity, e.Field, e.Reason, e.Value)
}

func (e *InvalidFieldError) Is(target error) bool {
	_, ok := target.(*InvalidFieldError)
	return ok
}

// InvalidQuantityError is returned for a negative stock quantity or a non-positive sale quantity.
type InvalidQuantityError struct {
	Entity   Entity
	Quantity int
	Reason   string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid %s quantity: reason=%s, value=%d", e.Entity, e.Reason, e.Quantity)
}

func (e *InvalidQuantityError) Is(target error) bool {
	_, ok := target.(*InvalidQuantityError)
	return ok
}

func NewNotFoundError(entity Entity, id interface{}) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

func NewDuplicateNameError(entity Entity, name string) error {
	return &DuplicateNameError{Entity: entity, Name: name}
}

func NewInvalidFieldError(entity Entity, field, reason string, value interface{}) error {
	return &InvalidFieldError{Entity: entity, Field: field, Reason: reason, Value: value}
}

func NewInvalidQuantityError(entity Entity, quantity int, reason string) error {
	return &InvalidQuantityError{Entity: entity, Quantity: quantity, Reason: reason}
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicateName checks if an error is a DuplicateNameError
func IsDuplicateName(err error) bool {
	var dn *DuplicateNameError
	return errors.As(err, &dn)
}

// IsInvalidField checks if an error is an InvalidFieldError
func IsInvalidField(err error) bool {
	var inv *InvalidFieldError
	return errors.As(err, &inv)
}

// IsInvalidQuantity checks if an error is an InvalidQuantityError
func IsInvalidQuantity(err error) bool {
	var iq *InvalidQuantityError
	return errors.As(err, &iq)
}

// IsValidation reports whether err was raised by input validation, before anything was written.
func IsValidation(err error) bool {
	return IsNotFound(err) || IsDuplicateName(err) || IsInvalidField(err) || IsInvalidQuantity(err)
}
