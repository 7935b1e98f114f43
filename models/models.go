package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Products  []Product `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"-"`
}

type Brand struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Products  []Product `gorm:"foreignKey:BrandID;constraint:OnDelete:RESTRICT" json:"-"`
}

type Product struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	CategoryID uint            `gorm:"not null;index" json:"category_id"`
	BrandID    uint            `gorm:"not null;index" json:"brand_id"`
	Price      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Inventory  []Inventory     `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
	Sales      []Sale          `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
}

// Inventory is keyed by (product_id, platform); one row per pair.
type Inventory struct {
	ProductID uint      `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	Platform  string    `gorm:"primaryKey;size:64" json:"platform"`
	Quantity  int       `gorm:"not null;check:quantity >= 0" json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Inventory) TableName() string {
	return "inventory"
}

// Sale.ProductID is nil once the product was deleted under the detach retention policy.
type Sale struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID *uint           `gorm:"index" json:"product_id"`
	Platform  string          `gorm:"size:64" json:"platform,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	SoldAt    time.Time       `gorm:"not null;index" json:"sold_at"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductView is a product joined with the names of its category and brand.
type ProductView struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	CategoryID   uint            `json:"category_id"`
	CategoryName string          `json:"category_name"`
	BrandID      uint            `json:"brand_id"`
	BrandName    string          `json:"brand_name"`
	Price        decimal.Decimal `json:"price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// All lists every table in migration order.
func All() []any {
	return []any{&Category{}, &Brand{}, &Product{}, &Inventory{}, &Sale{}}
}
