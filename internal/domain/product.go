package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalog product together with its eagerly-loaded
// discounts and image list.
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Category    string          `json:"category" db:"category"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Images      []string        `json:"images"`
	Discounts   []Discount      `json:"discounts"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Discount is a percentage price reduction owned by exactly one product.
// Start and end dates are optional; a missing bound is open-ended.
type Discount struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ProductID   uuid.UUID  `json:"-" db:"product_id"`
	Description string     `json:"description" db:"description"`
	Percentage  float64    `json:"percentage" db:"percentage"`
	StartDate   *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty" db:"end_date"`
}

// SetDiscounts replaces the product's discount list. This is the only place
// the discount back-reference is written; Discount.ProductID is never treated
// as a second owner.
func (p *Product) SetDiscounts(discounts []Discount) {
	for i := range discounts {
		discounts[i].ProductID = p.ID
	}
	p.Discounts = discounts
}

// PrimaryImage returns the first image URL, or "" for a product without
// images.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
