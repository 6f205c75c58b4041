package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the per-user container of line items. One cart per user, created
// lazily on first mutation.
type Cart struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CartItem is one product line inside a cart. At most one item exists per
// (cart, product) pair; quantity is always > 0 while the row exists.
// SelectedDiscountID references one of the product's discounts and is nil
// when no discount was chosen. The item never owns the product or discount.
type CartItem struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	CartID             uuid.UUID  `json:"cart_id" db:"cart_id"`
	ProductID          uuid.UUID  `json:"product_id" db:"product_id"`
	SelectedDiscountID *uuid.UUID `json:"selected_discount_id,omitempty" db:"selected_discount_id"`
	Quantity           int        `json:"quantity" db:"quantity"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}
