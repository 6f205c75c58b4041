package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	ErrItemNotInCart   = errors.New("item not in cart")
)

// CartLineDiscount describes the active product discount on a cart line.
type CartLineDiscount struct {
	ID          uuid.UUID  `json:"id"`
	Description string     `json:"description"`
	Percentage  float64    `json:"percentage"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// CartLine is one projected cart line. Prices are recomputed from current
// product, discount, and user data on every projection; nothing here is ever
// cached.
type CartLine struct {
	ProductID                  uuid.UUID         `json:"id"`
	Title                      string            `json:"title"`
	Price                      decimal.Decimal   `json:"price"`
	FinalPrice                 decimal.Decimal   `json:"final_price"`
	ImageURL                   string            `json:"image_url"`
	Quantity                   int               `json:"quantity"`
	ProductDiscount            *CartLineDiscount `json:"product_discount"`
	UserDiscountPercentage     float64           `json:"user_discount_percentage"`
	EmployeeDiscountPercentage float64           `json:"employee_discount_percentage"`
	TotalDiscountPercentage    float64           `json:"total_discount_percentage"`
}

// CartResponse is the projection of a cart returned by every operation.
type CartResponse struct {
	Items []CartLine `json:"items"`
}

// CheckoutResult is the stub checkout outcome; checkout only clears the cart.
type CheckoutResult struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CartService implements the cart operations. Every operation takes the
// authenticated user explicitly and executes inside a single transaction
// scoped to that user's cart; the returned projection is re-read from
// persisted state after the mutation.
type CartService interface {
	GetCart(ctx context.Context, user *domain.User) (*CartResponse, error)
	AddOrIncrement(ctx context.Context, user *domain.User, productID uuid.UUID, quantity int, discountSelector *uuid.UUID) (*CartResponse, error)
	SetQuantity(ctx context.Context, user *domain.User, productID uuid.UUID, quantity int) (*CartResponse, error)
	RemoveItem(ctx context.Context, user *domain.User, productID uuid.UUID) (*CartResponse, error)
	UpdateItemDiscount(ctx context.Context, user *domain.User, productID uuid.UUID, discountSelector *uuid.UUID) (*CartResponse, error)
	Clear(ctx context.Context, user *domain.User) (*CartResponse, error)
	Checkout(ctx context.Context, user *domain.User) (*CheckoutResult, error)
}

type cartService struct {
	db          *sql.DB
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(db *sql.DB, cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart projects the current cart without mutating state. A user without a
// cart row gets an empty projection; no row is materialized on read.
func (s *cartService) GetCart(ctx context.Context, user *domain.User) (*CartResponse, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cart, err := s.cartRepo.FindByOwner(ctx, tx, user.ID)
	if err != nil {
		if err == repository.ErrCartNotFound {
			return &CartResponse{Items: []CartLine{}}, nil
		}
		return nil, err
	}

	resp, err := s.project(ctx, tx, user, cart.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit read transaction: %w", err)
	}
	return resp, nil
}

// AddOrIncrement creates a new line or increments an existing one. A brand-new
// line auto-selects the best active discount when no selector is given; on
// increments the previous selection is preserved unless the caller passes an
// explicit selector.
func (s *cartService) AddOrIncrement(ctx context.Context, user *domain.User, productID uuid.UUID, quantity int, discountSelector *uuid.UUID) (*CartResponse, error) {
	if quantity <= 0 {
		return nil, ErrQuantityInvalid
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, user, func(tx *sql.Tx, cart *domain.Cart) error {
		now := time.Now()

		item, err := s.cartRepo.FindItemForUpdate(ctx, tx, cart.ID, product.ID)
		if err != nil {
			if err != repository.ErrCartItemNotFound {
				return err
			}

			selected, err := pricing.ResolveSelectedDiscount(product, discountSelector, true, now)
			if err != nil {
				return err
			}
			newItem := &domain.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: product.ID,
				Quantity:  quantity,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if selected != nil {
				newItem.SelectedDiscountID = &selected.ID
			}

			err = s.cartRepo.InsertItem(ctx, tx, newItem)
			if err == nil {
				return nil
			}
			if err != repository.ErrCartItemAlreadyExists {
				return err
			}
			// Lost the insert race to a concurrent add for the same
			// product; increment the winner's row instead.
			item, err = s.cartRepo.FindItemForUpdate(ctx, tx, cart.ID, product.ID)
			if err != nil {
				return err
			}
		}

		item.Quantity += quantity
		if discountSelector != nil {
			selected, err := pricing.ResolveSelectedDiscount(product, discountSelector, false, now)
			if err != nil {
				return err
			}
			item.SelectedDiscountID = nil
			if selected != nil {
				item.SelectedDiscountID = &selected.ID
			}
		}
		item.UpdatedAt = now
		return s.cartRepo.UpdateItem(ctx, tx, item)
	})
}

// SetQuantity replaces the quantity of an existing line. Zero or negative
// quantities delete the line instead of storing a zero.
func (s *cartService) SetQuantity(ctx context.Context, user *domain.User, productID uuid.UUID, quantity int) (*CartResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, user, func(tx *sql.Tx, cart *domain.Cart) error {
		item, err := s.cartRepo.FindItemForUpdate(ctx, tx, cart.ID, product.ID)
		if err != nil {
			if err == repository.ErrCartItemNotFound {
				return ErrItemNotInCart
			}
			return err
		}

		if quantity <= 0 {
			return s.cartRepo.DeleteItem(ctx, tx, cart.ID, product.ID)
		}

		item.Quantity = quantity
		item.UpdatedAt = time.Now()
		return s.cartRepo.UpdateItem(ctx, tx, item)
	})
}

// RemoveItem deletes a line if present; removing an absent line is a no-op.
func (s *cartService) RemoveItem(ctx context.Context, user *domain.User, productID uuid.UUID) (*CartResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, user, func(tx *sql.Tx, cart *domain.Cart) error {
		return s.cartRepo.DeleteItem(ctx, tx, cart.ID, product.ID)
	})
}

// UpdateItemDiscount re-resolves the discount selection of an existing line.
func (s *cartService) UpdateItemDiscount(ctx context.Context, user *domain.User, productID uuid.UUID, discountSelector *uuid.UUID) (*CartResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, user, func(tx *sql.Tx, cart *domain.Cart) error {
		item, err := s.cartRepo.FindItemForUpdate(ctx, tx, cart.ID, product.ID)
		if err != nil {
			if err == repository.ErrCartItemNotFound {
				return ErrItemNotInCart
			}
			return err
		}

		selected, err := pricing.ResolveSelectedDiscount(product, discountSelector, false, time.Now())
		if err != nil {
			return err
		}
		item.SelectedDiscountID = nil
		if selected != nil {
			item.SelectedDiscountID = &selected.ID
		}
		item.UpdatedAt = time.Now()
		return s.cartRepo.UpdateItem(ctx, tx, item)
	})
}

// Clear deletes every line of the cart. Clearing an absent or already-empty
// cart succeeds with an empty projection.
func (s *cartService) Clear(ctx context.Context, user *domain.User) (*CartResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cart, err := s.cartRepo.FindByOwnerForUpdate(ctx, tx, user.ID)
	if err != nil {
		if err == repository.ErrCartNotFound {
			return &CartResponse{Items: []CartLine{}}, nil
		}
		return nil, err
	}

	if err := s.cartRepo.ClearItems(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	resp, err := s.project(ctx, tx, user, cart.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return resp, nil
}

// Checkout is a purchase stub: it issues an order id and empties the cart.
func (s *cartService) Checkout(ctx context.Context, user *domain.User) (*CheckoutResult, error) {
	if _, err := s.Clear(ctx, user); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		OrderID: uuid.New().String(),
		Status:  "SUCCESS",
		Message: "Order placed successfully!",
	}, nil
}

// mutate runs fn against the user's cart inside one transaction and returns
// the projection re-read from the mutated state before commit.
func (s *cartService) mutate(ctx context.Context, user *domain.User, fn func(tx *sql.Tx, cart *domain.Cart) error) (*CartResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cart, err := s.getOrCreateCart(ctx, tx, user)
	if err != nil {
		return nil, err
	}

	if err := fn(tx, cart); err != nil {
		return nil, err
	}

	resp, err := s.project(ctx, tx, user, cart.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return resp, nil
}

// getOrCreateCart lazily materializes the user's cart and locks its row for
// the transaction. Losing the creation race to a concurrent request is
// resolved by refetching the winner's row.
func (s *cartService) getOrCreateCart(ctx context.Context, tx *sql.Tx, user *domain.User) (*domain.Cart, error) {
	cart, err := s.cartRepo.FindByOwnerForUpdate(ctx, tx, user.ID)
	if err == nil {
		return cart, nil
	}
	if err != repository.ErrCartNotFound {
		return nil, err
	}

	cart = &domain.Cart{
		ID:        uuid.New(),
		UserID:    user.ID,
		CreatedAt: time.Now(),
	}
	err = s.cartRepo.Create(ctx, tx, cart)
	if err == nil {
		return cart, nil
	}
	if err != repository.ErrCartAlreadyExists {
		return nil, err
	}

	return s.cartRepo.FindByOwnerForUpdate(ctx, tx, user.ID)
}

// project maps persisted cart state into the response shape, running the
// pricing calculator per line at render time.
func (s *cartService) project(ctx context.Context, tx *sql.Tx, user *domain.User, cartID uuid.UUID) (*CartResponse, error) {
	items, err := s.cartRepo.ListItems(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lines := []CartLine{}
	for _, item := range items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		var selected *domain.Discount
		if item.SelectedDiscountID != nil {
			selected = pricing.FindDiscount(product, *item.SelectedDiscountID)
		}

		quote := pricing.Price(product, selected, user, now)

		line := CartLine{
			ProductID:                  product.ID,
			Title:                      product.Name,
			Price:                      quote.BasePrice,
			FinalPrice:                 quote.FinalPrice,
			ImageURL:                   product.PrimaryImage(),
			Quantity:                   item.Quantity,
			UserDiscountPercentage:     quote.UserPct,
			EmployeeDiscountPercentage: quote.EmployeePct,
			TotalDiscountPercentage:    quote.TotalPct,
		}
		if selected != nil && pricing.IsActive(selected, now) {
			line.ProductDiscount = &CartLineDiscount{
				ID:          selected.ID,
				Description: selected.Description,
				Percentage:  selected.Percentage,
				StartDate:   selected.StartDate,
				EndDate:     selected.EndDate,
			}
		}
		lines = append(lines, line)
	}

	return &CartResponse{Items: lines}, nil
}
