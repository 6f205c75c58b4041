package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound          = errors.New("cart not found")
	ErrCartAlreadyExists     = errors.New("cart already exists for user")
	ErrCartItemNotFound      = errors.New("item not in cart")
	ErrCartItemAlreadyExists = errors.New("cart item already exists")
)

// CartRepository owns persisted cart and cart-item state. All methods run
// against the caller's transaction so a whole cart operation commits or
// rolls back as one unit.
type CartRepository interface {
	FindByOwner(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Cart, error)
	FindByOwnerForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Cart, error)
	Create(ctx context.Context, tx *sql.Tx, cart *domain.Cart) error
	FindItem(ctx context.Context, tx *sql.Tx, cartID, productID uuid.UUID) (*domain.CartItem, error)
	FindItemForUpdate(ctx context.Context, tx *sql.Tx, cartID, productID uuid.UUID) (*domain.CartItem, error)
	InsertItem(ctx context.Context, tx *sql.Tx, item *domain.CartItem) error
	UpdateItem(ctx context.Context, tx *sql.Tx, item *domain.CartItem) error
	DeleteItem(ctx context.Context, tx *sql.Tx, cartID, productID uuid.UUID) error
	ListItems(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) ([]*domain.CartItem, error)
	ClearItems(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) error
}

type cartRepository struct{}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository() CartRepository {
	return &cartRepository{}
}

// FindByOwner retrieves the user's cart, if one has been materialized
func (r *cartRepository) FindByOwner(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Cart, error) {
	return r.findByOwner(ctx, tx, userID, "")
}

// FindByOwnerForUpdate retrieves the user's cart and locks its row for the
// rest of the transaction. Mutating paths go through this so concurrent
// writes to the same cart serialize instead of losing updates.
func (r *cartRepository) FindByOwnerForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Cart, error) {
	return r.findByOwner(ctx, tx, userID, "FOR UPDATE")
}

func (r *cartRepository) findByOwner(ctx context.Context, tx *sql.Tx, userID uuid.UUID, locking string) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, created_at
		FROM carts
		WHERE user_id = $1
	` + locking

	cart := &domain.Cart{}
	err := tx.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart by owner: %w", err)
	}

	return cart, nil
}

// Create inserts a new cart. The conflict target is the unique constraint on
// user_id, so a concurrent loser gets ErrCartAlreadyExists without the
// statement erroring; the transaction stays usable and the caller refetches
// the winner's row.
func (r *cartRepository) Create(ctx context.Context, tx *sql.Tx, cart *domain.Cart) error {
	query := `
		INSERT INTO carts (id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT carts_user_id_key DO NOTHING
	`

	result, err := tx.ExecContext(ctx, query, cart.ID, cart.UserID, cart.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartAlreadyExists
	}

	return nil
}

// FindItem retrieves the line for a (cart, product) pair
func (r *cartRepository) FindItem(ctx context.Context, tx *sql.Tx, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	return r.findItem(ctx, tx, cartID, productID, "")
}

// FindItemForUpdate retrieves the line for a (cart, product) pair and locks
// it for the rest of the transaction, so read-modify-write cycles like
// quantity increments cannot interleave.
func (r *cartRepository) FindItemForUpdate(ctx context.Context, tx *sql.Tx, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	return r.findItem(ctx, tx, cartID, productID, "FOR UPDATE")
}

func (r *cartRepository) findItem(ctx context.Context, tx *sql.Tx, cartID, productID uuid.UUID, locking string) (*domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, selected_discount_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	` + locking

	item := &domain.CartItem{}
	err := tx.QueryRowContext(ctx, query, cartID, productID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.SelectedDiscountID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

// InsertItem inserts a new line. The conflict target is the unique constraint
// on (cart_id, product_id); a concurrent loser gets ErrCartItemAlreadyExists
// without aborting the transaction and converts it into an increment of the
// winner's row.
func (r *cartRepository) InsertItem(ctx context.Context, tx *sql.Tx, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, selected_discount_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT cart_items_cart_id_product_id_key DO NOTHING
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		item.ID,
		item.CartID,
		item.ProductID,
		item.SelectedDiscountID,
		item.Quantity,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartItemAlreadyExists
	}

	return nil
}

// UpdateItem persists quantity and discount selection changes
func (r *cartRepository) UpdateItem(ctx context.Context, tx *sql.Tx, item *domain.CartItem) error {
	query := `
		UPDATE cart_items
		SET quantity = $2, selected_discount_id = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, item.ID, item.Quantity, item.SelectedDiscountID, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// DeleteItem removes the line for a (cart, product) pair; deleting an absent
// line is a no-op
func (r *cartRepository) DeleteItem(ctx context.Context, tx *sql.Tx, cartID, productID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	_, err := tx.ExecContext(ctx, query, cartID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	return nil
}

// ListItems retrieves all lines of a cart in insertion order
func (r *cartRepository) ListItems(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) ([]*domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, selected_discount_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at ASC
	`

	rows, err := tx.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item := &domain.CartItem{}
		err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.SelectedDiscountID,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// ClearItems deletes every line of the cart
func (r *cartRepository) ClearItems(ctx context.Context, tx *sql.Tx, cartID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1`

	_, err := tx.ExecContext(ctx, query, cartID)
	if err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	return nil
}
