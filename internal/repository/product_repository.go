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
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for catalog data access. Products
// are loaded with their image list and discounts eagerly attached, so the
// cart core never issues follow-up lookups for pricing data.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a product together with its images and discounts in one
// transaction
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (id, name, description, category, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Category,
		product.Price,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	if err := r.writeImages(ctx, tx, product); err != nil {
		return err
	}
	if err := r.writeDiscounts(ctx, tx, product); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product create: %w", err)
	}
	return nil
}

// Update rewrites the product row and replaces its images and discounts.
// Discounts are owned by the product, so the stored set always mirrors the
// list passed through Product.SetDiscounts.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE products
		SET name = $2, description = $3, category = $4, price = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := tx.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Category,
		product.Price,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_images WHERE product_id = $1`, product.ID); err != nil {
		return fmt.Errorf("failed to clear product images: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM discounts WHERE product_id = $1`, product.ID); err != nil {
		return fmt.Errorf("failed to clear product discounts: %w", err)
	}

	if err := r.writeImages(ctx, tx, product); err != nil {
		return err
	}
	if err := r.writeDiscounts(ctx, tx, product); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product update: %w", err)
	}
	return nil
}

// Delete removes a product; images and discounts cascade at the schema level
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product with its images and discounts
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, description, category, price, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Category,
		&product.Price,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	if err := r.loadImages(ctx, product); err != nil {
		return nil, err
	}
	if err := r.loadDiscounts(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// List retrieves all products with images and discounts attached
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return r.list(ctx, `
		SELECT id, name, description, category, price, created_at, updated_at
		FROM products
		ORDER BY created_at DESC
	`)
}

// ListByCategory retrieves all products in a category
func (r *productRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	return r.list(ctx, `
		SELECT id, name, description, category, price, created_at, updated_at
		FROM products
		WHERE category = $1
		ORDER BY created_at DESC
	`, category)
}

// Categories retrieves the distinct category names in use
func (r *productRepository) Categories(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT category FROM products ORDER BY category ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *productRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Category,
			&product.Price,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	for _, product := range products {
		if err := r.loadImages(ctx, product); err != nil {
			return nil, err
		}
		if err := r.loadDiscounts(ctx, product); err != nil {
			return nil, err
		}
	}

	return products, nil
}

func (r *productRepository) loadImages(ctx context.Context, product *domain.Product) error {
	query := `
		SELECT url
		FROM product_images
		WHERE product_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, product.ID)
	if err != nil {
		return fmt.Errorf("failed to load product images: %w", err)
	}
	defer rows.Close()

	images := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, url)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating product images: %w", err)
	}

	product.Images = images
	return nil
}

func (r *productRepository) loadDiscounts(ctx context.Context, product *domain.Product) error {
	query := `
		SELECT id, product_id, description, percentage, start_date, end_date
		FROM discounts
		WHERE product_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, product.ID)
	if err != nil {
		return fmt.Errorf("failed to load product discounts: %w", err)
	}
	defer rows.Close()

	discounts := []domain.Discount{}
	for rows.Next() {
		discount := domain.Discount{}
		err := rows.Scan(
			&discount.ID,
			&discount.ProductID,
			&discount.Description,
			&discount.Percentage,
			&discount.StartDate,
			&discount.EndDate,
		)
		if err != nil {
			return fmt.Errorf("failed to scan discount: %w", err)
		}
		discounts = append(discounts, discount)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating discounts: %w", err)
	}

	product.Discounts = discounts
	return nil
}

func (r *productRepository) writeImages(ctx context.Context, tx *sql.Tx, product *domain.Product) error {
	query := `
		INSERT INTO product_images (product_id, position, url)
		VALUES ($1, $2, $3)
	`

	for i, url := range product.Images {
		if _, err := tx.ExecContext(ctx, query, product.ID, i, url); err != nil {
			return fmt.Errorf("failed to write product image: %w", err)
		}
	}
	return nil
}

func (r *productRepository) writeDiscounts(ctx context.Context, tx *sql.Tx, product *domain.Product) error {
	query := `
		INSERT INTO discounts (id, product_id, description, percentage, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, d := range product.Discounts {
		if _, err := tx.ExecContext(ctx, query, d.ID, product.ID, d.Description, d.Percentage, d.StartDate, d.EndDate); err != nil {
			return fmt.Errorf("failed to write discount: %w", err)
		}
	}
	return nil
}
