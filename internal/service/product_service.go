package service

import (
	"context"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountInput describes one discount in a product create/update request.
type DiscountInput struct {
	Description string     `json:"description" validate:"required"`
	Percentage  float64    `json:"percentage" validate:"gte=0,lte=100"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// ProductInput is the payload for creating or replacing a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
	Discounts   []DiscountInput `json:"discounts" validate:"dive"`
}

// ProductService defines the interface for catalog business logic
type ProductService interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetProductsByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	GetCategories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.List(ctx)
}

func (s *productService) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) GetProductsByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	return s.productRepo.ListByCategory(ctx, category)
}

func (s *productService) GetCategories(ctx context.Context) ([]string, error) {
	return s.productRepo.Categories(ctx)
}

// CreateProduct inserts a new product with its images and discounts
func (s *productService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Images:      input.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	product.SetDiscounts(buildDiscounts(input.Discounts))

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct replaces the product's fields, image list, and discount set.
// The discount list always flows through Product.SetDiscounts so the
// back-references stay consistent.
func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Description = input.Description
	product.Category = input.Category
	product.Price = input.Price
	product.Images = input.Images
	product.UpdatedAt = time.Now()
	product.SetDiscounts(buildDiscounts(input.Discounts))

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

func buildDiscounts(inputs []DiscountInput) []domain.Discount {
	discounts := make([]domain.Discount, 0, len(inputs))
	for _, in := range inputs {
		discounts = append(discounts, domain.Discount{
			ID:          uuid.New(),
			Description: in.Description,
			Percentage:  in.Percentage,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
		})
	}
	return discounts
}
