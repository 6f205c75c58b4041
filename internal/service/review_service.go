package service

import (
	"context"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// ReviewService defines the interface for product review logic
type ReviewService interface {
	GetReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error)
	AddReview(ctx context.Context, productID uuid.UUID, author string, rating int, comment string) (*domain.Review, error)
}

type reviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository) ReviewService {
	return &reviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
	}
}

func (s *reviewService) GetReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error) {
	return s.reviewRepo.ListByProduct(ctx, productID)
}

// AddReview attaches a review to an existing product; the author comes from
// the authenticated caller's token
func (s *reviewService) AddReview(ctx context.Context, productID uuid.UUID, author string, rating int, comment string) (*domain.Review, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	review := &domain.Review{
		ID:        uuid.New(),
		ProductID: productID,
		Author:    author,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}
