package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddReviewRequest is the payload for posting a review; the author is taken
// from the authenticated caller, never from the body
type AddReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required"`
}

// ReviewHandler handles HTTP requests for product reviews
type ReviewHandler struct {
	reviewService service.ReviewService
	userService   service.UserService
	logger        *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService service.ReviewService, userService service.UserService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		userService:   userService,
		logger:        logger,
	}
}

// RegisterRoutes registers review routes; reading is public, posting requires
// auth
func (h *ReviewHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products/{id}/reviews", func(r chi.Router) {
		r.Get("/", h.ListReviews)
		r.With(authMiddleware).Post("/", h.AddReview)
	})
}

// ListReviews returns all reviews of a product, newest first
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid product ID")
		return
	}

	reviews, err := h.reviewService.GetReviewsByProduct(r.Context(), productID)
	if err != nil {
		h.logger.Error("Failed to list reviews", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, reviews)
}

// AddReview attaches a review to a product
func (h *ReviewHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req AddReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, r, validationErrors)
			return
		}
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	author, ok := h.authorName(r)
	if !ok {
		middleware.RespondWithError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	review, err := h.reviewService.AddReview(r.Context(), productID, author, req.Rating, req.Comment)
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, r, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to add review", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to add review")
		return
	}

	h.logger.Info("Review added",
		zap.String("product_id", productID.String()),
		zap.String("review_id", review.ID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) authorName(r *http.Request) (string, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return "", false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return "", false
	}
	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		return "", false
	}
	return user.Username, true
}
