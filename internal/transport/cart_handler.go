package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest is the payload for adding a product to the cart. DiscountID
// is optional: absent keeps the default resolution, the string "none" pins
// the line to no discount, anything else must be a discount id on the
// product.
type AddItemRequest struct {
	ProductID  string  `json:"product_id" validate:"required,uuid"`
	Quantity   int     `json:"quantity" validate:"required"`
	DiscountID *string `json:"discount_id"`
}

// SetQuantityRequest replaces the quantity of an existing line
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetDiscountRequest re-selects the discount on an existing line
type SetDiscountRequest struct {
	DiscountID *string `json:"discount_id"`
}

// CartHandler handles HTTP requests for cart operations. The cart owner is
// always the authenticated caller; there is no way to address another user's
// cart.
type CartHandler struct {
	cartService service.CartService
	userService service.UserService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, userService service.UserService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes; every route requires auth
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{productID}", h.SetQuantity)
		r.Delete("/items/{productID}", h.RemoveItem)
		r.Patch("/items/{productID}/discount", h.SetDiscount)
	})

	r.With(authMiddleware).Post("/api/checkout", h.Checkout)
}

// GetCart returns the projected cart of the caller
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), user)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// AddItem adds a product to the cart or increments an existing line
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, r, validationErrors)
			return
		}
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid product ID")
		return
	}

	selector, err := parseDiscountSelector(req.DiscountID)
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid discount ID")
		return
	}

	cart, err := h.cartService.AddOrIncrement(r.Context(), user, productID, req.Quantity, selector)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}

	h.logger.Info("Cart item added",
		zap.String("user_id", user.ID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", req.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// SetQuantity replaces the quantity of an existing line; zero or negative
// removes it
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	productID, ok := h.pathProductID(w, r)
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.cartService.SetQuantity(r.Context(), user, productID, req.Quantity)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// RemoveItem deletes a line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	productID, ok := h.pathProductID(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(r.Context(), user, productID)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// SetDiscount re-selects the discount on an existing line
func (h *CartHandler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	productID, ok := h.pathProductID(w, r)
	if !ok {
		return
	}

	var req SetDiscountRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	selector, err := parseDiscountSelector(req.DiscountID)
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid discount ID")
		return
	}

	cart, err := h.cartService.UpdateItemDiscount(r.Context(), user, productID, selector)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// ClearCart empties the caller's cart; clearing an empty cart succeeds
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.Clear(r.Context(), user)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// Checkout places a stub order and empties the cart
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.cartService.Checkout(r.Context(), user)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}

	h.logger.Info("Checkout completed",
		zap.String("user_id", user.ID.String()),
		zap.String("order_id", result.OrderID),
	)
	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// currentUser loads the authenticated account from the database so pricing
// always sees current roles and personal discount, not the token snapshot.
func (h *CartHandler) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, r, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load authenticated user", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

func (h *CartHandler) pathProductID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid product ID")
		return uuid.Nil, false
	}
	return productID, true
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch err {
	case service.ErrQuantityInvalid:
		middleware.RespondWithError(w, r, http.StatusBadRequest, err.Error())
	case service.ErrItemNotInCart:
		middleware.RespondWithError(w, r, http.StatusNotFound, err.Error())
	case repository.ErrProductNotFound:
		middleware.RespondWithError(w, r, http.StatusNotFound, err.Error())
	case pricing.ErrInvalidDiscount:
		middleware.RespondWithError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Cart operation failed", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "cart operation failed")
	}
}

// parseDiscountSelector maps the wire form onto the internal selector: nil
// for absent, the zero UUID for an explicit "none", the discount id
// otherwise.
func parseDiscountSelector(raw *string) (*uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	if *raw == "none" || *raw == "" {
		none := pricing.NoDiscount
		return &none, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
