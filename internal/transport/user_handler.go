package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Username string `json:"username" validate:"required"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// UserDiscountRequest is the payload for setting a personal discount
type UserDiscountRequest struct {
	Percentage float64    `json:"percentage" validate:"gte=0,lte=100"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
}

// EmployeeRoleRequest toggles the employee role on an account
type EmployeeRoleRequest struct {
	Enabled bool `json:"enabled"`
}

// UserProfile represents user profile data
type UserProfile struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username"`
	Roles             []string   `json:"roles"`
	Flagged           bool       `json:"flagged"`
	DiscountPct       float64    `json:"discount_percentage"`
	DiscountStartDate *time.Time `json:"discount_start_date,omitempty"`
	DiscountEndDate   *time.Time `json:"discount_end_date,omitempty"`
}

func toProfile(user *domain.User) UserProfile {
	return UserProfile{
		ID:                user.ID.String(),
		Email:             user.Email,
		Username:          user.Username,
		Roles:             user.Roles,
		Flagged:           user.Flagged,
		DiscountPct:       user.DiscountPct,
		DiscountStartDate: user.DiscountStartDate,
		DiscountEndDate:   user.DiscountEndDate,
	}
}

// UserHandler handles HTTP requests for account and user-administration
// operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/users", func(r chi.Router) {
		// Public routes
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
		})

		// Administration
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.With(middleware.RequireAnyRole(h.logger, domain.RoleManager, domain.RoleAdmin)).
				Get("/", h.ListUsers)
			r.With(middleware.RequireAnyRole(h.logger, domain.RoleManager, domain.RoleAdmin)).
				Post("/{id}/flag", h.FlagUser)
			r.With(middleware.RequireAnyRole(h.logger, domain.RoleAdmin)).
				Post("/{id}/unflag", h.UnflagUser)
			r.With(middleware.RequireAnyRole(h.logger, domain.RoleAdmin)).
				Delete("/{id}", h.DeleteUser)
			r.With(middleware.RequireAnyRole(h.logger, domain.RoleManager, domain.RoleAdmin)).
				Patch("/{id}/discount", h.UpdateDiscount)
			r.With(middleware.RequireAnyRole(h.logger, domain.RoleManager, domain.RoleAdmin)).
				Patch("/{id}/employee", h.SetEmployeeRole)
			r.With(middleware.RequireAnyRole(h.logger, domain.RoleAdmin)).
				Post("/managers", h.RegisterManager)
		})
	})
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, r, validationErrors)
			return
		}

		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		h.logger.Error("Registration failed", zap.Error(err))

		if err == repository.ErrUserAlreadyExists {
			middleware.RespondWithError(w, r, http.StatusConflict, "user with this email already exists")
			return
		}

		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to register user")
		return
	}

	h.logger.Info("User registered successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toProfile(user))
}

// RegisterManager lets an admin create a manager account
func (h *UserHandler) RegisterManager(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, r, validationErrors)
			return
		}
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.RegisterManager(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		h.logger.Error("Manager registration failed", zap.Error(err))

		if err == repository.ErrUserAlreadyExists {
			middleware.RespondWithError(w, r, http.StatusConflict, "user with this email already exists")
			return
		}

		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to register manager")
		return
	}

	h.logger.Info("Manager registered successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toProfile(user))
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, r, validationErrors)
			return
		}

		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	accessToken, refreshToken, user, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))

		if err == service.ErrInvalidCredentials {
			middleware.RespondWithError(w, r, http.StatusUnauthorized, "invalid email or password")
			return
		}

		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to login")
		return
	}

	response := LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toProfile(user),
	}

	h.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// Logout handles user logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Logout decode failed", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.userService.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("Logout failed", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to logout")
		return
	}

	h.logger.Info("User logged out successfully")
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// RefreshToken handles token refresh
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Refresh token validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, r, validationErrors)
			return
		}

		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	newAccessToken, err := h.userService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Debug("Token refresh failed", zap.Error(err))

		if err == service.ErrInvalidToken {
			middleware.RespondWithError(w, r, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		if err == service.ErrTokenExpired {
			middleware.RespondWithError(w, r, http.StatusUnauthorized, "refresh token expired")
			return
		}

		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	response := RefreshResponse{
		AccessToken: newAccessToken,
	}

	h.logger.Info("Token refreshed successfully")
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// GetProfile handles getting user profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.logger.Error("Invalid user ID format", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid user ID")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get user profile", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to get user profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProfile(user))
}

// ListUsers returns all accounts for the admin and manager views
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to list users")
		return
	}

	profiles := make([]UserProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, toProfile(user))
	}
	middleware.RespondWithJSON(w, http.StatusOK, profiles)
}

// FlagUser marks an account for moderation
func (h *UserHandler) FlagUser(w http.ResponseWriter, r *http.Request) {
	h.setFlagged(w, r, true)
}

// UnflagUser clears the moderation flag
func (h *UserHandler) UnflagUser(w http.ResponseWriter, r *http.Request) {
	h.setFlagged(w, r, false)
}

func (h *UserHandler) setFlagged(w http.ResponseWriter, r *http.Request, flagged bool) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	user, err := h.userService.SetFlagged(r.Context(), userID, flagged)
	if err != nil {
		if err == repository.ErrUserNotFound {
			middleware.RespondWithError(w, r, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("Failed to update flag", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to update flag")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProfile(user))
}

// DeleteUser removes an account
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(r.Context(), userID); err != nil {
		if err == repository.ErrUserNotFound {
			middleware.RespondWithError(w, r, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("Failed to delete user", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to delete user")
		return
	}

	h.logger.Info("User deleted", zap.String("user_id", userID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateDiscount sets the personal discount on an account
func (h *UserHandler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	var req UserDiscountRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, r, validationErrors)
			return
		}
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.UpdateUserDiscount(r.Context(), userID, req.Percentage, req.StartDate, req.EndDate)
	if err != nil {
		switch err {
		case repository.ErrUserNotFound:
			middleware.RespondWithError(w, r, http.StatusNotFound, "user not found")
		case service.ErrPercentageOutOfRange, service.ErrInvalidDateRange:
			middleware.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to update user discount", zap.Error(err))
			middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to update user discount")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProfile(user))
}

// SetEmployeeRole grants or revokes the employee role
func (h *UserHandler) SetEmployeeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	var req EmployeeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.SetEmployeeRole(r.Context(), userID, req.Enabled)
	if err != nil {
		switch err {
		case repository.ErrUserNotFound:
			middleware.RespondWithError(w, r, http.StatusNotFound, "user not found")
		case repository.ErrRoleNotFound:
			h.logger.Error("Employee role row missing", zap.Error(err))
			middleware.RespondWithError(w, r, http.StatusInternalServerError, "employee role not configured")
		default:
			h.logger.Error("Failed to update employee role", zap.Error(err))
			middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to update employee role")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProfile(user))
}

func (h *UserHandler) pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}
