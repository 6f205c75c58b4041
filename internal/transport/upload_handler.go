package transport

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUploadBytes caps a single image upload at 5 MiB
const maxUploadBytes = 5 << 20

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// UploadResponse carries the public URL of a stored image
type UploadResponse struct {
	URL string `json:"url"`
}

// UploadHandler stores product images on disk and serves them statically
type UploadHandler struct {
	uploadDir string
	baseURL   string
	logger    *zap.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploadDir, baseURL string, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		uploadDir: uploadDir,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

// RegisterRoutes registers the upload endpoint and the static file server
func (h *UploadHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware, middleware.RequireAnyRole(h.logger, domain.RoleManager, domain.RoleAdmin)).
		Post("/api/images", h.Upload)

	fileServer := http.StripPrefix(h.baseURL+"/", http.FileServer(http.Dir(h.uploadDir)))
	r.Get(h.baseURL+"/*", fileServer.ServeHTTP)
}

// Upload stores a multipart image under a generated name and returns its
// public URL
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("image")
	if err != nil {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExtensions[ext] {
		middleware.RespondWithError(w, r, http.StatusBadRequest, "unsupported image type")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error("Failed to create upload directory", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to store image")
		return
	}

	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		h.logger.Error("Failed to create image file", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to store image")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error("Failed to write image file", zap.Error(err))
		middleware.RespondWithError(w, r, http.StatusInternalServerError, "failed to store image")
		return
	}

	url := fmt.Sprintf("%s/%s", h.baseURL, name)
	h.logger.Info("Image uploaded",
		zap.String("file", name),
		zap.Int64("size", header.Size),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, UploadResponse{URL: url})
}
