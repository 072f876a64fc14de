package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicpulse/issue-service/internal/api/dto"
	"github.com/civicpulse/issue-service/internal/policy"
	"github.com/civicpulse/issue-service/internal/storage"
	apperrors "github.com/civicpulse/issue-service/pkg/util/errorutil"
)

const uploadField = "image"

// UploadsHandler stores issue images in object storage.
type UploadsHandler struct {
	store    storage.ImageStore
	maxBytes int64
}

// NewUploadsHandler constructs handler. A nil store makes every upload 503.
func NewUploadsHandler(store storage.ImageStore, maxBytes int64) *UploadsHandler {
	return &UploadsHandler{store: store, maxBytes: maxBytes}
}

// Upload POST /api/uploads with a multipart "image" field.
func (h *UploadsHandler) Upload(c *fiber.Ctx) error {
	if err := policy.Enforce(actor(c), policy.ActionUploadImage, ""); err != nil {
		return err
	}
	if h.store == nil {
		return apperrors.NewUnavailable("image storage not configured")
	}

	file, err := c.FormFile(uploadField)
	if err != nil {
		return apperrors.NewValidationError("validation failed", map[string]any{uploadField: "is required"})
	}
	contentType := file.Header.Get(fiber.HeaderContentType)
	if !storage.AllowedContentType(contentType) {
		return apperrors.NewValidationError("validation failed", map[string]any{uploadField: "must be a jpeg, png, gif or webp image"})
	}
	if file.Size <= 0 || (h.maxBytes > 0 && file.Size > h.maxBytes) {
		return apperrors.NewValidationError("validation failed", map[string]any{
			uploadField: fmt.Sprintf("must be between 1 and %d bytes", h.maxBytes),
		})
	}

	body, err := file.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer body.Close()

	url, err := h.store.Upload(c.UserContext(), contentType, body, file.Size)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return respond(c, http.StatusCreated, dto.UploadResponse{URL: url})
}
