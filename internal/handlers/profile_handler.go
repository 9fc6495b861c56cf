package handlers

import (
	"context"
	"errors"

	"github.com/ake144/e-tutor/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type profileApplicationService interface {
	RequestAvatarUpload(ctx context.Context, userID int64, contentType string) (*services.AvatarUpload, error)
}

type ProfileHandler struct {
	service  profileApplicationService
	validate *validator.Validate
}

func NewProfileHandler(service profileApplicationService) *ProfileHandler {
	return &ProfileHandler{
		service:  service,
		validate: validator.New(),
	}
}

type avatarUploadRequest struct {
	ContentType string `json:"contentType" validate:"required"`
}

// RequestAvatarUpload hands back a presigned PUT url; the client uploads directly to storage.
func (h *ProfileHandler) RequestAvatarUpload(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return invalidToken(c)
	}

	var req avatarUploadRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	upload, err := h.service.RequestAvatarUpload(c.UserContext(), userID, req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrStorageUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "File storage is not configured"})
		case errors.Is(err, services.ErrForbidden):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to prepare avatar upload"})
		}
	}

	return c.JSON(upload)
}
