package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var errInvalidNumber = errors.New("invalid number")

type tutorApplicationService interface {
	ListTutors(ctx context.Context, search services.TutorSearch) ([]models.TutorWithScore, int, error)
	GetTutor(ctx context.Context, tutorID int64) (*models.TutorDetail, error)
	GetOwnProfile(ctx context.Context, userID int64) (*models.TutorProfile, error)
	UpdateProfile(ctx context.Context, userID int64, input services.UpdateTutorProfileInput) (*models.TutorProfile, error)
}

type TutorHandler struct {
	service  tutorApplicationService
	validate *validator.Validate
}

func NewTutorHandler(service tutorApplicationService) *TutorHandler {
	return &TutorHandler{
		service:  service,
		validate: validator.New(),
	}
}

type updateTutorProfileRequest struct {
	Bio        *string   `json:"bio" validate:"omitempty,max=2000"`
	Subjects   *[]string `json:"subjects" validate:"omitempty,max=20,dive,max=64"`
	HourlyRate *float64  `json:"hourlyRate" validate:"omitempty,gt=0"`
}

func (h *TutorHandler) ListTutors(c *fiber.Ctx) error {
	page, limit := parsePage(c)

	maxPrice, err := parseNonNegativeFloat(c.Query("maxPrice"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "maxPrice must be a valid non-negative number"})
	}

	tutors, total, err := h.service.ListTutors(c.UserContext(), services.TutorSearch{
		Subject:  strings.TrimSpace(c.Query("subject")),
		MaxPrice: maxPrice,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return mapTutorError(c, err)
	}

	return c.JSON(fiber.Map{
		"tutors":     tutors,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *TutorHandler) GetTutor(c *fiber.Ctx) error {
	tutorID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || tutorID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}

	tutor, err := h.service.GetTutor(c.UserContext(), tutorID)
	if err != nil {
		return mapTutorError(c, err)
	}

	return c.JSON(fiber.Map{"tutor": tutor})
}

func (h *TutorHandler) GetOwnProfile(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return invalidToken(c)
	}

	profile, err := h.service.GetOwnProfile(c.UserContext(), userID)
	if err != nil {
		return mapTutorError(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *TutorHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return invalidToken(c)
	}

	var req updateTutorProfileRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	profile, err := h.service.UpdateProfile(c.UserContext(), userID, services.UpdateTutorProfileInput{
		Bio:        req.Bio,
		Subjects:   req.Subjects,
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		return mapTutorError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "profile": profile})
}

func mapTutorError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTutorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tutor not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process tutor request"})
	}
}

func parseNonNegativeFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, errInvalidNumber
	}
	return value, nil
}
