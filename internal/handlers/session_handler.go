package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type sessionApplicationService interface {
	ScheduleRecurring(ctx context.Context, actorID int64, role string, input services.ScheduleRecurringInput) ([]models.Session, error)
	ListSessions(ctx context.Context, actorID int64, role string) ([]models.Session, error)
	GetSession(ctx context.Context, actorID int64, role string, sessionID uuid.UUID) (*models.Session, error)
}

type SessionHandler struct {
	service  sessionApplicationService
	validate *validator.Validate
}

func NewSessionHandler(service sessionApplicationService) *SessionHandler {
	return &SessionHandler{
		service:  service,
		validate: validator.New(),
	}
}

type recurringBookingRequest struct {
	TutorID          int64  `json:"tutorId" validate:"gte=0"`
	StudentID        int64  `json:"studentId" validate:"gte=0"`
	StartDate        string `json:"startDate" validate:"required"`
	Time             string `json:"time" validate:"required"`
	Months           int    `json:"months" validate:"lte=24"`
	FrequencyPerWeek int    `json:"frequencyPerWeek"`
}

// ScheduleRecurring stores a whole recurring contract or nothing.
func (h *SessionHandler) ScheduleRecurring(c *fiber.Ctx) error {
	userID, role, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	var req recurringBookingRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	sessions, err := h.service.ScheduleRecurring(c.UserContext(), userID, role, services.ScheduleRecurringInput{
		TutorID:          req.TutorID,
		StudentID:        req.StudentID,
		StartDate:        strings.TrimSpace(req.StartDate),
		Time:             strings.TrimSpace(req.Time),
		Months:           req.Months,
		FrequencyPerWeek: req.FrequencyPerWeek,
	})
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "sessions": sessions})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	userID, role, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	sessions, err := h.service.ListSessions(c.UserContext(), userID, role)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	userID, role, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	sessionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.GetSession(c.UserContext(), userID, role, sessionID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func mapSessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	default:
		return mapBookingError(c, err)
	}
}
