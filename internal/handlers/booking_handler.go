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
	"github.com/google/uuid"
)

type bookingApplicationService interface {
	CreateBooking(ctx context.Context, studentID int64, input services.CreateBookingInput) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, proof services.PaymentProof) (*models.BookingDetail, error)
	GetBooking(ctx context.Context, actorID int64, role string, bookingID uuid.UUID) (*models.BookingDetail, error)
	ListBookings(ctx context.Context, actorID int64, role string, filter services.BookingFilter) ([]models.BookingDetail, error)
	CancelBooking(ctx context.Context, actorID int64, role string, bookingID uuid.UUID) (*models.Booking, error)
	UpdateCameraMode(ctx context.Context, actorID int64, role string, bookingID uuid.UUID, mode string) (*models.Booking, error)
	CheckAvailability(ctx context.Context, tutorID int64, date string, timeLabel string) (bool, error)
}

type BookingHandler struct {
	service  bookingApplicationService
	validate *validator.Validate
}

func NewBookingHandler(service bookingApplicationService) *BookingHandler {
	return &BookingHandler{
		service:  service,
		validate: validator.New(),
	}
}

type createBookingRequest struct {
	TutorID int64  `json:"tutorId" validate:"required,gt=0"`
	Date    string `json:"date" validate:"required"`
	Time    string `json:"time" validate:"required"`
}

type confirmBookingRequest struct {
	Reference string  `json:"reference" validate:"required"`
	Provider  string  `json:"provider" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
}

type updateCameraRequest struct {
	CameraMode string `json:"cameraMode" validate:"required,max=64"`
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	userID, _, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	var req createBookingRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	booking, err := h.service.CreateBooking(c.UserContext(), userID, services.CreateBookingInput{
		TutorID: req.TutorID,
		Date:    strings.TrimSpace(req.Date),
		Time:    strings.TrimSpace(req.Time),
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "booking": booking})
}

func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	userID, role, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	switch status {
	case "", models.BookingStatusPending, models.BookingStatusConfirmed, models.BookingStatusCancelled:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	}

	bookings, err := h.service.ListBookings(c.UserContext(), userID, role, services.BookingFilter{
		Status:    status,
		Timeframe: timeframe,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"bookings": bookings})
}

func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	userID, role, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	bookingID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.GetBooking(c.UserContext(), userID, role, bookingID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) CancelBooking(c *fiber.Ctx) error {
	userID, role, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	bookingID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.CancelBooking(c.UserContext(), userID, role, bookingID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "booking": booking})
}

func (h *BookingHandler) UpdateCameraMode(c *fiber.Ctx) error {
	userID, role, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	bookingID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req updateCameraRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	booking, err := h.service.UpdateCameraMode(c.UserContext(), userID, role, bookingID, req.CameraMode)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "booking": booking})
}

func (h *BookingHandler) CheckAvailability(c *fiber.Ctx) error {
	tutorID, err := strconv.ParseInt(c.Query("tutorId"), 10, 64)
	if err != nil || tutorID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}

	available, err := h.service.CheckAvailability(c.UserContext(), tutorID, c.Query("date"), c.Query("time"))
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"available": available})
}

// ConfirmBooking is called by the payment collaborator after it verified the charge.
func (h *BookingHandler) ConfirmBooking(c *fiber.Ctx) error {
	bookingID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req confirmBookingRequest
	if ok, err := bindJSON(c, h.validate, &req); !ok {
		return err
	}

	booking, err := h.service.ConfirmBooking(c.UserContext(), bookingID, services.PaymentProof{
		Reference: req.Reference,
		Provider:  req.Provider,
		Amount:    req.Amount,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "booking": booking})
}

func mapBookingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrTutorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tutor not found"})
	case errors.Is(err, services.ErrBookingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	case errors.Is(err, services.ErrRefundRequired):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Slot is not available", "refundRequired": true})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Slot is not available"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Request cancelled"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}
