package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/services"
	roomws "github.com/ake144/e-tutor/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type roomApplicationService interface {
	AuthorizeJoin(ctx context.Context, actorID int64, role string, bookingID uuid.UUID) (*models.Booking, error)
	SendMessage(ctx context.Context, actorID int64, role string, bookingID uuid.UUID, content string) (*models.RoomMessage, error)
	ListMessages(ctx context.Context, actorID int64, role string, bookingID uuid.UUID, page int, limit int) ([]models.RoomMessage, int, error)
}

type RoomHandler struct {
	service roomApplicationService
	hub     *roomws.Hub
}

func NewRoomHandler(service roomApplicationService, hub *roomws.Hub) *RoomHandler {
	return &RoomHandler{
		service: service,
		hub:     hub,
	}
}

func (h *RoomHandler) GetMessages(c *fiber.Ctx) error {
	userID, role, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	bookingID, err := parseUUIDParam(c, "bookingId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	page, limit := parsePage(c)
	messages, total, err := h.service.ListMessages(c.UserContext(), userID, role, bookingID, page, limit)
	if err != nil {
		return mapRoomError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

// WebSocketAuth runs after AuthRequired and admits only participants of a confirmed booking.
func (h *RoomHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	userID, role, err := parseActor(c)
	if err != nil {
		return invalidToken(c)
	}

	bookingID, err := parseUUIDParam(c, "bookingId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	if _, err := h.service.AuthorizeJoin(c.UserContext(), userID, role, bookingID); err != nil {
		return mapRoomError(c, err)
	}

	c.Locals("actor_id", userID)
	c.Locals("booking_id", bookingID)
	return c.Next()
}

func (h *RoomHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("actor_id").(int64)
	role, _ := conn.Locals("role").(string)
	bookingID, _ := conn.Locals("booking_id").(uuid.UUID)
	client := roomws.NewClient(h.hub, conn, bookingID, userID, role)

	slog.Info("room joined", "booking_id", bookingID, "user_id", userID, "role", role)
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service)
}

func mapRoomError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrBookingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Booking is not confirmed"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process room request"})
	}
}
