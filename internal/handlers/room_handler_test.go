package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type stubRoomService struct {
	joinErr     error
	messages    []models.RoomMessage
	total       int
	listErr     error
	lastPage    int
	lastLimit   int
	lastBooking uuid.UUID
}

func (s *stubRoomService) AuthorizeJoin(_ context.Context, _ int64, _ string, bookingID uuid.UUID) (*models.Booking, error) {
	s.lastBooking = bookingID
	return &models.Booking{ID: bookingID}, s.joinErr
}

func (s *stubRoomService) SendMessage(_ context.Context, actorID int64, _ string, bookingID uuid.UUID, content string) (*models.RoomMessage, error) {
	return &models.RoomMessage{BookingID: bookingID, SenderID: actorID, Content: content}, nil
}

func (s *stubRoomService) ListMessages(_ context.Context, _ int64, _ string, bookingID uuid.UUID, page int, limit int) ([]models.RoomMessage, int, error) {
	s.lastBooking = bookingID
	s.lastPage = page
	s.lastLimit = limit
	return s.messages, s.total, s.listErr
}

func newRoomTestApp(handler *RoomHandler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", models.RoleStudent)
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Get("/api/v1/rooms/:bookingId/messages", handler.GetMessages)
	app.Get("/api/v1/ws/rooms/:bookingId", handler.WebSocketAuth, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusSwitchingProtocols)
	})
	return app
}

func TestGetRoomMessagesPaginates(t *testing.T) {
	bookingID := uuid.New()
	service := &stubRoomService{
		messages: []models.RoomMessage{{ID: 1, BookingID: bookingID, SenderID: 42, Content: "hello"}},
		total:    21,
	}
	app := newRoomTestApp(NewRoomHandler(service, nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/rooms/"+bookingID.String()+"/messages?page=3&limit=10", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastBooking != bookingID || service.lastPage != 3 || service.lastLimit != 10 {
		t.Fatalf("unexpected list call: %s page=%d limit=%d", service.lastBooking, service.lastPage, service.lastLimit)
	}
	body := decodeBody(t, resp)
	if body["pagination"].(map[string]any)["totalPages"] != 3.0 {
		t.Fatalf("expected 3 total pages, got %v", body["pagination"])
	}
}

func TestGetRoomMessagesErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"stranger", services.ErrForbidden, http.StatusForbidden},
		{"unknown booking", services.ErrBookingNotFound, http.StatusNotFound},
		{"unconfirmed booking", services.ErrInvalidStateTransition, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newRoomTestApp(NewRoomHandler(&stubRoomService{listErr: tt.err}, nil))
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/rooms/"+uuid.NewString()+"/messages", nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestWebSocketAuthRequiresUpgrade(t *testing.T) {
	app := newRoomTestApp(NewRoomHandler(&stubRoomService{}, nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ws/rooms/"+uuid.NewString(), nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}

func TestWebSocketAuthRejectsUnconfirmedBooking(t *testing.T) {
	service := &stubRoomService{joinErr: services.ErrInvalidStateTransition}
	app := newRoomTestApp(NewRoomHandler(service, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws/rooms/"+uuid.NewString(), nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestRequestAvatarUploadWithoutStorage(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Post("/api/v1/users/avatar", NewProfileHandler(services.NewProfileService(nil, nil)).RequestAvatarUpload)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/avatar", strings.NewReader(`{"contentType":"image/png"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
