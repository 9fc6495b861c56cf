package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type stubBookingService struct {
	createResult    *models.Booking
	createErr       error
	confirmResult   *models.BookingDetail
	confirmErr      error
	getResult       *models.BookingDetail
	getErr          error
	listResult      []models.BookingDetail
	listErr         error
	cancelResult    *models.Booking
	cancelErr       error
	cameraResult    *models.Booking
	cameraErr       error
	available       bool
	availabilityErr error
	lastActorID     int64
	lastRole        string
	lastBookingID   uuid.UUID
	lastCreateInput services.CreateBookingInput
	lastProof       services.PaymentProof
	lastFilter      services.BookingFilter
	lastCameraMode  string
}

func (s *stubBookingService) CreateBooking(_ context.Context, studentID int64, input services.CreateBookingInput) (*models.Booking, error) {
	s.lastActorID = studentID
	s.lastCreateInput = input
	return s.createResult, s.createErr
}

func (s *stubBookingService) ConfirmBooking(_ context.Context, bookingID uuid.UUID, proof services.PaymentProof) (*models.BookingDetail, error) {
	s.lastBookingID = bookingID
	s.lastProof = proof
	return s.confirmResult, s.confirmErr
}

func (s *stubBookingService) GetBooking(_ context.Context, actorID int64, role string, bookingID uuid.UUID) (*models.BookingDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = bookingID
	return s.getResult, s.getErr
}

func (s *stubBookingService) ListBookings(_ context.Context, actorID int64, role string, filter services.BookingFilter) ([]models.BookingDetail, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastFilter = filter
	return s.listResult, s.listErr
}

func (s *stubBookingService) CancelBooking(_ context.Context, actorID int64, role string, bookingID uuid.UUID) (*models.Booking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = bookingID
	return s.cancelResult, s.cancelErr
}

func (s *stubBookingService) UpdateCameraMode(_ context.Context, actorID int64, role string, bookingID uuid.UUID, mode string) (*models.Booking, error) {
	s.lastActorID = actorID
	s.lastBookingID = bookingID
	s.lastCameraMode = mode
	return s.cameraResult, s.cameraErr
}

func (s *stubBookingService) CheckAvailability(context.Context, int64, string, string) (bool, error) {
	return s.available, s.availabilityErr
}

func newBookingTestApp(handler *BookingHandler, role string, userID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/bookings", handler.CreateBooking)
	app.Get("/api/v1/bookings", handler.ListBookings)
	app.Get("/api/v1/bookings/availability", handler.CheckAvailability)
	app.Get("/api/v1/bookings/:id", handler.GetBooking)
	app.Patch("/api/v1/bookings/:id/camera", handler.UpdateCameraMode)
	app.Post("/api/internal/bookings/:id/confirm", handler.ConfirmBooking)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestCreateBookingReturnsCreatedBooking(t *testing.T) {
	bookingID := uuid.New()
	service := &stubBookingService{
		createResult: &models.Booking{
			ID:         bookingID,
			StudentID:  42,
			TutorID:    7,
			StartTime:  time.Date(2026, 2, 2, 14, 0, 0, 0, time.UTC),
			EndTime:    time.Date(2026, 2, 2, 15, 0, 0, 0, time.UTC),
			TotalPrice: 25,
			Status:     models.BookingStatusPending,
		},
	}
	app := newBookingTestApp(NewBookingHandler(service), models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"tutorId": 7,
		"date": "2026-02-02",
		"time": " 2:00 PM "
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 {
		t.Fatalf("expected actor id 42, got %d", service.lastActorID)
	}
	if service.lastCreateInput.TutorID != 7 || service.lastCreateInput.Time != "2:00 PM" {
		t.Fatalf("unexpected create input: %+v", service.lastCreateInput)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("expected success true, got %v", body["success"])
	}
	booking, ok := body["booking"].(map[string]any)
	if !ok {
		t.Fatalf("expected booking object, got %T", body["booking"])
	}
	if booking["id"] != bookingID.String() || booking["status"] != models.BookingStatusPending {
		t.Fatalf("unexpected booking payload: %v", booking)
	}
	if booking["totalPrice"] != 25.0 {
		t.Fatalf("expected totalPrice 25, got %v", booking["totalPrice"])
	}
}

func TestCreateBookingMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{services.ErrTutorNotFound, http.StatusNotFound, "Tutor not found"},
		{services.ErrConflict, http.StatusConflict, "Slot is not available"},
		{fmt.Errorf("%w: bad time", services.ErrInvalidInput), http.StatusBadRequest, "invalid input: bad time"},
	}

	for _, tc := range cases {
		service := &stubBookingService{createErr: tc.err}
		app := newBookingTestApp(NewBookingHandler(service), models.RoleStudent, "42")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"tutorId":7,"date":"2026-02-02","time":"10:30"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		body := decodeBody(t, resp)
		resp.Body.Close()

		if resp.StatusCode != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, resp.StatusCode)
		}
		if body["error"] != tc.message {
			t.Fatalf("%v: expected error %q, got %v", tc.err, tc.message, body["error"])
		}
	}
}

func TestCreateBookingValidatesBody(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingTestApp(NewBookingHandler(service), models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"date":"2026-02-02"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastActorID != 0 {
		t.Fatal("expected service not to be called")
	}
}

func TestConfirmBookingReportsRefund(t *testing.T) {
	service := &stubBookingService{confirmErr: services.ErrRefundRequired}
	app := newBookingTestApp(NewBookingHandler(service), "", "")
	bookingID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/internal/bookings/"+bookingID.String()+"/confirm",
		strings.NewReader(`{"reference":"tx-1","provider":"chapa","amount":25}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if service.lastBookingID != bookingID || service.lastProof.Reference != "tx-1" {
		t.Fatalf("unexpected confirm call: %s %+v", service.lastBookingID, service.lastProof)
	}
	body := decodeBody(t, resp)
	if body["refundRequired"] != true {
		t.Fatalf("expected refundRequired flag, got %v", body)
	}
}

func TestBookingRoutesRejectBadIDsAndFilters(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingTestApp(NewBookingHandler(service), models.RoleTutor, "70")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/not-a-uuid", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bookings?timeframe=soon", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad timeframe, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bookings?status=confirmed&timeframe=upcoming", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRole != models.RoleTutor || service.lastFilter.Status != models.BookingStatusConfirmed || service.lastFilter.Timeframe != "upcoming" {
		t.Fatalf("unexpected list call: role=%q filter=%+v", service.lastRole, service.lastFilter)
	}
}

func TestUpdateCameraModeForwardsMode(t *testing.T) {
	bookingID := uuid.New()
	service := &stubBookingService{cameraResult: &models.Booking{ID: bookingID, StudentCameraMode: "BOARD"}}
	app := newBookingTestApp(NewBookingHandler(service), models.RoleStudent, "42")

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/bookings/"+bookingID.String()+"/camera", strings.NewReader(`{"cameraMode":"BOARD"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastCameraMode != "BOARD" || service.lastBookingID != bookingID {
		t.Fatalf("unexpected camera call: %q %s", service.lastCameraMode, service.lastBookingID)
	}
}

func TestCheckAvailability(t *testing.T) {
	service := &stubBookingService{available: true}
	app := newBookingTestApp(NewBookingHandler(service), models.RoleStudent, "42")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/bookings/availability?tutorId=7&date=2026-02-02&time=10:00", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["available"] != true {
		t.Fatalf("expected available true, got %v", body)
	}
}
