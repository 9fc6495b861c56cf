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

type stubSessionService struct {
	scheduleResult []models.Session
	scheduleErr    error
	listResult     []models.Session
	getResult      *models.Session
	getErr         error
	lastActorID    int64
	lastRole       string
	lastInput      services.ScheduleRecurringInput
	lastSessionID  uuid.UUID
}

func (s *stubSessionService) ScheduleRecurring(_ context.Context, actorID int64, role string, input services.ScheduleRecurringInput) ([]models.Session, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastInput = input
	return s.scheduleResult, s.scheduleErr
}

func (s *stubSessionService) ListSessions(_ context.Context, actorID int64, role string) ([]models.Session, error) {
	s.lastActorID = actorID
	s.lastRole = role
	return s.listResult, nil
}

func (s *stubSessionService) GetSession(_ context.Context, actorID int64, role string, sessionID uuid.UUID) (*models.Session, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSessionID = sessionID
	return s.getResult, s.getErr
}

func newSessionTestApp(handler *SessionHandler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", models.RoleStudent)
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Post("/api/v1/bookings/recurring", handler.ScheduleRecurring)
	app.Get("/api/v1/sessions/:id", handler.GetSession)
	return app
}

func TestScheduleRecurringReturnsSessions(t *testing.T) {
	first := models.Session{ID: uuid.New(), Tutor: "7", Student: "42", Date: "2026-02-02", Time: "10:00 AM"}
	service := &stubSessionService{scheduleResult: []models.Session{first}}
	app := newSessionTestApp(NewSessionHandler(service))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/recurring", strings.NewReader(`{
		"tutorId": 7,
		"startDate": "2026-02-02",
		"time": "10:00 AM",
		"months": 1,
		"frequencyPerWeek": 1
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
	if service.lastActorID != 42 || service.lastRole != models.RoleStudent {
		t.Fatalf("unexpected actor: %d %q", service.lastActorID, service.lastRole)
	}
	if service.lastInput.TutorID != 7 || service.lastInput.Months != 1 || service.lastInput.FrequencyPerWeek != 1 {
		t.Fatalf("unexpected input: %+v", service.lastInput)
	}

	body := decodeBody(t, resp)
	sessions, ok := body["sessions"].([]any)
	if !ok || len(sessions) != 1 {
		t.Fatalf("expected one session, got %v", body["sessions"])
	}
	if sessions[0].(map[string]any)["date"] != "2026-02-02" {
		t.Fatalf("unexpected first session: %v", sessions[0])
	}
}

func TestScheduleRecurringConflict(t *testing.T) {
	service := &stubSessionService{scheduleErr: services.ErrConflict}
	app := newSessionTestApp(NewSessionHandler(service))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/recurring", strings.NewReader(`{"tutorId":7,"startDate":"2026-02-02","time":"10:00","months":1,"frequencyPerWeek":2}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	service := &stubSessionService{getErr: services.ErrSessionNotFound}
	app := newSessionTestApp(NewSessionHandler(service))
	sessionID := uuid.New()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID.String(), nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if service.lastSessionID != sessionID {
		t.Fatalf("expected session id %s, got %s", sessionID, service.lastSessionID)
	}
}

func TestScheduleRecurringRejectsLongContracts(t *testing.T) {
	service := &stubSessionService{}
	app := newSessionTestApp(NewSessionHandler(service))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/recurring", strings.NewReader(`{"tutorId":7,"startDate":"2026-02-02","time":"10:00","months":1000000,"frequencyPerWeek":5}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastInput.Months != 0 {
		t.Fatalf("expected service not to be called, got %+v", service.lastInput)
	}
}
