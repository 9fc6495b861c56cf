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
)

type stubTutorService struct {
	listResult  []models.TutorWithScore
	listTotal   int
	detail      *models.TutorDetail
	detailErr   error
	updated     *models.TutorProfile
	updateErr   error
	lastSearch  services.TutorSearch
	lastUserID  int64
	lastUpdate  services.UpdateTutorProfileInput
	lastTutorID int64
}

func (s *stubTutorService) ListTutors(_ context.Context, search services.TutorSearch) ([]models.TutorWithScore, int, error) {
	s.lastSearch = search
	return s.listResult, s.listTotal, nil
}

func (s *stubTutorService) GetTutor(_ context.Context, tutorID int64) (*models.TutorDetail, error) {
	s.lastTutorID = tutorID
	return s.detail, s.detailErr
}

func (s *stubTutorService) GetOwnProfile(_ context.Context, userID int64) (*models.TutorProfile, error) {
	s.lastUserID = userID
	return s.updated, nil
}

func (s *stubTutorService) UpdateProfile(_ context.Context, userID int64, input services.UpdateTutorProfileInput) (*models.TutorProfile, error) {
	s.lastUserID = userID
	s.lastUpdate = input
	return s.updated, s.updateErr
}

func newTutorTestApp(handler *TutorHandler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", models.RoleTutor)
		c.Locals("user_id", "70")
		return c.Next()
	})
	app.Get("/api/tutors", handler.ListTutors)
	app.Get("/api/tutors/:id", handler.GetTutor)
	app.Put("/api/v1/tutors/profile", handler.UpdateProfile)
	return app
}

func TestListTutorsClampsPaginationAndForwardsFilters(t *testing.T) {
	service := &stubTutorService{
		listResult: []models.TutorWithScore{{TutorProfile: models.TutorProfile{ID: 7}, MatchScore: 55}},
		listTotal:  120,
	}
	app := newTutorTestApp(NewTutorHandler(service))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/tutors?subject=Physics&maxPrice=30&page=2&limit=500", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSearch.Subject != "Physics" || service.lastSearch.MaxPrice != 30 {
		t.Fatalf("unexpected search: %+v", service.lastSearch)
	}
	if service.lastSearch.Page != 2 || service.lastSearch.Limit != maxPageLimit {
		t.Fatalf("expected page 2 limit %d, got %+v", maxPageLimit, service.lastSearch)
	}

	body := decodeBody(t, resp)
	pagination := body["pagination"].(map[string]any)
	if pagination["totalPages"] != 3.0 {
		t.Fatalf("expected 3 total pages, got %v", pagination["totalPages"])
	}
}

func TestListTutorsRejectsNegativePrice(t *testing.T) {
	app := newTutorTestApp(NewTutorHandler(&stubTutorService{}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/tutors?maxPrice=-5", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetTutorNotFound(t *testing.T) {
	service := &stubTutorService{detailErr: services.ErrTutorNotFound}
	app := newTutorTestApp(NewTutorHandler(service))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/tutors/99", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] != "Tutor not found" {
		t.Fatalf("expected Tutor not found, got %v", body["error"])
	}
}

func TestUpdateTutorProfileValidatesRate(t *testing.T) {
	service := &stubTutorService{updated: &models.TutorProfile{ID: 7, HourlyRate: 40}}
	app := newTutorTestApp(NewTutorHandler(service))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/tutors/profile", strings.NewReader(`{"hourlyRate":-1}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative rate, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/tutors/profile", strings.NewReader(`{"hourlyRate":40,"subjects":["Math"]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastUserID != 70 || service.lastUpdate.HourlyRate == nil || *service.lastUpdate.HourlyRate != 40 {
		t.Fatalf("unexpected update call: user=%d input=%+v", service.lastUserID, service.lastUpdate)
	}
	if service.lastUpdate.Subjects == nil || (*service.lastUpdate.Subjects)[0] != "Math" {
		t.Fatalf("expected subjects forwarded, got %+v", service.lastUpdate.Subjects)
	}
}
