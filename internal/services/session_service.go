package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ake144/e-tutor/internal/events"
	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/repository"
	"github.com/ake144/e-tutor/internal/schedule"
	"github.com/ake144/e-tutor/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SessionStore interface {
	TutorRate(ctx context.Context, tutorID int64) (float64, error)
	TutorIDForUser(ctx context.Context, userID int64) (int64, error)
	AppendSessions(ctx context.Context, input repository.AppendSessionsInput) ([]models.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
}

type RecurringRequest struct {
	Tutor            string
	Student          string
	StartDate        string
	Time             string
	Months           int
	FrequencyPerWeek int
}

// GenerateRecurringSessions expands a contract into dated sessions, earliest
// first. It does no conflict checking.
func GenerateRecurringSessions(req RecurringRequest) ([]models.Session, error) {
	if strings.TrimSpace(req.Tutor) == "" || strings.TrimSpace(req.Student) == "" {
		return nil, invalidInput("tutor and student are required")
	}
	start, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	if req.Months > schedule.MaxMonths {
		return nil, invalidInput("months must be at most %d", schedule.MaxMonths)
	}

	dates := schedule.RecurringDates(start, req.Months, req.FrequencyPerWeek)
	sessions := make([]models.Session, 0, len(dates))
	for _, date := range dates {
		sessions = append(sessions, models.Session{
			ID:      uuid.New(),
			Tutor:   req.Tutor,
			Student: req.Student,
			Date:    schedule.FormatDate(date),
			Time:    req.Time,
		})
	}
	return sessions, nil
}

type SessionService struct {
	store     SessionStore
	publisher events.Publisher
	location  *time.Location
}

func NewSessionService(store SessionStore, publisher events.Publisher, location *time.Location) *SessionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if location == nil {
		location = time.UTC
	}
	return &SessionService{
		store:     store,
		publisher: publisher,
		location:  location,
	}
}

type ScheduleRecurringInput struct {
	TutorID          int64
	StudentID        int64
	StartDate        string
	Time             string
	Months           int
	FrequencyPerWeek int
}

func (s *SessionService) ScheduleRecurring(
	ctx context.Context,
	actorID int64,
	role string,
	input ScheduleRecurringInput,
) ([]models.Session, error) {
	switch role {
	case models.RoleStudent:
		input.StudentID = actorID
	case models.RoleTutor:
		ownTutorID, err := s.store.TutorIDForUser(ctx, actorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrForbidden
			}
			return nil, err
		}
		if input.TutorID == 0 {
			input.TutorID = ownTutorID
		}
		if input.TutorID != ownTutorID {
			return nil, ErrForbidden
		}
		if input.StudentID <= 0 {
			return nil, invalidInput("studentId is required")
		}
	default:
		return nil, ErrForbidden
	}
	if input.TutorID <= 0 {
		return nil, invalidInput("tutorId is required")
	}
	if input.Months > schedule.MaxMonths {
		return nil, invalidInput("months must be at most %d", schedule.MaxMonths)
	}
	if _, err := schedule.NormalizeTime(input.Time); err != nil {
		return nil, invalidInput("%v", err)
	}

	if _, err := s.store.TutorRate(ctx, input.TutorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}

	tutorKey := repository.ParticipantKey(input.TutorID)
	studentKey := repository.ParticipantKey(input.StudentID)
	sessions, err := GenerateRecurringSessions(RecurringRequest{
		Tutor:            tutorKey,
		Student:          studentKey,
		StartDate:        input.StartDate,
		Time:             input.Time,
		Months:           input.Months,
		FrequencyPerWeek: input.FrequencyPerWeek,
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	slots := make([]schedule.Interval, 0, len(sessions))
	for _, session := range sessions {
		start, err := schedule.SlotStart(session.Date, session.Time, s.location)
		if err != nil {
			return nil, invalidInput("%v", err)
		}
		slots = append(slots, schedule.NewSlot(start))
	}

	created, err := s.store.AppendSessions(ctx, repository.AppendSessionsInput{
		TutorID:  input.TutorID,
		Sessions: sessions,
		Slots:    slots,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			telemetry.BookingConflicts.WithLabelValues("recurring").Inc()
			return nil, ErrConflict
		}
		return nil, err
	}

	telemetry.SessionsScheduled.Add(float64(len(created)))
	slog.InfoContext(ctx, "recurring sessions scheduled",
		"tutor", tutorKey, "student", studentKey, "count", len(created), "first_date", created[0].Date)
	if err := s.publisher.PublishSessionsScheduled(tutorKey, studentKey, created); err != nil {
		slog.ErrorContext(ctx, "publish sessions scheduled", "tutor", tutorKey, "error", err)
	}

	return created, nil
}

func (s *SessionService) ListSessions(ctx context.Context, actorID int64, role string) ([]models.Session, error) {
	filter, err := s.participantFilter(ctx, actorID, role)
	if err != nil {
		return nil, err
	}
	return s.store.ListSessions(ctx, filter)
}

func (s *SessionService) GetSession(ctx context.Context, actorID int64, role string, sessionID uuid.UUID) (*models.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	filter, err := s.participantFilter(ctx, actorID, role)
	if err != nil {
		return nil, err
	}
	if session.Student != filter.Student && session.Tutor != filter.Tutor {
		return nil, ErrForbidden
	}
	return session, nil
}

func (s *SessionService) participantFilter(ctx context.Context, actorID int64, role string) (repository.SessionListFilter, error) {
	switch role {
	case models.RoleStudent:
		return repository.SessionListFilter{Student: repository.ParticipantKey(actorID)}, nil
	case models.RoleTutor:
		tutorID, err := s.store.TutorIDForUser(ctx, actorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.SessionListFilter{}, ErrTutorNotFound
			}
			return repository.SessionListFilter{}, err
		}
		return repository.SessionListFilter{Tutor: repository.ParticipantKey(tutorID)}, nil
	default:
		return repository.SessionListFilter{}, ErrForbidden
	}
}
