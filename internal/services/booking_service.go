package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
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

const maxCameraModeLength = 64

type BookingStore interface {
	TutorRate(ctx context.Context, tutorID int64) (float64, error)
	TutorIDForUser(ctx context.Context, userID int64) (int64, error)
	CreatePendingBooking(ctx context.Context, input repository.CreateBookingInput) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, input repository.ConfirmBookingInput) (*repository.ConfirmOutcome, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, currentStatus string) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	PaymentForBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error)
	PaymentsForBookings(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID]models.Payment, error)
	ListBookings(ctx context.Context, filter repository.BookingListFilter) ([]models.Booking, error)
	UpdateCameraMode(ctx context.Context, bookingID uuid.UUID, mode string) (*models.Booking, error)
	HasConfirmedOverlap(ctx context.Context, tutorID int64, start time.Time, end time.Time) (bool, error)
}

type BookingService struct {
	store          BookingStore
	publisher      events.Publisher
	location       *time.Location
	meetingBaseURL string
}

func NewBookingService(
	store BookingStore,
	publisher events.Publisher,
	location *time.Location,
	meetingBaseURL string,
) *BookingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if location == nil {
		location = time.UTC
	}
	return &BookingService{
		store:          store,
		publisher:      publisher,
		location:       location,
		meetingBaseURL: strings.TrimRight(meetingBaseURL, "/"),
	}
}

type CreateBookingInput struct {
	TutorID int64
	Date    string
	Time    string
}

type PaymentProof struct {
	Reference string
	Provider  string
	Amount    float64
}

type BookingFilter struct {
	Status    string
	Timeframe string
}

// CreateBooking reserves a one-hour slot as PENDING. Only CONFIRMED bookings
// block the slot, so several students may hold pending requests at once.
func (s *BookingService) CreateBooking(ctx context.Context, studentID int64, input CreateBookingInput) (*models.Booking, error) {
	if studentID <= 0 {
		return nil, ErrForbidden
	}
	if input.TutorID <= 0 {
		return nil, invalidInput("tutorId is required")
	}
	if strings.TrimSpace(input.Date) == "" || strings.TrimSpace(input.Time) == "" {
		return nil, invalidInput("date and time are required")
	}

	rate, err := s.store.TutorRate(ctx, input.TutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}

	ownTutorID, err := s.store.TutorIDForUser(ctx, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil && ownTutorID == input.TutorID {
		return nil, invalidInput("tutors cannot book themselves")
	}

	start, err := schedule.SlotStart(input.Date, input.Time, s.location)
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	slot := schedule.NewSlot(start)

	booking, err := s.store.CreatePendingBooking(ctx, repository.CreateBookingInput{
		ID:         uuid.New(),
		StudentID:  studentID,
		TutorID:    input.TutorID,
		StartTime:  slot.Start,
		EndTime:    slot.End,
		TotalPrice: rate,
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			telemetry.BookingConflicts.WithLabelValues("create").Inc()
			return nil, ErrConflict
		}
		return nil, err
	}

	telemetry.BookingsCreated.Inc()
	slog.InfoContext(ctx, "booking created",
		"booking_id", booking.ID, "tutor_id", booking.TutorID, "start", booking.StartTime)
	s.publish(ctx, events.SubjectBookingCreated, booking)

	return booking, nil
}

// ConfirmBooking is called once payment has been verified. The slot is
// re-checked under the tutor lock; losing the race cancels the booking and
// reports ErrRefundRequired.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, proof PaymentProof) (*models.BookingDetail, error) {
	proof.Reference = strings.TrimSpace(proof.Reference)
	proof.Provider = strings.TrimSpace(proof.Provider)
	if proof.Reference == "" || proof.Provider == "" {
		return nil, invalidInput("payment reference and provider are required")
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if !amountsMatch(proof.Amount, booking.TotalPrice) {
		return nil, invalidInput("payment amount %.2f does not match booking price %.2f", proof.Amount, booking.TotalPrice)
	}

	outcome, err := s.store.ConfirmBooking(ctx, repository.ConfirmBookingInput{
		BookingID:  bookingID,
		MeetingURL: s.meetingURL(bookingID),
		Reference:  proof.Reference,
		Provider:   proof.Provider,
		Amount:     proof.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrBookingNotFound
		case errors.Is(err, repository.ErrStatusChanged):
			return nil, ErrInvalidStateTransition
		case errors.Is(err, repository.ErrDuplicateEntry):
			return nil, invalidInput("payment reference already used")
		case errors.Is(err, repository.ErrSlotTaken):
			telemetry.BookingConflicts.WithLabelValues("confirm").Inc()
			return nil, ErrConflict
		}
		return nil, err
	}

	if outcome.LostSlot {
		telemetry.BookingConflicts.WithLabelValues("confirm").Inc()
		slog.WarnContext(ctx, "paid booking lost its slot",
			"booking_id", bookingID, "payment_reference", proof.Reference)
		s.publish(ctx, events.SubjectBookingRefundRequired, outcome.Booking)
		return nil, ErrRefundRequired
	}

	if !outcome.AlreadyConfirmed {
		telemetry.BookingsConfirmed.Inc()
		slog.InfoContext(ctx, "booking confirmed", "booking_id", bookingID)
		s.publish(ctx, events.SubjectBookingConfirmed, outcome.Booking)
	}

	return &models.BookingDetail{Booking: *outcome.Booking, Payment: outcome.Payment}, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actorID int64, role string, bookingID uuid.UUID) (*models.BookingDetail, error) {
	booking, err := s.authorizedBooking(ctx, actorID, role, bookingID)
	if err != nil {
		return nil, err
	}

	detail := &models.BookingDetail{Booking: *booking}
	payment, err := s.store.PaymentForBooking(ctx, bookingID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Payment = payment
	}
	return detail, nil
}

func (s *BookingService) ListBookings(ctx context.Context, actorID int64, role string, filter BookingFilter) ([]models.BookingDetail, error) {
	listFilter := repository.BookingListFilter{
		Status:    filter.Status,
		Timeframe: filter.Timeframe,
	}
	switch role {
	case models.RoleStudent:
		listFilter.StudentID = actorID
	case models.RoleTutor:
		tutorID, err := s.store.TutorIDForUser(ctx, actorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTutorNotFound
			}
			return nil, err
		}
		listFilter.TutorID = tutorID
	default:
		return nil, ErrForbidden
	}

	bookings, err := s.store.ListBookings(ctx, listFilter)
	if err != nil {
		return nil, err
	}

	bookingIDs := make([]uuid.UUID, 0, len(bookings))
	for _, booking := range bookings {
		bookingIDs = append(bookingIDs, booking.ID)
	}
	payments, err := s.store.PaymentsForBookings(ctx, bookingIDs)
	if err != nil {
		return nil, err
	}

	details := make([]models.BookingDetail, 0, len(bookings))
	for _, booking := range bookings {
		detail := models.BookingDetail{Booking: booking}
		if payment, ok := payments[booking.ID]; ok {
			paymentCopy := payment
			detail.Payment = &paymentCopy
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, actorID int64, role string, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.authorizedBooking(ctx, actorID, role, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, ErrInvalidStateTransition
	}

	cancelled, err := s.store.CancelBooking(ctx, bookingID, booking.Status)
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	slog.InfoContext(ctx, "booking cancelled", "booking_id", bookingID, "previous_status", booking.Status)
	s.publish(ctx, events.SubjectBookingCancelled, cancelled)
	if booking.Status == models.BookingStatusConfirmed {
		s.publish(ctx, events.SubjectBookingRefundRequired, cancelled)
	}
	return cancelled, nil
}

// UpdateCameraMode stores the student's camera view: "FACE", "BOARD" or a device id.
func (s *BookingService) UpdateCameraMode(ctx context.Context, actorID int64, role string, bookingID uuid.UUID, mode string) (*models.Booking, error) {
	mode = strings.TrimSpace(mode)
	if mode == "" || len(mode) > maxCameraModeLength {
		return nil, invalidInput("cameraMode must be 1-%d characters", maxCameraModeLength)
	}
	if _, err := s.authorizedBooking(ctx, actorID, role, bookingID); err != nil {
		return nil, err
	}

	booking, err := s.store.UpdateCameraMode(ctx, bookingID, mode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) CheckAvailability(ctx context.Context, tutorID int64, date string, timeLabel string) (bool, error) {
	if _, err := s.store.TutorRate(ctx, tutorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrTutorNotFound
		}
		return false, err
	}

	start, err := schedule.SlotStart(date, timeLabel, s.location)
	if err != nil {
		return false, invalidInput("%v", err)
	}
	slot := schedule.NewSlot(start)

	taken, err := s.store.HasConfirmedOverlap(ctx, tutorID, slot.Start, slot.End)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *BookingService) authorizedBooking(ctx context.Context, actorID int64, role string, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	ok, err := isBookingParticipant(ctx, s.store, actorID, role, booking)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *BookingService) meetingURL(bookingID uuid.UUID) string {
	return s.meetingBaseURL + "/" + bookingID.String()
}

func (s *BookingService) publish(ctx context.Context, subject string, booking *models.Booking) {
	if err := s.publisher.PublishBooking(subject, booking); err != nil {
		slog.ErrorContext(ctx, "publish booking event", "subject", subject, "booking_id", booking.ID, "error", err)
	}
}

func amountsMatch(paid, price float64) bool {
	return math.Abs(paid-price) < 0.005
}
