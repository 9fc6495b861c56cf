package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/schedule"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConfirmBookingInput struct {
	BookingID  uuid.UUID
	MeetingURL string
	Reference  string
	Provider   string
	Amount     float64
}

type ConfirmOutcome struct {
	Booking          *models.Booking
	Payment          *models.Payment
	AlreadyConfirmed bool
	LostSlot         bool
}

type AppendSessionsInput struct {
	TutorID  int64
	Sessions []models.Session
	Slots    []schedule.Interval
}

// PostgresStore runs every check-then-write on a tutor's calendar inside one
// transaction holding pg_advisory_xact_lock(tutor_id).
type PostgresStore struct {
	db       *pgxpool.Pool
	tutors   *TutorProfileRepository
	bookings *BookingRepository
	payments *PaymentRepository
	sessions *SessionRepository
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		db:       db,
		tutors:   NewTutorProfileRepository(db),
		bookings: NewBookingRepository(db),
		payments: NewPaymentRepository(db),
		sessions: NewSessionRepository(db),
	}
}

func lockTutorCalendar(ctx context.Context, tx pgx.Tx, tutorID int64) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", tutorID)
	return err
}

func (s *PostgresStore) TutorRate(ctx context.Context, tutorID int64) (float64, error) {
	return s.tutors.HourlyRate(ctx, tutorID)
}

func (s *PostgresStore) TutorIDForUser(ctx context.Context, userID int64) (int64, error) {
	return s.tutors.IDForUser(ctx, userID)
}

func (s *PostgresStore) CreatePendingBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := lockTutorCalendar(ctx, tx, input.TutorID); err != nil {
		return nil, err
	}

	txBookings := NewBookingRepository(tx)
	taken, err := txBookings.HasConfirmedOverlap(ctx, input.TutorID, input.StartTime, input.EndTime, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	booking, err := txBookings.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *PostgresStore) ConfirmBooking(ctx context.Context, input ConfirmBookingInput) (*ConfirmOutcome, error) {
	current, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := lockTutorCalendar(ctx, tx, current.TutorID); err != nil {
		return nil, err
	}

	txBookings := NewBookingRepository(tx)
	txPayments := NewPaymentRepository(tx)

	booking, err := txBookings.GetByIDForUpdate(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case models.BookingStatusPending:
	case models.BookingStatusConfirmed:
		payment, err := txPayments.GetByBookingID(ctx, booking.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if payment != nil && payment.Reference == input.Reference {
			return &ConfirmOutcome{Booking: booking, Payment: payment, AlreadyConfirmed: true}, nil
		}
		return nil, ErrStatusChanged
	default:
		return nil, ErrStatusChanged
	}

	taken, err := txBookings.HasConfirmedOverlap(ctx, booking.TutorID, booking.StartTime, booking.EndTime, &booking.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		cancelled, err := txBookings.UpdateStatusIfCurrent(
			ctx,
			booking.ID,
			models.BookingStatusPending,
			models.BookingStatusCancelled,
		)
		if err != nil {
			return nil, err
		}
		payment, err := txPayments.Create(ctx, CreatePaymentInput{
			BookingID: booking.ID,
			Reference: input.Reference,
			Provider:  input.Provider,
			Amount:    input.Amount,
			Status:    models.PaymentStatusRefundPending,
		})
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return &ConfirmOutcome{Booking: cancelled, Payment: payment, LostSlot: true}, nil
	}

	confirmed, err := txBookings.MarkConfirmed(ctx, booking.ID, input.MeetingURL)
	if err != nil {
		return nil, err
	}
	payment, err := txPayments.Create(ctx, CreatePaymentInput{
		BookingID: booking.ID,
		Reference: input.Reference,
		Provider:  input.Provider,
		Amount:    input.Amount,
		Status:    models.PaymentStatusPaid,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ConfirmOutcome{Booking: confirmed, Payment: payment}, nil
}

func (s *PostgresStore) CancelBooking(ctx context.Context, bookingID uuid.UUID, currentStatus string) (*models.Booking, error) {
	booking, err := s.bookings.UpdateStatusIfCurrent(ctx, bookingID, currentStatus, models.BookingStatusCancelled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStatusChanged
	}
	return booking, err
}

func (s *PostgresStore) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *PostgresStore) PaymentForBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	return s.payments.GetByBookingID(ctx, bookingID)
}

func (s *PostgresStore) PaymentsForBookings(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID]models.Payment, error) {
	return s.payments.ListByBookingIDs(ctx, bookingIDs)
}

func (s *PostgresStore) ListBookings(ctx context.Context, filter BookingListFilter) ([]models.Booking, error) {
	return s.bookings.List(ctx, filter)
}

func (s *PostgresStore) UpdateCameraMode(ctx context.Context, bookingID uuid.UUID, mode string) (*models.Booking, error) {
	return s.bookings.UpdateCameraMode(ctx, bookingID, mode)
}

func (s *PostgresStore) HasConfirmedOverlap(ctx context.Context, tutorID int64, start time.Time, end time.Time) (bool, error) {
	return s.bookings.HasConfirmedOverlap(ctx, tutorID, start, end, nil)
}

func (s *PostgresStore) ConfirmedSlotsBetween(ctx context.Context, tutorID int64, from time.Time, to time.Time) ([]schedule.Interval, error) {
	return s.bookings.ConfirmedSlotsBetween(ctx, tutorID, from, to)
}

// AppendSessions stores the whole contract or nothing: any occurrence landing
// on a confirmed booking rejects every session.
func (s *PostgresStore) AppendSessions(ctx context.Context, input AppendSessionsInput) ([]models.Session, error) {
	if len(input.Sessions) == 0 {
		return []models.Session{}, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := lockTutorCalendar(ctx, tx, input.TutorID); err != nil {
		return nil, err
	}

	if from, to, ok := spanOf(input.Slots); ok {
		busy, err := NewBookingRepository(tx).ConfirmedSlotsBetween(ctx, input.TutorID, from, to)
		if err != nil {
			return nil, err
		}
		for _, slot := range input.Slots {
			if schedule.AnyOverlap(slot, busy) {
				return nil, ErrSlotTaken
			}
		}
	}

	sessions := append([]models.Session(nil), input.Sessions...)
	if err := NewSessionRepository(tx).CreateBatch(ctx, sessions); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionListFilter) ([]models.Session, error) {
	return s.sessions.List(ctx, filter)
}

func spanOf(slots []schedule.Interval) (time.Time, time.Time, bool) {
	if len(slots) == 0 {
		return time.Time{}, time.Time{}, false
	}
	from, to := slots[0].Start, slots[0].End
	for _, slot := range slots[1:] {
		if slot.Start.Before(from) {
			from = slot.Start
		}
		if slot.End.After(to) {
			to = slot.End
		}
	}
	return from, to, true
}
