package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const maxRoomMessageLength = 2000

type RoomBookings interface {
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	TutorIDForUser(ctx context.Context, userID int64) (int64, error)
}

type RoomMessageStore interface {
	Create(ctx context.Context, bookingID uuid.UUID, senderID int64, content string) (*models.RoomMessage, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID, limit int, offset int) ([]models.RoomMessage, int, error)
}

// RoomService guards the live lesson room of a confirmed booking.
type RoomService struct {
	bookings RoomBookings
	messages RoomMessageStore
}

func NewRoomService(bookings RoomBookings, messages RoomMessageStore) *RoomService {
	return &RoomService{
		bookings: bookings,
		messages: messages,
	}
}

// AuthorizeJoin admits only the booking's student or tutor, and only once the
// booking is confirmed.
func (s *RoomService) AuthorizeJoin(ctx context.Context, actorID int64, role string, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	ok, err := isBookingParticipant(ctx, s.bookings, actorID, role, booking)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, ErrInvalidStateTransition
	}
	return booking, nil
}

func (s *RoomService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	bookingID uuid.UUID,
	content string,
) (*models.RoomMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, invalidInput("message content is required")
	}
	if len(trimmed) > maxRoomMessageLength {
		return nil, invalidInput("message exceeds %d characters", maxRoomMessageLength)
	}
	if _, err := s.AuthorizeJoin(ctx, actorID, role, bookingID); err != nil {
		return nil, err
	}

	return s.messages.Create(ctx, bookingID, actorID, trimmed)
}

func (s *RoomService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	bookingID uuid.UUID,
	page int,
	limit int,
) ([]models.RoomMessage, int, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrBookingNotFound
		}
		return nil, 0, err
	}
	ok, err := isBookingParticipant(ctx, s.bookings, actorID, role, booking)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, ErrForbidden
	}

	return s.messages.ListByBooking(ctx, bookingID, limit, (page-1)*limit)
}

func FormatRoomTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
