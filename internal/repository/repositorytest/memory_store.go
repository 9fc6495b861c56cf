// Package repositorytest provides an in-memory store for service tests.
package repositorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/repository"
	"github.com/ake144/e-tutor/internal/schedule"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemoryStore is an in-process twin of repository.PostgresStore. A single mutex gives it
// the same check-then-write atomicity the advisory lock gives Postgres.
type MemoryStore struct {
	mutex         sync.RWMutex
	tutors        map[int64]models.TutorProfile
	bookings      map[uuid.UUID]models.Booking
	payments      map[uuid.UUID][]models.Payment
	references    map[string]struct{}
	sessions      map[uuid.UUID]models.Session
	nextPaymentID int64
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tutors:     make(map[int64]models.TutorProfile),
		bookings:   make(map[uuid.UUID]models.Booking),
		payments:   make(map[uuid.UUID][]models.Payment),
		references: make(map[string]struct{}),
		sessions:   make(map[uuid.UUID]models.Session),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) AddTutor(profile models.TutorProfile) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if profile.Subjects == nil {
		profile.Subjects = []string{}
	}
	s.tutors[profile.ID] = profile
}

func (s *MemoryStore) TutorRate(ctx context.Context, tutorID int64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	profile, ok := s.tutors[tutorID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return profile.HourlyRate, nil
}

func (s *MemoryStore) TutorIDForUser(ctx context.Context, userID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, profile := range s.tutors {
		if profile.UserID == userID {
			return profile.ID, nil
		}
	}
	return 0, pgx.ErrNoRows
}

func (s *MemoryStore) confirmedOverlapLocked(tutorID int64, slot schedule.Interval, exclude uuid.UUID) bool {
	for id, booking := range s.bookings {
		if id == exclude || booking.TutorID != tutorID || booking.Status != models.BookingStatusConfirmed {
			continue
		}
		if slot.Overlaps(schedule.Interval{Start: booking.StartTime, End: booking.EndTime}) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreatePendingBooking(ctx context.Context, input repository.CreateBookingInput) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	slot := schedule.Interval{Start: input.StartTime.UTC(), End: input.EndTime.UTC()}
	if s.confirmedOverlapLocked(input.TutorID, slot, uuid.Nil) {
		return nil, repository.ErrSlotTaken
	}

	now := s.now()
	booking := models.Booking{
		ID:                input.ID,
		StudentID:         input.StudentID,
		TutorID:           input.TutorID,
		StartTime:         slot.Start,
		EndTime:           slot.End,
		TotalPrice:        input.TotalPrice,
		Status:            models.BookingStatusPending,
		StudentCameraMode: models.DefaultCameraMode,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.bookings[booking.ID] = booking
	return &booking, nil
}

func (s *MemoryStore) recordPaymentLocked(input repository.CreatePaymentInput) (*models.Payment, error) {
	if _, exists := s.references[input.Reference]; exists {
		return nil, repository.ErrDuplicateEntry
	}
	s.nextPaymentID++
	payment := models.Payment{
		ID:        s.nextPaymentID,
		BookingID: input.BookingID,
		Reference: input.Reference,
		Provider:  input.Provider,
		Amount:    input.Amount,
		Status:    input.Status,
		CreatedAt: s.now(),
	}
	s.references[input.Reference] = struct{}{}
	s.payments[input.BookingID] = append(s.payments[input.BookingID], payment)
	return &payment, nil
}

func (s *MemoryStore) latestPaymentLocked(bookingID uuid.UUID) *models.Payment {
	list := s.payments[bookingID]
	if len(list) == 0 {
		return nil
	}
	payment := list[len(list)-1]
	return &payment
}

func (s *MemoryStore) ConfirmBooking(ctx context.Context, input repository.ConfirmBookingInput) (*repository.ConfirmOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	booking, ok := s.bookings[input.BookingID]
	if !ok {
		return nil, pgx.ErrNoRows
	}

	switch booking.Status {
	case models.BookingStatusPending:
	case models.BookingStatusConfirmed:
		if payment := s.latestPaymentLocked(booking.ID); payment != nil && payment.Reference == input.Reference {
			return &repository.ConfirmOutcome{Booking: &booking, Payment: payment, AlreadyConfirmed: true}, nil
		}
		return nil, repository.ErrStatusChanged
	default:
		return nil, repository.ErrStatusChanged
	}

	slot := schedule.Interval{Start: booking.StartTime, End: booking.EndTime}
	lostSlot := s.confirmedOverlapLocked(booking.TutorID, slot, booking.ID)

	paymentStatus := models.PaymentStatusPaid
	if lostSlot {
		paymentStatus = models.PaymentStatusRefundPending
	}
	payment, err := s.recordPaymentLocked(repository.CreatePaymentInput{
		BookingID: booking.ID,
		Reference: input.Reference,
		Provider:  input.Provider,
		Amount:    input.Amount,
		Status:    paymentStatus,
	})
	if err != nil {
		return nil, err
	}

	booking.UpdatedAt = s.now()
	if lostSlot {
		booking.Status = models.BookingStatusCancelled
	} else {
		meetingURL := input.MeetingURL
		booking.Status = models.BookingStatusConfirmed
		booking.MeetingURL = &meetingURL
	}
	s.bookings[booking.ID] = booking

	return &repository.ConfirmOutcome{Booking: &booking, Payment: payment, LostSlot: lostSlot}, nil
}

func (s *MemoryStore) CancelBooking(ctx context.Context, bookingID uuid.UUID, currentStatus string) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	booking, ok := s.bookings[bookingID]
	if !ok || booking.Status != currentStatus {
		return nil, repository.ErrStatusChanged
	}
	booking.Status = models.BookingStatusCancelled
	booking.UpdatedAt = s.now()
	s.bookings[bookingID] = booking
	return &booking, nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	booking, ok := s.bookings[bookingID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &booking, nil
}

func (s *MemoryStore) PaymentForBooking(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	payment := s.latestPaymentLocked(bookingID)
	if payment == nil {
		return nil, pgx.ErrNoRows
	}
	return payment, nil
}

func (s *MemoryStore) PaymentsForBookings(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID]models.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	payments := make(map[uuid.UUID]models.Payment, len(bookingIDs))
	for _, id := range bookingIDs {
		if payment := s.latestPaymentLocked(id); payment != nil {
			payments[id] = *payment
		}
	}
	return payments, nil
}

func (s *MemoryStore) ListBookings(ctx context.Context, filter repository.BookingListFilter) ([]models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := filter.Now
	if now.IsZero() {
		now = s.now()
	}
	status := strings.ToUpper(strings.TrimSpace(filter.Status))

	bookings := make([]models.Booking, 0)
	for _, booking := range s.bookings {
		if filter.StudentID > 0 && booking.StudentID != filter.StudentID {
			continue
		}
		if filter.TutorID > 0 && booking.TutorID != filter.TutorID {
			continue
		}
		if status != "" && booking.Status != status {
			continue
		}
		switch strings.TrimSpace(filter.Timeframe) {
		case "upcoming":
			if !booking.EndTime.After(now) {
				continue
			}
		case "past":
			if booking.EndTime.After(now) {
				continue
			}
		}
		bookings = append(bookings, booking)
	}

	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].StartTime.Equal(bookings[j].StartTime) {
			return bookings[i].ID.String() < bookings[j].ID.String()
		}
		return bookings[i].StartTime.Before(bookings[j].StartTime)
	})
	return bookings, nil
}

func (s *MemoryStore) UpdateCameraMode(ctx context.Context, bookingID uuid.UUID, mode string) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	booking, ok := s.bookings[bookingID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	booking.StudentCameraMode = mode
	booking.UpdatedAt = s.now()
	s.bookings[bookingID] = booking
	return &booking, nil
}

func (s *MemoryStore) HasConfirmedOverlap(ctx context.Context, tutorID int64, start time.Time, end time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.confirmedOverlapLocked(tutorID, schedule.Interval{Start: start, End: end}, uuid.Nil), nil
}

func (s *MemoryStore) ConfirmedSlotsBetween(ctx context.Context, tutorID int64, from time.Time, to time.Time) ([]schedule.Interval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	window := schedule.Interval{Start: from, End: to}
	slots := make([]schedule.Interval, 0)
	for _, booking := range s.bookings {
		if booking.TutorID != tutorID || booking.Status != models.BookingStatusConfirmed {
			continue
		}
		slot := schedule.Interval{Start: booking.StartTime, End: booking.EndTime}
		if slot.Overlaps(window) {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, nil
}

func (s *MemoryStore) AppendSessions(ctx context.Context, input repository.AppendSessionsInput) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, slot := range input.Slots {
		if s.confirmedOverlapLocked(input.TutorID, slot, uuid.Nil) {
			return nil, repository.ErrSlotTaken
		}
	}
	for _, session := range input.Sessions {
		if _, exists := s.sessions[session.ID]; exists {
			return nil, repository.ErrDuplicateEntry
		}
	}

	now := s.now()
	created := make([]models.Session, 0, len(input.Sessions))
	for _, session := range input.Sessions {
		session.CreatedAt = now
		s.sessions[session.ID] = session
		created = append(created, session)
	}
	return created, nil
}

func (s *MemoryStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &session, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sessions := make([]models.Session, 0)
	for _, session := range s.sessions {
		if (filter.Tutor != "" && session.Tutor == filter.Tutor) || (filter.Student != "" && session.Student == filter.Student) {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Date == sessions[j].Date {
			return sessions[i].ID.String() < sessions[j].ID.String()
		}
		return sessions[i].Date < sessions[j].Date
	})
	return sessions, nil
}
