package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/schedule"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CreateBookingInput struct {
	ID         uuid.UUID
	StudentID  int64
	TutorID    int64
	StartTime  time.Time
	EndTime    time.Time
	TotalPrice float64
}

type BookingListFilter struct {
	StudentID int64
	TutorID   int64
	Status    string
	Timeframe string
	Now       time.Time
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, student_id, tutor_id, start_time, end_time, total_price::float8, status,
	meeting_url, student_camera_mode, created_at, updated_at`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var booking models.Booking
	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.TutorID,
		&booking.StartTime,
		&booking.EndTime,
		&booking.TotalPrice,
		&booking.Status,
		&booking.MeetingURL,
		&booking.StudentCameraMode,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	query := `
		INSERT INTO bookings (id, student_id, tutor_id, start_time, end_time, total_price, status, student_camera_mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + bookingColumns
	booking, err := scanBooking(r.db.QueryRow(
		ctx,
		query,
		input.ID,
		input.StudentID,
		input.TutorID,
		input.StartTime.UTC(),
		input.EndTime.UTC(),
		input.TotalPrice,
		models.BookingStatusPending,
		models.DefaultCameraMode,
	))
	if err != nil {
		return nil, translateConstraintError(err)
	}
	return booking, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID))
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID))
}

func (r *BookingRepository) List(ctx context.Context, filter BookingListFilter) ([]models.Booking, error) {
	args := []any{}
	whereParts := []string{}

	if filter.StudentID > 0 {
		args = append(args, filter.StudentID)
		whereParts = append(whereParts, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.TutorID > 0 {
		args = append(args, filter.TutorID)
		whereParts = append(whereParts, fmt.Sprintf("tutor_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, strings.ToUpper(status))
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		args = append(args, now)
		whereParts = append(whereParts, fmt.Sprintf("end_time > $%d", len(args)))
	case "past":
		args = append(args, now)
		whereParts = append(whereParts, fmt.Sprintf("end_time <= $%d", len(args)))
	}
	if len(whereParts) == 0 {
		whereParts = append(whereParts, "TRUE")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		WHERE %s
		ORDER BY start_time ASC, id ASC
	`, bookingColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	bookingID uuid.UUID,
	currentStatus string,
	nextStatus string,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns
	booking, err := scanBooking(r.db.QueryRow(ctx, query, bookingID, currentStatus, nextStatus))
	if err != nil {
		return nil, translateConstraintError(err)
	}
	return booking, nil
}

// MarkConfirmed moves a pending booking to CONFIRMED and attaches its meeting link.
func (r *BookingRepository) MarkConfirmed(ctx context.Context, bookingID uuid.UUID, meetingURL string) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $2, meeting_url = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING ` + bookingColumns
	booking, err := scanBooking(r.db.QueryRow(
		ctx,
		query,
		bookingID,
		models.BookingStatusConfirmed,
		meetingURL,
		models.BookingStatusPending,
	))
	if err != nil {
		return nil, translateConstraintError(err)
	}
	return booking, nil
}

func (r *BookingRepository) UpdateCameraMode(ctx context.Context, bookingID uuid.UUID, mode string) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET student_camera_mode = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns
	return scanBooking(r.db.QueryRow(ctx, query, bookingID, mode))
}

// HasConfirmedOverlap checks [start, end) against CONFIRMED bookings only.
func (r *BookingRepository) HasConfirmedOverlap(
	ctx context.Context,
	tutorID int64,
	start time.Time,
	end time.Time,
	excludeID *uuid.UUID,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM bookings
			WHERE tutor_id = $1
			  AND status = $4
			  AND start_time < $3
			  AND end_time > $2
			  AND ($5::uuid IS NULL OR id <> $5::uuid)
		)
	`
	var hasConflict bool
	err := r.db.QueryRow(ctx, query, tutorID, start.UTC(), end.UTC(), models.BookingStatusConfirmed, excludeID).
		Scan(&hasConflict)
	if err != nil {
		return false, err
	}
	return hasConflict, nil
}

func (r *BookingRepository) ConfirmedSlotsBetween(
	ctx context.Context,
	tutorID int64,
	from time.Time,
	to time.Time,
) ([]schedule.Interval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT start_time, end_time
		FROM bookings
		WHERE tutor_id = $1
		  AND status = $4
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time ASC
	`, tutorID, from.UTC(), to.UTC(), models.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]schedule.Interval, 0)
	for rows.Next() {
		var slot schedule.Interval
		if err := rows.Scan(&slot.Start, &slot.End); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}
