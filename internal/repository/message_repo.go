package repository

import (
	"context"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/google/uuid"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	bookingID uuid.UUID,
	senderID int64,
	content string,
) (*models.RoomMessage, error) {
	query := `
		INSERT INTO room_messages (booking_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, booking_id, sender_id, content, created_at
	`

	var message models.RoomMessage
	err := r.db.QueryRow(ctx, query, bookingID, senderID, content).Scan(
		&message.ID,
		&message.BookingID,
		&message.SenderID,
		&message.Content,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) ListByBooking(
	ctx context.Context,
	bookingID uuid.UUID,
	limit int,
	offset int,
) ([]models.RoomMessage, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM room_messages WHERE booking_id = $1`, bookingID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, booking_id, sender_id, content, created_at
		FROM room_messages
		WHERE booking_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, bookingID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.RoomMessage, 0)
	for rows.Next() {
		var message models.RoomMessage
		if err := rows.Scan(
			&message.ID,
			&message.BookingID,
			&message.SenderID,
			&message.Content,
			&message.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}
