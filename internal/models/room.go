package models

import (
	"time"

	"github.com/google/uuid"
)

type RoomMessage struct {
	ID        int64     `json:"id"`
	BookingID uuid.UUID `json:"bookingId"`
	SenderID  int64     `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
