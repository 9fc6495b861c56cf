package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
)

const DefaultCameraMode = "FACE"

type Booking struct {
	ID                uuid.UUID `json:"id"`
	StudentID         int64     `json:"studentId"`
	TutorID           int64     `json:"tutorId"`
	StartTime         time.Time `json:"startTime"`
	EndTime           time.Time `json:"endTime"`
	TotalPrice        float64   `json:"totalPrice"`
	Status            string    `json:"status"`
	MeetingURL        *string   `json:"meetingUrl"`
	StudentCameraMode string    `json:"studentCameraMode"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

const (
	PaymentStatusPaid          = "paid"
	PaymentStatusRefundPending = "refund_pending"
)

type Payment struct {
	ID        int64     `json:"id"`
	BookingID uuid.UUID `json:"bookingId"`
	Reference string    `json:"reference"`
	Provider  string    `json:"provider"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type BookingDetail struct {
	Booking
	Payment *Payment `json:"payment,omitempty"`
}
