package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	SubjectBookingCreated        = "booking.created"
	SubjectBookingConfirmed      = "booking.confirmed"
	SubjectBookingCancelled      = "booking.cancelled"
	SubjectBookingRefundRequired = "booking.refund_required"
	SubjectSessionsScheduled     = "sessions.scheduled"
)

type Publisher interface {
	PublishBooking(subject string, booking *models.Booking) error
	PublishSessionsScheduled(tutor string, student string, sessions []models.Session) error
}

type BookingEvent struct {
	EventType  string    `json:"event_type"`
	BookingID  uuid.UUID `json:"booking_id"`
	TutorID    int64     `json:"tutor_id"`
	StudentID  int64     `json:"student_id"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	TotalPrice float64   `json:"total_price"`
	MeetingURL string    `json:"meeting_url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type SessionsScheduledEvent struct {
	EventType  string      `json:"event_type"`
	Tutor      string      `json:"tutor"`
	Student    string      `json:"student"`
	SessionIDs []uuid.UUID `json:"session_ids"`
	FirstDate  string      `json:"first_date"`
	LastDate   string      `json:"last_date"`
	Time       string      `json:"time"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func NewBookingEvent(subject string, booking *models.Booking) BookingEvent {
	event := BookingEvent{
		EventType:  subject,
		BookingID:  booking.ID,
		TutorID:    booking.TutorID,
		StudentID:  booking.StudentID,
		Status:     booking.Status,
		StartTime:  booking.StartTime,
		TotalPrice: booking.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
	if booking.MeetingURL != nil {
		event.MeetingURL = *booking.MeetingURL
	}
	return event
}

func NewSessionsScheduledEvent(tutor string, student string, sessions []models.Session) SessionsScheduledEvent {
	event := SessionsScheduledEvent{
		EventType:  SubjectSessionsScheduled,
		Tutor:      tutor,
		Student:    student,
		SessionIDs: make([]uuid.UUID, 0, len(sessions)),
		OccurredAt: time.Now().UTC(),
	}
	for _, session := range sessions {
		event.SessionIDs = append(event.SessionIDs, session.ID)
	}
	if len(sessions) > 0 {
		event.FirstDate = sessions[0].Date
		event.LastDate = sessions[len(sessions)-1].Date
		event.Time = sessions[0].Time
	}
	return event
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL, nats.Name("e-tutor"))
	if err != nil {
		return nil, err
	}
	return &NatsPublisher{conn: nc}, nil
}

func (p *NatsPublisher) PublishBooking(subject string, booking *models.Booking) error {
	return p.publish(subject, NewBookingEvent(subject, booking))
}

func (p *NatsPublisher) PublishSessionsScheduled(tutor string, student string, sessions []models.Session) error {
	return p.publish(SubjectSessionsScheduled, NewSessionsScheduledEvent(tutor, student, sessions))
}

func (p *NatsPublisher) publish(subject string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		slog.Error("nats publish failed", "subject", subject, "error", err)
		return err
	}
	slog.Debug("event published", "subject", subject)
	return nil
}

func (p *NatsPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishBooking(string, *models.Booking) error { return nil }

func (NopPublisher) PublishSessionsScheduled(string, string, []models.Session) error { return nil }
