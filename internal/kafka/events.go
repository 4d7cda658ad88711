package kafka

import (
	"time"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/google/uuid"
)

const (
	EventBookingCreated = "booking_created"
	EventWaitlistJoined = "waitlist_joined"
)

// BookingEvent is published after a reservation or waitlist admission commits.
type BookingEvent struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	SessionID  string         `json:"session_id"`
	DayOfWeek  domain.Weekday `json:"day_of_week"`
	Email      string         `json:"email"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func NewBookingEvent(eventType string, session domain.Session, key, email string, at time.Time) BookingEvent {
	return BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		SessionID:  session.ID,
		DayOfWeek:  session.DayOfWeek,
		Email:      email,
		OccurredAt: at,
	}
}

// PushMessage is the payload handed to the push delivery pipeline.
type PushMessage struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}
