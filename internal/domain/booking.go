package domain

import "time"

// Member identifies the person making a reservation.
type Member struct {
	Name        string
	Email       string
	Age         int
	HealthNotes string
}

// Booking is a confirmed reservation. Key is derived from the session id and
// the normalized member email.
type Booking struct {
	Key          string
	SessionID    string
	MemberName   string
	MemberEmail  string
	MemberAge    int
	HealthNotes  string
	CreatedAt    time.Time
	ReminderSent bool
	DeviceToken  string
}

func (b Booking) HasDeviceToken() bool {
	return b.DeviceToken != ""
}
