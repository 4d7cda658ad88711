package domain

import (
	"fmt"
	"time"
)

// ClockTime is a wall-clock start time with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the number of minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Session is one scheduled occurrence of a bookable class.
type Session struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Instructor      string    `json:"instructor"`
	DayOfWeek       Weekday   `json:"day_of_week"`
	StartTime       ClockTime `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Capacity        int       `json:"capacity"`
	BookedCount     int       `json:"booked_count"`
	WaitlistCount   int       `json:"waitlist_count"`
	Cancelled       bool      `json:"cancelled"`
}

func (s Session) IsFull() bool {
	return s.BookedCount >= s.Capacity
}

func (s Session) AvailableSpots() int {
	if s.IsFull() {
		return 0
	}
	return s.Capacity - s.BookedCount
}

// MinutesUntilStart reports how many whole minutes separate now's wall clock
// from the session start on the same day. Seconds are ignored.
func (s Session) MinutesUntilStart(now time.Time) int {
	return s.StartTime.Minutes() - (now.Hour()*60 + now.Minute())
}
