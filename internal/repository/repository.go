package repository

import (
	"context"

	"github.com/Domenick1991/classbooking/internal/domain"
)

// SessionRepository reads the session catalog outside of transactions.
type SessionRepository interface {
	// ListByDay returns sessions ordered by start time. An empty day lists
	// every day.
	ListByDay(ctx context.Context, day domain.Weekday, includeCancelled bool) ([]domain.Session, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
}

// ReservationRepository holds the operations the booking and waitlist
// managers run inside a single transaction. Methods called with a context
// returned by WithTx join that transaction.
type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetSessionForUpdate(ctx context.Context, sessionID string) (domain.Session, error)
	GetBooking(ctx context.Context, key string) (*domain.Booking, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	IncrementBookedCount(ctx context.Context, sessionID string) error
	GetWaitlistEntry(ctx context.Context, sessionID, key string) (*domain.WaitlistEntry, error)
	CreateWaitlistEntry(ctx context.Context, entry domain.WaitlistEntry) error
	IncrementWaitlistCount(ctx context.Context, sessionID string) error
}

// ReminderRepository is used by the reminder dispatcher.
type ReminderRepository interface {
	PendingReminders(ctx context.Context, sessionIDs []string) ([]domain.Booking, error)
	// MarkRemindersSent flips reminder_sent for all keys in one batch.
	MarkRemindersSent(ctx context.Context, keys []string) error
}

type rowScanner interface {
	Scan(dest ...any) error
}

const sessionColumns = `id, name, instructor, day_of_week, start_time, duration_minutes, capacity, booked_count, waitlist_count, cancelled`

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s         domain.Session
		day       string
		startTime string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Instructor, &day, &startTime, &s.DurationMinutes, &s.Capacity, &s.BookedCount, &s.WaitlistCount, &s.Cancelled); err != nil {
		return domain.Session{}, err
	}
	weekday, err := domain.ParseWeekday(day)
	if err != nil {
		return domain.Session{}, err
	}
	s.DayOfWeek = weekday
	st, err := domain.ParseClockTime(startTime)
	if err != nil {
		return domain.Session{}, err
	}
	s.StartTime = st
	return s, nil
}

// filterByDay keeps the sessions scheduled on day. Stored names are compared
// after canonicalization, so catalog rows written as "Lunes" or "MONDAY"
// match domain.Monday. An empty day keeps everything.
func filterByDay(sessions []domain.Session, day domain.Weekday) []domain.Session {
	if day == "" {
		return sessions
	}
	kept := sessions[:0]
	for _, s := range sessions {
		if s.DayOfWeek == day {
			kept = append(kept, s)
		}
	}
	return kept
}

// canonicalDay normalizes the weekday of a session before it is stored.
func canonicalDay(s domain.Session) (string, error) {
	day, err := domain.ParseWeekday(string(s.DayOfWeek))
	if err != nil {
		return "", err
	}
	return string(day), nil
}
