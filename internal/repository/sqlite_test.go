package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "classbooking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func yoga(id string, capacity int) domain.Session {
	return domain.Session{
		ID:              id,
		Name:            "Yoga",
		Instructor:      "Marta",
		DayOfWeek:       domain.Monday,
		StartTime:       domain.ClockTime{Hour: 7, Minute: 0},
		DurationMinutes: 60,
		Capacity:        capacity,
	}
}

func TestSQLiteSessionRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewSQLiteSessionRepository(db)

	late := yoga("s-late", 10)
	late.StartTime = domain.ClockTime{Hour: 19, Minute: 30}
	cancelled := yoga("s-cancelled", 10)
	cancelled.Cancelled = true
	tuesday := yoga("s-tuesday", 10)
	tuesday.DayOfWeek = domain.Tuesday

	for _, s := range []domain.Session{late, yoga("s-early", 10), cancelled, tuesday} {
		require.NoError(t, repo.Create(ctx, s))
	}

	t.Run("ListByDay filters day and cancelled, ordered by start", func(t *testing.T) {
		sessions, err := repo.ListByDay(ctx, domain.Monday, false)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, "s-early", sessions[0].ID)
		assert.Equal(t, "s-late", sessions[1].ID)
		assert.Equal(t, domain.ClockTime{Hour: 19, Minute: 30}, sessions[1].StartTime)
	})

	t.Run("ListByDay includes cancelled on request", func(t *testing.T) {
		sessions, err := repo.ListByDay(ctx, domain.Monday, true)
		require.NoError(t, err)
		assert.Len(t, sessions, 3)
	})

	t.Run("empty day lists all", func(t *testing.T) {
		sessions, err := repo.ListByDay(ctx, "", false)
		require.NoError(t, err)
		assert.Len(t, sessions, 3)
	})

	t.Run("GetByID", func(t *testing.T) {
		s, err := repo.GetByID(ctx, "s-tuesday")
		require.NoError(t, err)
		assert.Equal(t, domain.Tuesday, s.DayOfWeek)

		_, err = repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestSQLiteSessionRepository_WeekdayNames(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewSQLiteSessionRepository(db)

	_, err := db.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES ('s-lunes', 'Yoga', 'Marta', 'Lunes', '09:30', 60, 10, 0, 0, 0),
		       ('s-miercoles', 'Spinning', 'Raul', 'MIÉRCOLES', '18:00', 45, 10, 0, 0, 0)`)
	require.NoError(t, err)

	spanish := yoga("s-sabado", 10)
	spanish.DayOfWeek = "Sábado"
	require.NoError(t, repo.Create(ctx, spanish))

	monday, err := repo.ListByDay(ctx, domain.Monday, false)
	require.NoError(t, err)
	require.Len(t, monday, 1)
	assert.Equal(t, "s-lunes", monday[0].ID)
	assert.Equal(t, domain.Monday, monday[0].DayOfWeek)

	wednesday, err := repo.ListByDay(ctx, domain.Wednesday, false)
	require.NoError(t, err)
	require.Len(t, wednesday, 1)
	assert.Equal(t, domain.Wednesday, wednesday[0].DayOfWeek)

	var stored string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT day_of_week FROM sessions WHERE id = 's-sabado'`).Scan(&stored))
	assert.Equal(t, "saturday", stored)

	bad := yoga("s-bad", 10)
	bad.DayOfWeek = "someday"
	assert.ErrorIs(t, repo.Create(ctx, bad), domain.ErrInvalidWeekday)
}

func TestSQLiteReservationRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	sessions := NewSQLiteSessionRepository(db)
	repo := NewSQLiteReservationRepository(db)
	require.NoError(t, sessions.Create(ctx, yoga("s1", 1)))

	now := time.Date(2025, 1, 6, 6, 0, 0, 0, time.UTC)
	booking := domain.Booking{
		Key:         domain.BookingKey("s1", "ana@gym.com"),
		SessionID:   "s1",
		MemberName:  "Ana",
		MemberEmail: "ana@gym.com",
		MemberAge:   31,
		CreatedAt:   now,
		DeviceToken: "tok-1",
	}

	t.Run("booking insert and increment commit together", func(t *testing.T) {
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			s, err := repo.GetSessionForUpdate(txCtx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 0, s.BookedCount)
			if err := repo.CreateBooking(txCtx, booking); err != nil {
				return err
			}
			return repo.IncrementBookedCount(txCtx, "s1")
		})
		require.NoError(t, err)

		got, err := repo.GetBooking(ctx, booking.Key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "tok-1", got.DeviceToken)
		assert.False(t, got.ReminderSent)
		assert.True(t, got.CreatedAt.Equal(now))

		s, err := sessions.GetByID(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 1, s.BookedCount)
	})

	t.Run("duplicate key maps to ErrAlreadyBooked", func(t *testing.T) {
		assert.ErrorIs(t, repo.CreateBooking(ctx, booking), domain.ErrAlreadyBooked)
	})

	t.Run("increment past capacity maps to ErrSessionFull", func(t *testing.T) {
		assert.ErrorIs(t, repo.IncrementBookedCount(ctx, "s1"), domain.ErrSessionFull)
	})

	t.Run("failed tx rolls back", func(t *testing.T) {
		other := booking
		other.Key = domain.BookingKey("s1", "rolled@gym.com")
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			require.NoError(t, repo.CreateBooking(txCtx, other))
			return domain.ErrSessionFull
		})
		assert.ErrorIs(t, err, domain.ErrSessionFull)

		got, err := repo.GetBooking(ctx, other.Key)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("waitlist entry round trip", func(t *testing.T) {
		entry := domain.WaitlistEntry{
			Key:         domain.WaitlistKey("bea@gym.com"),
			SessionID:   "s1",
			MemberName:  "Bea",
			MemberEmail: "bea@gym.com",
			MemberAge:   40,
			CreatedAt:   now,
			Status:      domain.WaitlistStatusWaiting,
		}
		require.NoError(t, repo.CreateWaitlistEntry(ctx, entry))
		require.NoError(t, repo.IncrementWaitlistCount(ctx, "s1"))
		assert.ErrorIs(t, repo.CreateWaitlistEntry(ctx, entry), domain.ErrAlreadyWaitlisted)

		got, err := repo.GetWaitlistEntry(ctx, "s1", entry.Key)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.WaitlistStatusWaiting, got.Status)

		missing, err := repo.GetWaitlistEntry(ctx, "s1", "nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)

		s, err := sessions.GetByID(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 1, s.WaitlistCount)
		assert.ErrorIs(t, repo.IncrementWaitlistCount(ctx, "missing"), domain.ErrSessionNotFound)
	})

	t.Run("reminders pending then marked", func(t *testing.T) {
		pending, err := repo.PendingReminders(ctx, []string{"s1", "other"})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, booking.Key, pending[0].Key)

		require.NoError(t, repo.MarkRemindersSent(ctx, []string{booking.Key}))

		pending, err = repo.PendingReminders(ctx, []string{"s1"})
		require.NoError(t, err)
		assert.Empty(t, pending)

		none, err := repo.PendingReminders(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
