package waitlist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Domenick1991/classbooking/internal/clock"
	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/repository"
	"github.com/Domenick1991/classbooking/internal/service/booking"
	"github.com/Domenick1991/classbooking/internal/txretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fixture struct {
	sessions *repository.SQLiteSessionRepository
	bookings *booking.BookingService
	waitlist *WaitlistService
}

func newFixture(t *testing.T, capacity int) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "waitlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := repository.NewSQLiteSessionRepository(db)
	require.NoError(t, sessions.Create(ctx, domain.Session{
		ID:              "spin-1",
		Name:            "Spinning",
		Instructor:      "Raul",
		DayOfWeek:       domain.Wednesday,
		StartTime:       domain.ClockTime{Hour: 18, Minute: 0},
		DurationMinutes: 45,
		Capacity:        capacity,
	}))

	runner := txretry.New(txretry.WithIntervals(time.Millisecond, time.Millisecond))
	deps := booking.NewDeps(repository.NewSQLiteReservationRepository(db), runner, clock.NewFixed(testNow))
	return fixture{
		sessions: sessions,
		bookings: &booking.BookingService{Deps: deps},
		waitlist: NewWaitlistService(deps),
	}
}

func input(name, email string) booking.ReserveInput {
	return booking.ReserveInput{
		SessionID: "spin-1",
		Member:    domain.Member{Name: name, Email: email, Age: 28},
	}
}

func TestWaitlistService_FullSessionFallsBackToWaitlist(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.bookings.Reserve(ctx, input("Ana", "a@x.com"))
	require.NoError(t, err)

	_, err = f.bookings.Reserve(ctx, input("Bea", "b@x.com"))
	require.ErrorIs(t, err, domain.ErrSessionFull)

	entry, err := f.waitlist.JoinWaitlist(ctx, input("Bea", "b@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "b_x_com", entry.Key)
	assert.Equal(t, domain.WaitlistStatusWaiting, entry.Status)

	_, err = f.waitlist.JoinWaitlist(ctx, input("Ana", "a@x.com"))
	assert.ErrorIs(t, err, domain.ErrAlreadyBooked)

	_, err = f.waitlist.JoinWaitlist(ctx, input("Bea", "B@x.com"))
	assert.ErrorIs(t, err, domain.ErrAlreadyWaitlisted)

	s, err := f.sessions.GetByID(ctx, "spin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.BookedCount)
	assert.Equal(t, 1, s.WaitlistCount)
}

func TestWaitlistService_SessionNotFound(t *testing.T) {
	f := newFixture(t, 1)

	in := input("Ana", "a@x.com")
	in.SessionID = "missing"
	_, err := f.waitlist.JoinWaitlist(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestWaitlistService_InvalidMember(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.waitlist.JoinWaitlist(context.Background(), input("", "a@x.com"))

	assert.ErrorIs(t, err, domain.ErrInvalidMember)
}

func TestWaitlistService_KeepsDeviceToken(t *testing.T) {
	f := newFixture(t, 1)

	in := input("Ana", "a@x.com")
	in.WantsReminder = true
	in.DeviceToken = "device-1"
	entry, err := f.waitlist.JoinWaitlist(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "device-1", entry.DeviceToken)
}
