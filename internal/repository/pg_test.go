package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/repository/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPGRepositories(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.NotNil(t, NewPGSessionRepository(pool))
	assert.NotNil(t, NewPGReservationRepository(pool))
}

func TestPGError(t *testing.T) {
	conflict := pgError("commit tx", &pgconn.PgError{Code: pgSerializationFailure})
	assert.ErrorIs(t, conflict, domain.ErrTransientConflict)

	deadlock := pgError("update", &pgconn.PgError{Code: pgDeadlockDetected})
	assert.ErrorIs(t, deadlock, domain.ErrTransientConflict)

	other := pgError("insert", &pgconn.PgError{Code: "23502"})
	assert.NotErrorIs(t, other, domain.ErrTransientConflict)
	assert.True(t, isPGUniqueViolation(&pgconn.PgError{Code: pgUniqueViolation}))
}

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping Postgres integration tests: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.Apply(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE waitlist_entries, bookings, sessions`)
	require.NoError(t, err)
	return pool
}

func TestPGReservationRepository(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	sessions := NewPGSessionRepository(pool)
	repo := NewPGReservationRepository(pool)
	require.NoError(t, sessions.Create(ctx, yoga("pg-s1", 1)))

	booking := domain.Booking{
		Key:         domain.BookingKey("pg-s1", "ana@gym.com"),
		SessionID:   "pg-s1",
		MemberName:  "Ana",
		MemberEmail: "ana@gym.com",
		MemberAge:   31,
		CreatedAt:   time.Now().UTC(),
		DeviceToken: "tok",
	}

	err := repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.GetSessionForUpdate(txCtx, "pg-s1"); err != nil {
			return err
		}
		if err := repo.CreateBooking(txCtx, booking); err != nil {
			return err
		}
		return repo.IncrementBookedCount(txCtx, "pg-s1")
	})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.CreateBooking(ctx, booking), domain.ErrAlreadyBooked)
	assert.ErrorIs(t, repo.IncrementBookedCount(ctx, "pg-s1"), domain.ErrSessionFull)

	_, err = repo.GetSessionForUpdate(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	pending, err := repo.PendingReminders(ctx, []string{"pg-s1"})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkRemindersSent(ctx, []string{booking.Key}))
	pending, err = repo.PendingReminders(ctx, []string{"pg-s1"})
	require.NoError(t, err)
	assert.Empty(t, pending)
}
