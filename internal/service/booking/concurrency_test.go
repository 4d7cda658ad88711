package booking

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Domenick1991/classbooking/internal/clock"
	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/ratelimit"
	"github.com/Domenick1991/classbooking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteService(t *testing.T, capacity int, opts ...BookingServiceOption) (*BookingService, *repository.SQLiteSessionRepository) {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "booking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := repository.NewSQLiteSessionRepository(db)
	require.NoError(t, sessions.Create(ctx, testSession(0, capacity)))

	service := NewBookingService(repository.NewSQLiteReservationRepository(db), fastRunner(), clock.NewFixed(testNow), opts...)
	return service, sessions
}

func member(i int) domain.Member {
	return domain.Member{Name: fmt.Sprintf("Member %d", i), Email: fmt.Sprintf("member%d@example.com", i), Age: 30}
}

func TestReserve_ConcurrentNeverOverbooks(t *testing.T) {
	const (
		capacity = 5
		callers  = 100
	)
	service, sessions := newSQLiteService(t, capacity)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		full      int
		other     []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.Reserve(ctx, ReserveInput{SessionID: "s1", Member: member(i)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrSessionFull):
				full++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, capacity, successes)
	assert.Equal(t, callers-capacity, full)

	s, err := sessions.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, capacity, s.BookedCount)
}

func TestReserve_ConcurrentSameMemberBooksOnce(t *testing.T) {
	const callers = 20
	service, sessions := newSQLiteService(t, 10)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Reserve(ctx, ReserveInput{
				SessionID: "s1",
				Member:    domain.Member{Name: "Lucia", Email: "lucia@example.com", Age: 34},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, domain.ErrAlreadyBooked) {
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, dupes)

	s, err := sessions.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.BookedCount)
}

func TestReserve_LastSeat(t *testing.T) {
	service, sessions := newSQLiteService(t, 2)
	ctx := context.Background()

	_, err := service.Reserve(ctx, ReserveInput{SessionID: "s1", Member: member(1)})
	require.NoError(t, err)
	_, err = service.Reserve(ctx, ReserveInput{SessionID: "s1", Member: member(2)})
	require.NoError(t, err)
	_, err = service.Reserve(ctx, ReserveInput{SessionID: "s1", Member: member(3)})
	assert.ErrorIs(t, err, domain.ErrSessionFull)
	_, err = service.Reserve(ctx, ReserveInput{SessionID: "missing", Member: member(3)})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	s, err := sessions.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, s.BookedCount)
}

func TestReserve_ConcurrentAttemptsFromOneClientAreLimited(t *testing.T) {
	const callers = 20
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), clock.NewFixed(testNow))
	service, sessions := newSQLiteService(t, 50, WithRateLimiter(limiter))
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		limited   int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.Reserve(ctx, ReserveInput{SessionID: "s1", ClientID: "device-1", Member: member(i)})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, domain.ErrRateLimitExceeded) {
				limited++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, ratelimit.DefaultDailyLimit, successes)
	assert.Equal(t, callers-ratelimit.DefaultDailyLimit, limited)

	s, err := sessions.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ratelimit.DefaultDailyLimit, s.BookedCount)
}
