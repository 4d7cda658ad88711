package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGReservationRepository struct {
	pool *pgxpool.Pool
	q    pgQuerier
}

func NewPGReservationRepository(db *pgxpool.Pool) *PGReservationRepository {
	return &PGReservationRepository{pool: db, q: pgQuerier{pool: db}}
}

func (r *PGReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withPGTx(ctx, r.pool, fn)
}

// GetSessionForUpdate locks the session row until the surrounding
// transaction ends, serializing reservations against the same session.
func (r *PGReservationRepository) GetSessionForUpdate(ctx context.Context, sessionID string) (domain.Session, error) {
	s, err := scanSession(r.q.queryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, pgError("get session for update", err)
	}
	return s, nil
}

const bookingColumns = `key, session_id, member_name, member_email, member_age, health_notes, created_at, reminder_sent, device_token`

func scanBooking(row rowScanner) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.Key, &b.SessionID, &b.MemberName, &b.MemberEmail, &b.MemberAge, &b.HealthNotes, &b.CreatedAt, &b.ReminderSent, &b.DeviceToken)
	return b, err
}

func (r *PGReservationRepository) GetBooking(ctx context.Context, key string) (*domain.Booking, error) {
	b, err := scanBooking(r.q.queryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE key = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, pgError("get booking", err)
	}
	return &b, nil
}

func (r *PGReservationRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.q.exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.Key, b.SessionID, b.MemberName, b.MemberEmail, b.MemberAge, b.HealthNotes, b.CreatedAt, b.ReminderSent, b.DeviceToken)
	if err != nil {
		if isPGUniqueViolation(err) {
			return domain.ErrAlreadyBooked
		}
		return pgError("create booking", err)
	}
	return nil
}

func (r *PGReservationRepository) IncrementBookedCount(ctx context.Context, sessionID string) error {
	tag, err := r.q.exec(ctx, `UPDATE sessions SET booked_count = booked_count + 1, updated_at = now()
		WHERE id = $1 AND booked_count < capacity`, sessionID)
	if err != nil {
		return pgError("increment booked count", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionFull
	}
	return nil
}

const waitlistColumns = `session_id, key, member_name, member_email, member_age, created_at, status, device_token`

func scanWaitlistEntry(row rowScanner) (domain.WaitlistEntry, error) {
	var (
		e      domain.WaitlistEntry
		status string
	)
	err := row.Scan(&e.SessionID, &e.Key, &e.MemberName, &e.MemberEmail, &e.MemberAge, &e.CreatedAt, &status, &e.DeviceToken)
	e.Status = domain.WaitlistStatus(status)
	return e, err
}

func (r *PGReservationRepository) GetWaitlistEntry(ctx context.Context, sessionID, key string) (*domain.WaitlistEntry, error) {
	e, err := scanWaitlistEntry(r.q.queryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries WHERE session_id = $1 AND key = $2`, sessionID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, pgError("get waitlist entry", err)
	}
	return &e, nil
}

func (r *PGReservationRepository) CreateWaitlistEntry(ctx context.Context, e domain.WaitlistEntry) error {
	_, err := r.q.exec(ctx, `INSERT INTO waitlist_entries (`+waitlistColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.SessionID, e.Key, e.MemberName, e.MemberEmail, e.MemberAge, e.CreatedAt, string(e.Status), e.DeviceToken)
	if err != nil {
		if isPGUniqueViolation(err) {
			return domain.ErrAlreadyWaitlisted
		}
		return pgError("create waitlist entry", err)
	}
	return nil
}

func (r *PGReservationRepository) IncrementWaitlistCount(ctx context.Context, sessionID string) error {
	tag, err := r.q.exec(ctx, `UPDATE sessions SET waitlist_count = waitlist_count + 1, updated_at = now() WHERE id = $1`, sessionID)
	if err != nil {
		return pgError("increment waitlist count", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *PGReservationRepository) PendingReminders(ctx context.Context, sessionIDs []string) ([]domain.Booking, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE session_id = ANY($1) AND reminder_sent = FALSE
		ORDER BY created_at`, sessionIDs)
	if err != nil {
		return nil, pgError("pending reminders", err)
	}
	defer rows.Close()

	var pending []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, pgError("scan booking", err)
		}
		pending = append(pending, b)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("pending reminders", err)
	}
	return pending, nil
}

func (r *PGReservationRepository) MarkRemindersSent(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.WithTx(ctx, func(txCtx context.Context) error {
		batch := &pgx.Batch{}
		for _, key := range keys {
			batch.Queue(`UPDATE bookings SET reminder_sent = TRUE WHERE key = $1 AND reminder_sent = FALSE`, key)
		}
		if err := pgTxFromContext(txCtx).SendBatch(txCtx, batch).Close(); err != nil {
			return pgError("mark reminders sent", err)
		}
		return nil
	})
}

var (
	_ ReservationRepository = (*PGReservationRepository)(nil)
	_ ReminderRepository    = (*PGReservationRepository)(nil)
)
