package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Domenick1991/classbooking/internal/domain"
)

type SQLiteReservationRepository struct {
	db *sql.DB
	q  sqliteQuerier
}

func NewSQLiteReservationRepository(db *sql.DB) *SQLiteReservationRepository {
	return &SQLiteReservationRepository{db: db, q: sqliteQuerier{db: db}}
}

func (r *SQLiteReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withSQLiteTx(ctx, r.db, fn)
}

// GetSessionForUpdate relies on the single write connection: the whole
// transaction already holds exclusive access.
func (r *SQLiteReservationRepository) GetSessionForUpdate(ctx context.Context, sessionID string) (domain.Session, error) {
	s, err := scanSession(r.q.queryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, sqliteError("get session for update", err)
	}
	return s, nil
}

func scanSQLiteBooking(row rowScanner) (domain.Booking, error) {
	var (
		b         domain.Booking
		createdAt string
	)
	if err := row.Scan(&b.Key, &b.SessionID, &b.MemberName, &b.MemberEmail, &b.MemberAge, &b.HealthNotes, &createdAt, &b.ReminderSent, &b.DeviceToken); err != nil {
		return domain.Booking{}, err
	}
	ts, err := parseSQLiteTime(createdAt)
	if err != nil {
		return domain.Booking{}, err
	}
	b.CreatedAt = ts
	return b, nil
}

func (r *SQLiteReservationRepository) GetBooking(ctx context.Context, key string) (*domain.Booking, error) {
	b, err := scanSQLiteBooking(r.q.queryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE key = ?`, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, sqliteError("get booking", err)
	}
	return &b, nil
}

func (r *SQLiteReservationRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.q.exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Key, b.SessionID, b.MemberName, b.MemberEmail, b.MemberAge, b.HealthNotes, formatSQLiteTime(b.CreatedAt), b.ReminderSent, b.DeviceToken)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return domain.ErrAlreadyBooked
		}
		return sqliteError("create booking", err)
	}
	return nil
}

func (r *SQLiteReservationRepository) IncrementBookedCount(ctx context.Context, sessionID string) error {
	res, err := r.q.exec(ctx, `UPDATE sessions SET booked_count = booked_count + 1 WHERE id = ? AND booked_count < capacity`, sessionID)
	if err != nil {
		return sqliteError("increment booked count", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionFull
	}
	return nil
}

func (r *SQLiteReservationRepository) GetWaitlistEntry(ctx context.Context, sessionID, key string) (*domain.WaitlistEntry, error) {
	var (
		e         domain.WaitlistEntry
		status    string
		createdAt string
	)
	err := r.q.queryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries WHERE session_id = ? AND key = ?`, sessionID, key).
		Scan(&e.SessionID, &e.Key, &e.MemberName, &e.MemberEmail, &e.MemberAge, &createdAt, &status, &e.DeviceToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, sqliteError("get waitlist entry", err)
	}
	e.Status = domain.WaitlistStatus(status)
	if e.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, sqliteError("parse waitlist created_at", err)
	}
	return &e, nil
}

func (r *SQLiteReservationRepository) CreateWaitlistEntry(ctx context.Context, e domain.WaitlistEntry) error {
	_, err := r.q.exec(ctx, `INSERT INTO waitlist_entries (`+waitlistColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Key, e.MemberName, e.MemberEmail, e.MemberAge, formatSQLiteTime(e.CreatedAt), string(e.Status), e.DeviceToken)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return domain.ErrAlreadyWaitlisted
		}
		return sqliteError("create waitlist entry", err)
	}
	return nil
}

func (r *SQLiteReservationRepository) IncrementWaitlistCount(ctx context.Context, sessionID string) error {
	res, err := r.q.exec(ctx, `UPDATE sessions SET waitlist_count = waitlist_count + 1 WHERE id = ?`, sessionID)
	if err != nil {
		return sqliteError("increment waitlist count", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SQLiteReservationRepository) PendingReminders(ctx context.Context, sessionIDs []string) ([]domain.Booking, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sessionIDs)), ",")
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}

	rows, err := r.q.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE session_id IN (`+placeholders+`) AND reminder_sent = 0
		ORDER BY created_at`, args...)
	if err != nil {
		return nil, sqliteError("pending reminders", err)
	}
	defer rows.Close()

	var pending []domain.Booking
	for rows.Next() {
		b, err := scanSQLiteBooking(rows)
		if err != nil {
			return nil, sqliteError("scan booking", err)
		}
		pending = append(pending, b)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError("pending reminders", err)
	}
	return pending, nil
}

func (r *SQLiteReservationRepository) MarkRemindersSent(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.WithTx(ctx, func(txCtx context.Context) error {
		for _, key := range keys {
			if _, err := r.q.exec(txCtx, `UPDATE bookings SET reminder_sent = 1 WHERE key = ? AND reminder_sent = 0`, key); err != nil {
				return sqliteError("mark reminders sent", err)
			}
		}
		return nil
	})
}

var (
	_ ReservationRepository = (*SQLiteReservationRepository)(nil)
	_ ReminderRepository    = (*SQLiteReservationRepository)(nil)
)
