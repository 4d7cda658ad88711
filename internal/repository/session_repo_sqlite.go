package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Domenick1991/classbooking/internal/domain"
)

type SQLiteSessionRepository struct {
	q sqliteQuerier
}

func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{q: sqliteQuerier{db: db}}
}

func (r *SQLiteSessionRepository) ListByDay(ctx context.Context, day domain.Weekday, includeCancelled bool) ([]domain.Session, error) {
	rows, err := r.q.query(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE ? OR cancelled = 0
		ORDER BY start_time, name`, includeCancelled)
	if err != nil {
		return nil, sqliteError("list sessions", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, sqliteError("scan session", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError("list sessions", err)
	}
	return filterByDay(sessions, day), nil
}

func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSession(r.q.queryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, sqliteError("get session", err)
	}
	return &s, nil
}

// Create inserts a catalog entry for fixtures and local development.
func (r *SQLiteSessionRepository) Create(ctx context.Context, s domain.Session) error {
	day, err := canonicalDay(s)
	if err != nil {
		return err
	}
	_, err = r.q.exec(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Instructor, day, s.StartTime.String(), s.DurationMinutes,
		s.Capacity, s.BookedCount, s.WaitlistCount, s.Cancelled)
	if err != nil {
		return sqliteError("create session", err)
	}
	return nil
}

var _ SessionRepository = (*SQLiteSessionRepository)(nil)
