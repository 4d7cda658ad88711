package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGSessionRepository struct {
	q pgQuerier
}

func NewPGSessionRepository(db *pgxpool.Pool) *PGSessionRepository {
	return &PGSessionRepository{q: pgQuerier{pool: db}}
}

func (r *PGSessionRepository) ListByDay(ctx context.Context, day domain.Weekday, includeCancelled bool) ([]domain.Session, error) {
	rows, err := r.q.query(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE $1 OR NOT cancelled
		ORDER BY start_time, name`, includeCancelled)
	if err != nil {
		return nil, pgError("list sessions", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, pgError("scan session", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("list sessions", err)
	}
	return filterByDay(sessions, day), nil
}

func (r *PGSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSession(r.q.queryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, pgError("get session", err)
	}
	return &s, nil
}

// Create inserts a catalog entry. The catalog is owned by the admin surface;
// this exists for fixtures and integration tests.
func (r *PGSessionRepository) Create(ctx context.Context, s domain.Session) error {
	day, err := canonicalDay(s)
	if err != nil {
		return err
	}
	_, err = r.q.exec(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.Name, s.Instructor, day, s.StartTime.String(), s.DurationMinutes,
		s.Capacity, s.BookedCount, s.WaitlistCount, s.Cancelled)
	if err != nil {
		return pgError("create session", err)
	}
	return nil
}

var _ SessionRepository = (*PGSessionRepository)(nil)
