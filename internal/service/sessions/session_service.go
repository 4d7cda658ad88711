package sessions

import (
	"context"
	"log"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/repository"
)

type SessionUseCase interface {
	List(ctx context.Context, day domain.Weekday) ([]domain.Session, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
}

type SessionCache interface {
	GetSessions(ctx context.Context, day domain.Weekday) ([]domain.Session, error)
	SetSessions(ctx context.Context, day domain.Weekday, sessions []domain.Session) error
}

type SessionService struct {
	repo  repository.SessionRepository
	cache SessionCache
}

// NewSessionService accepts a nil cache.
func NewSessionService(repo repository.SessionRepository, cache SessionCache) *SessionService {
	return &SessionService{repo: repo, cache: cache}
}

// List returns the non-cancelled sessions of day ordered by start time. An
// empty day lists the whole week.
func (s *SessionService) List(ctx context.Context, day domain.Weekday) ([]domain.Session, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetSessions(ctx, day); err == nil && cached != nil {
			return cached, nil
		}
	}

	sessions, err := s.repo.ListByDay(ctx, day, false)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetSessions(ctx, day, sessions); err != nil {
			log.Printf("WARNING: failed to cache sessions for %q: %v", day, err)
		}
	}
	return sessions, nil
}

func (s *SessionService) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return s.repo.GetByID(ctx, id)
}

var _ SessionUseCase = (*SessionService)(nil)
