package booking

import (
	"context"
	"log"
	"strings"

	"github.com/Domenick1991/classbooking/internal/clock"
	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/kafka"
	"github.com/Domenick1991/classbooking/internal/obs"
	"github.com/Domenick1991/classbooking/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type BookingUseCase interface {
	Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error)
}

// RateLimiter is consulted before any transaction starts. Take reports
// whether the attempt is admitted and counts it.
type RateLimiter interface {
	Take(ctx context.Context, clientID string) bool
}

// TxRunner re-runs fn on transient store conflicts.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// TokenResolver turns the device token supplied with a request into one the
// push gateway accepts.
type TokenResolver interface {
	Resolve(ctx context.Context, raw string) (string, error)
}

type Cache interface {
	InvalidateSessions(ctx context.Context, day domain.Weekday) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// ReserveInput is shared by reservations and waitlist admissions.
type ReserveInput struct {
	SessionID     string
	ClientID      string
	Member        domain.Member
	WantsReminder bool
	DeviceToken   string
}

// Deps bundles the collaborators common to the booking and waitlist
// managers.
type Deps struct {
	Repo        repository.ReservationRepository
	Runner      TxRunner
	Clock       clock.Clock
	Limiter     RateLimiter
	Tokens      TokenResolver
	Cache       Cache
	Producer    Producer
	EventsTopic string
}

type BookingService struct {
	Deps
}

type BookingServiceOption func(*Deps)

func WithRateLimiter(l RateLimiter) BookingServiceOption {
	return func(d *Deps) { d.Limiter = l }
}

func WithTokenResolver(r TokenResolver) BookingServiceOption {
	return func(d *Deps) { d.Tokens = r }
}

func WithCache(c Cache) BookingServiceOption {
	return func(d *Deps) { d.Cache = c }
}

func WithEvents(p Producer, topic string) BookingServiceOption {
	return func(d *Deps) {
		d.Producer = p
		d.EventsTopic = topic
	}
}

// NewDeps applies opts on top of the mandatory collaborators.
func NewDeps(repo repository.ReservationRepository, runner TxRunner, clk clock.Clock, opts ...BookingServiceOption) Deps {
	d := Deps{
		Repo:   repo,
		Runner: runner,
		Clock:  clk,
		Tokens: RequestTokenResolver{},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewBookingService(repo repository.ReservationRepository, runner TxRunner, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	return &BookingService{Deps: NewDeps(repo, runner, clk, opts...)}
}

// Reserve books one seat of a session for a member. The capacity check, the
// duplicate check, the booking insert and the counter increment run in one
// transaction.
func (s *BookingService) Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error) {
	ctx, span := obs.Tracer().Start(ctx, "booking.Reserve",
		trace.WithAttributes(attribute.String("session.id", input.SessionID)))
	defer span.End()

	if err := input.Member.Validate(); err != nil {
		return nil, err
	}
	if err := s.Admit(ctx, input.ClientID); err != nil {
		return nil, err
	}
	token := s.ResolveToken(ctx, input.WantsReminder, input.DeviceToken)

	key := domain.BookingKey(input.SessionID, input.Member.Email)
	var (
		created domain.Booking
		session domain.Session
	)
	err := s.Runner.Run(ctx, func(ctx context.Context) error {
		return s.Repo.WithTx(ctx, func(txCtx context.Context) error {
			current, err := s.Repo.GetSessionForUpdate(txCtx, input.SessionID)
			if err != nil {
				return err
			}
			if current.IsFull() {
				return domain.ErrSessionFull
			}

			existing, err := s.Repo.GetBooking(txCtx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrAlreadyBooked
			}

			b := domain.Booking{
				Key:          key,
				SessionID:    input.SessionID,
				MemberName:   strings.TrimSpace(input.Member.Name),
				MemberEmail:  strings.TrimSpace(input.Member.Email),
				MemberAge:    input.Member.Age,
				HealthNotes:  strings.TrimSpace(input.Member.HealthNotes),
				CreatedAt:    s.Clock.Now(),
				ReminderSent: false,
				DeviceToken:  token,
			}
			if err := s.Repo.CreateBooking(txCtx, b); err != nil {
				return err
			}
			if err := s.Repo.IncrementBookedCount(txCtx, input.SessionID); err != nil {
				return err
			}

			created = b
			session = current
			return nil
		})
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.AfterCommit(ctx, kafka.EventBookingCreated, session, key, created.MemberEmail)
	return &created, nil
}

// Admit applies the per-client daily attempt ceiling and records the attempt.
func (d Deps) Admit(ctx context.Context, clientID string) error {
	if d.Limiter == nil || clientID == "" {
		return nil
	}
	if !d.Limiter.Take(ctx, clientID) {
		return domain.ErrRateLimitExceeded
	}
	return nil
}

// ResolveToken never fails: without a usable token the reservation simply
// carries no reminder.
func (d Deps) ResolveToken(ctx context.Context, wantsReminder bool, raw string) string {
	if !wantsReminder || d.Tokens == nil {
		return ""
	}
	token, err := d.Tokens.Resolve(ctx, raw)
	if err != nil {
		log.Printf("WARNING: could not obtain notification token, continuing without reminder: %v", err)
		return ""
	}
	return token
}

// AfterCommit publishes the event and drops cached listings. Both are best
// effort.
func (d Deps) AfterCommit(ctx context.Context, eventType string, session domain.Session, key, email string) {
	if d.Cache != nil {
		if err := d.Cache.InvalidateSessions(ctx, session.DayOfWeek); err != nil {
			log.Printf("WARNING: failed to invalidate sessions cache for %s: %v", session.DayOfWeek, err)
		}
	}
	if d.Producer == nil || d.EventsTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, session, key, email, d.Clock.Now())
	if err := d.Producer.Publish(ctx, d.EventsTopic, session.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for %s: %v", eventType, key, err)
	}
}

var _ BookingUseCase = (*BookingService)(nil)
