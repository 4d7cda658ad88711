package waitlist

import (
	"context"
	"strings"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/kafka"
	"github.com/Domenick1991/classbooking/internal/obs"
	"github.com/Domenick1991/classbooking/internal/service/booking"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type WaitlistUseCase interface {
	JoinWaitlist(ctx context.Context, input booking.ReserveInput) (*domain.WaitlistEntry, error)
}

// WaitlistService admits members to the waitlist of a session. Entries are
// never promoted to bookings here.
type WaitlistService struct {
	booking.Deps
}

func NewWaitlistService(deps booking.Deps) *WaitlistService {
	return &WaitlistService{Deps: deps}
}

func (s *WaitlistService) JoinWaitlist(ctx context.Context, input booking.ReserveInput) (*domain.WaitlistEntry, error) {
	ctx, span := obs.Tracer().Start(ctx, "waitlist.Join",
		trace.WithAttributes(attribute.String("session.id", input.SessionID)))
	defer span.End()

	if err := input.Member.Validate(); err != nil {
		return nil, err
	}
	if err := s.Admit(ctx, input.ClientID); err != nil {
		return nil, err
	}
	token := s.ResolveToken(ctx, input.WantsReminder, input.DeviceToken)

	key := domain.WaitlistKey(input.Member.Email)
	bookingKey := domain.BookingKey(input.SessionID, input.Member.Email)
	var (
		created domain.WaitlistEntry
		session domain.Session
	)
	err := s.Runner.Run(ctx, func(ctx context.Context) error {
		return s.Repo.WithTx(ctx, func(txCtx context.Context) error {
			current, err := s.Repo.GetSessionForUpdate(txCtx, input.SessionID)
			if err != nil {
				return err
			}

			existing, err := s.Repo.GetWaitlistEntry(txCtx, input.SessionID, key)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrAlreadyWaitlisted
			}

			booked, err := s.Repo.GetBooking(txCtx, bookingKey)
			if err != nil {
				return err
			}
			if booked != nil {
				return domain.ErrAlreadyBooked
			}

			e := domain.WaitlistEntry{
				Key:         key,
				SessionID:   input.SessionID,
				MemberName:  strings.TrimSpace(input.Member.Name),
				MemberEmail: strings.TrimSpace(input.Member.Email),
				MemberAge:   input.Member.Age,
				CreatedAt:   s.Clock.Now(),
				Status:      domain.WaitlistStatusWaiting,
				DeviceToken: token,
			}
			if err := s.Repo.CreateWaitlistEntry(txCtx, e); err != nil {
				return err
			}
			if err := s.Repo.IncrementWaitlistCount(txCtx, input.SessionID); err != nil {
				return err
			}

			created = e
			session = current
			return nil
		})
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.AfterCommit(ctx, kafka.EventWaitlistJoined, session, key, created.MemberEmail)
	return &created, nil
}

var _ WaitlistUseCase = (*WaitlistService)(nil)
