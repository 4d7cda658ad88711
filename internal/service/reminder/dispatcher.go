// Package reminder sends one push notification per booking shortly before
// its session starts.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Domenick1991/classbooking/internal/clock"
	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/obs"
	"github.com/Domenick1991/classbooking/internal/push"
	"github.com/Domenick1991/classbooking/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLocale          = "en"
	DefaultLookahead       = 120
	defaultSendConcurrency = 8
	lockName               = "reminder-dispatcher"
)

// ErrRunSkipped is returned when another run holds the dispatcher lock.
var ErrRunSkipped = errors.New("reminder run already in progress")

type DispatcherUseCase interface {
	Run(ctx context.Context) (int, error)
}

// Locker guards a run across processes. An empty token from AcquireLock
// means the lock is held elsewhere.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

type Dispatcher struct {
	sessions    repository.SessionRepository
	reminders   repository.ReminderRepository
	gateway     push.Gateway
	clock       clock.Clock
	locker      Locker
	lockTTL     time.Duration
	lookahead   int
	concurrency int
	locale      string

	running sync.Mutex
}

type Option func(*Dispatcher)

// WithLocker enables the distributed lock. ttl should match the run interval.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(d *Dispatcher) {
		d.locker = l
		d.lockTTL = ttl
	}
}

// WithLookahead sets the window in minutes.
func WithLookahead(minutes int) Option {
	return func(d *Dispatcher) {
		if minutes > 0 {
			d.lookahead = minutes
		}
	}
}

// WithLocale picks the notification language. Unsupported locales keep the
// default.
func WithLocale(locale string) Option {
	return func(d *Dispatcher) {
		if SupportedLocale(locale) {
			d.locale = locale
		}
	}
}

func WithSendConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func NewDispatcher(sessions repository.SessionRepository, reminders repository.ReminderRepository, gateway push.Gateway, clk clock.Clock, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sessions:    sessions,
		reminders:   reminders,
		gateway:     gateway,
		clock:       clk,
		lookahead:   DefaultLookahead,
		concurrency: defaultSendConcurrency,
		locale:      DefaultLocale,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run scans today's sessions starting within the lookahead window and sends
// a reminder for every pending booking that carries a device token. All
// selected bookings are flagged in one batch after the sends finish, whether
// or not delivery succeeded. It returns the number of attempted sends.
func (d *Dispatcher) Run(ctx context.Context) (int, error) {
	if !d.running.TryLock() {
		return 0, ErrRunSkipped
	}
	defer d.running.Unlock()

	if d.locker != nil {
		token, err := d.locker.AcquireLock(ctx, lockName, d.lockTTL)
		switch {
		case err != nil:
			log.Printf("WARNING: dispatcher lock unavailable, running unguarded: %v", err)
		case token == "":
			return 0, ErrRunSkipped
		default:
			defer func() {
				if err := d.locker.ReleaseLock(context.WithoutCancel(ctx), lockName, token); err != nil {
					log.Printf("WARNING: failed to release dispatcher lock: %v", err)
				}
			}()
		}
	}

	ctx, span := obs.Tracer().Start(ctx, "reminder.Run")
	defer span.End()

	sent, err := d.dispatch(ctx)
	span.SetAttributes(attribute.Int("reminders.sent", sent))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return sent, err
}

func (d *Dispatcher) dispatch(ctx context.Context) (int, error) {
	now := d.clock.Now()
	today := domain.WeekdayOf(now)

	sessions, err := d.sessions.ListByDay(ctx, today, false)
	if err != nil {
		return 0, fmt.Errorf("list sessions for %s: %w", today, err)
	}

	upcoming := make(map[string]domain.Session)
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		if s.Cancelled {
			continue
		}
		diff := s.MinutesUntilStart(now)
		if diff > 0 && diff <= d.lookahead {
			upcoming[s.ID] = s
			ids = append(ids, s.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pending, err := d.reminders.PendingReminders(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load pending reminders: %w", err)
	}

	var (
		g      errgroup.Group
		failed atomic.Int64
		keys   []string
	)
	g.SetLimit(d.concurrency)
	for _, b := range pending {
		if !b.HasDeviceToken() {
			continue
		}
		s, ok := upcoming[b.SessionID]
		if !ok {
			continue
		}
		keys = append(keys, b.Key)

		title, body := Message(d.locale, s)
		token, key := b.DeviceToken, b.Key
		g.Go(func() error {
			if err := d.gateway.Send(ctx, token, title, body); err != nil {
				failed.Add(1)
				log.Printf("WARNING: failed to send reminder for %s: %v", key, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(keys) == 0 {
		return 0, nil
	}
	if err := d.reminders.MarkRemindersSent(ctx, keys); err != nil {
		return len(keys), fmt.Errorf("mark reminders sent: %w", err)
	}

	log.Printf("sent %d reminders (%d failed) for %d upcoming sessions", len(keys), failed.Load(), len(upcoming))
	return len(keys), nil
}

type template struct {
	title string
	body  string
}

// Arguments: session name, instructor, start time.
var templates = map[string]template{
	"en": {
		title: "%[1]s starts soon!",
		body:  "Your %[1]s class with %[2]s starts at %[3]s. See you there!",
	},
	"es": {
		title: "%[1]s comienza pronto!",
		body:  "Tu clase de %[1]s con %[2]s empieza a las %[3]s. Te esperamos!",
	},
}

func SupportedLocale(locale string) bool {
	_, ok := templates[locale]
	return ok
}

// Message renders the notification for a session in locale, falling back to
// English.
func Message(locale string, s domain.Session) (title, body string) {
	t, ok := templates[locale]
	if !ok {
		t = templates[DefaultLocale]
	}
	title = fmt.Sprintf(t.title, s.Name)
	body = fmt.Sprintf(t.body, s.Name, s.Instructor, s.StartTime)
	return title, body
}

var _ DispatcherUseCase = (*Dispatcher)(nil)
