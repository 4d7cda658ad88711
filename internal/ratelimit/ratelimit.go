// Package ratelimit bounds reservation attempts per client per calendar day.
//
// Counters are advisory: they are keyed by a client-supplied identity and
// fail open on storage errors.
package ratelimit

import (
	"context"
	"log"
	"sync"

	"github.com/Domenick1991/classbooking/internal/clock"
)

const (
	DefaultDailyLimit = 5
	dateLayout        = "2006-01-02"
)

// Window is the persisted attempt counter of one client.
type Window struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Store interface {
	LoadWindow(ctx context.Context, clientID string) (Window, error)
	SaveWindow(ctx context.Context, clientID string, w Window) error
}

type Limiter struct {
	store Store
	clock clock.Clock
	limit int
	mu    sync.Mutex
}

type Option func(*Limiter)

func WithDailyLimit(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.limit = n
		}
	}
}

func New(store Store, clk clock.Clock, opts ...Option) *Limiter {
	l := &Limiter{store: store, clock: clk, limit: DefaultDailyLimit}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether clientID is below today's ceiling.
func (l *Limiter) Allow(ctx context.Context, clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := l.store.LoadWindow(ctx, clientID)
	if err != nil {
		log.Printf("WARNING: rate limit read failed for %s, allowing: %v", clientID, err)
		return true
	}
	if w.Date != l.today() {
		return true
	}
	return w.Count < l.limit
}

// Record counts one attempt for today, resetting a stale window first.
func (l *Limiter) Record(ctx context.Context, clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := l.store.LoadWindow(ctx, clientID)
	if err != nil {
		log.Printf("WARNING: rate limit read failed for %s: %v", clientID, err)
		w = Window{}
	}
	l.save(ctx, clientID, l.next(w))
}

// Take checks the ceiling and counts the attempt in one step. Concurrent
// callers in this process cannot overrun the ceiling. A failed read admits
// the attempt without counting it.
func (l *Limiter) Take(ctx context.Context, clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := l.store.LoadWindow(ctx, clientID)
	if err != nil {
		log.Printf("WARNING: rate limit read failed for %s, allowing: %v", clientID, err)
		return true
	}
	if w.Date == l.today() && w.Count >= l.limit {
		return false
	}
	l.save(ctx, clientID, l.next(w))
	return true
}

func (l *Limiter) next(w Window) Window {
	today := l.today()
	if w.Date != today {
		w = Window{Date: today}
	}
	w.Count++
	return w
}

func (l *Limiter) save(ctx context.Context, clientID string, w Window) {
	if err := l.store.SaveWindow(ctx, clientID, w); err != nil {
		log.Printf("WARNING: rate limit write failed for %s: %v", clientID, err)
	}
}

func (l *Limiter) today() string {
	return l.clock.Now().Format(dateLayout)
}

// MemoryStore keeps windows in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]Window
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]Window)}
}

func (s *MemoryStore) LoadWindow(_ context.Context, clientID string) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows[clientID], nil
}

func (s *MemoryStore) SaveWindow(_ context.Context, clientID string, w Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[clientID] = w
	return nil
}

var _ Store = (*MemoryStore)(nil)
