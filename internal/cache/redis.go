package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/classbooking/config"
	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/Domenick1991/classbooking/internal/ratelimit"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const rateWindowTTL = 48 * time.Hour

type RedisCache struct {
	client      redis.UniversalClient
	sessionsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, sessionsTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		sessionsTTL,
	)
}

func NewRedisCacheWithClient(client redis.UniversalClient, sessionsTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, sessionsTTL: sessionsTTL}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetSessions returns nil, nil on a cache miss.
func (c *RedisCache) GetSessions(ctx context.Context, day domain.Weekday) ([]domain.Session, error) {
	data, err := c.client.Get(ctx, sessionsKey(day)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []domain.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *RedisCache) SetSessions(ctx context.Context, day domain.Weekday, sessions []domain.Session) error {
	payload, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionsKey(day), payload, c.sessionsTTL).Err()
}

// InvalidateSessions drops the cached listing for day and the all-days listing.
func (c *RedisCache) InvalidateSessions(ctx context.Context, day domain.Weekday) error {
	return c.client.Del(ctx, sessionsKey(day), sessionsKey("")).Err()
}

// AcquireLock takes a named lock for ttl. The returned token must be passed
// to ReleaseLock; an empty token means the lock is held elsewhere.
func (c *RedisCache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, lockKey(name), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ReleaseLock deletes the lock only if it is still owned by token.
func (c *RedisCache) ReleaseLock(ctx context.Context, name, token string) error {
	return releaseScript.Run(ctx, c.client, []string{lockKey(name)}, token).Err()
}

func (c *RedisCache) LoadWindow(ctx context.Context, clientID string) (ratelimit.Window, error) {
	data, err := c.client.Get(ctx, rateKey(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ratelimit.Window{}, nil
		}
		return ratelimit.Window{}, err
	}
	var w ratelimit.Window
	if err := json.Unmarshal(data, &w); err != nil {
		return ratelimit.Window{}, err
	}
	return w, nil
}

func (c *RedisCache) SaveWindow(ctx context.Context, clientID string, w ratelimit.Window) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rateKey(clientID), payload, rateWindowTTL).Err()
}

func sessionsKey(day domain.Weekday) string {
	if day == "" {
		return "cache:sessions:all"
	}
	return fmt.Sprintf("cache:sessions:%s", day)
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

func rateKey(clientID string) string {
	return fmt.Sprintf("ratelimit:%s", clientID)
}

var _ ratelimit.Store = (*RedisCache)(nil)
