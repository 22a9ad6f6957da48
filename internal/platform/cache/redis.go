package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"accountsvc/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// Connect opens the Redis client used for the session-state cache. The caller
// owns the handle and closes it at shutdown.
func Connect(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return rdb, nil
}

const sessionKeyPrefix = "session_state:"

// SessionStore is a read-through cache of the logged_in flag, keyed by
// username. The database remains the authority: flag transitions evict the
// key, and entries carry a TTL so a stale key never outlives a rename or
// delete by more than the configured window.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, username string) (bool, bool, error) {
	val, err := s.rdb.Get(ctx, sessionKeyPrefix+username).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("reading session state from redis: %w", err)
	}
	loggedIn, err := strconv.ParseBool(val)
	if err != nil {
		return false, false, fmt.Errorf("unexpected session state value %q: %w", val, err)
	}
	return loggedIn, true, nil
}

func (s *SessionStore) Set(ctx context.Context, username string, loggedIn bool) error {
	return s.rdb.Set(ctx, sessionKeyPrefix+username, strconv.FormatBool(loggedIn), s.ttl).Err()
}

func (s *SessionStore) Evict(ctx context.Context, username string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+username).Err()
}
