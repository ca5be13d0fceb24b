package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"popup-service/internal/popup"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps one tab's popup state in a Redis hash. The hash
// expires TTL after the last write, which is when the tab session ends.
type SessionStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

var (
	_ popup.SessionStateStore = (*SessionStore)(nil)
	_ popup.Toucher           = (*SessionStore)(nil)
)

func NewSessionStore(rdb *redis.Client, tabID string, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, key: fmt.Sprintf("popup:tab:%s:state", tabID), ttl: ttl}
}

// SessionStoreFactory binds a client and TTL into a popup.StoreFactory.
func SessionStoreFactory(rdb *redis.Client, ttl time.Duration) popup.StoreFactory {
	return func(tabID string) popup.SessionStateStore {
		return NewSessionStore(rdb, tabID, ttl)
	}
}

// Get reads a field and pushes the hash expiry out in the same round trip,
// so evaluations that write nothing still keep a live tab's state.
func (s *SessionStore) Get(ctx context.Context, field string) (string, bool, error) {
	pipe := s.rdb.Pipeline()
	get := pipe.HGet(ctx, s.key, field)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", false, fmt.Errorf("session get %s: %w", field, err)
	}

	v, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session get %s: %w", field, err)
	}
	return v, true, nil
}

// Touch pushes the hash expiry out without changing any field.
func (s *SessionStore) Touch(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	if err := s.rdb.Expire(ctx, s.key, s.ttl).Err(); err != nil {
		return fmt.Errorf("session touch: %w", err)
	}
	return nil
}

func (s *SessionStore) Set(ctx context.Context, field, value string) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.key, field, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session set %s: %w", field, err)
	}
	return nil
}
