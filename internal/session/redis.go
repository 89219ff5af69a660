package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/account-garden/internal/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys in a shared Redis database.
const DefaultKeyPrefix = "account-garden:session:"

// RedisStore keeps sessions in Redis so that any replica can serve a request.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. An empty prefix selects DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + id
}

func (s *RedisStore) flashKey(id string) string {
	return s.prefix + id + ":flash"
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		s.observe("get", "miss")
		return nil, ErrSessionNotFound
	}
	if err != nil {
		s.observe("get", "error")
		return nil, fmt.Errorf("get session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.observe("get", "error")
		return nil, fmt.Errorf("decode session: %w", err)
	}

	s.observe("get", "ok")
	return &rec, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, id string, rec *Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.recordKey(id), raw, ttl).Err(); err != nil {
		s.observe("save", "error")
		return fmt.Errorf("save session: %w", err)
	}

	s.observe("save", "ok")
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.recordKey(id), s.flashKey(id)).Err(); err != nil {
		s.observe("delete", "error")
		return fmt.Errorf("delete session: %w", err)
	}

	s.observe("delete", "ok")
	return nil
}

// PutFlash implements Store.
func (s *RedisStore) PutFlash(ctx context.Context, id string, flash Flash, ttl time.Duration) error {
	raw, err := json.Marshal(flash)
	if err != nil {
		return fmt.Errorf("encode flash: %w", err)
	}

	if err := s.client.Set(ctx, s.flashKey(id), raw, ttl).Err(); err != nil {
		s.observe("put_flash", "error")
		return fmt.Errorf("put flash: %w", err)
	}

	s.observe("put_flash", "ok")
	return nil
}

// TakeFlash implements Store. GETDEL reads and removes the flash in one step.
func (s *RedisStore) TakeFlash(ctx context.Context, id string) (Flash, error) {
	raw, err := s.client.GetDel(ctx, s.flashKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		s.observe("take_flash", "miss")
		return Flash{}, nil
	}
	if err != nil {
		s.observe("take_flash", "error")
		return Flash{}, fmt.Errorf("take flash: %w", err)
	}

	var flash Flash
	if err := json.Unmarshal(raw, &flash); err != nil {
		s.observe("take_flash", "error")
		return Flash{}, fmt.Errorf("decode flash: %w", err)
	}

	s.observe("take_flash", "ok")
	return flash, nil
}

// Ping checks connectivity for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) observe(operation, result string) {
	metrics.SessionOperations.WithLabelValues("redis", operation, result).Inc()
}
