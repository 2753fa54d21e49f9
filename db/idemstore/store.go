// Package idemstore remembers processed event ids so redelivered messages are applied once.
package idemstore

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps keys in Redis for ttl.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, errors.WithStack(err)
	}
	return ok, nil
}

func (s *RedisStore) Forget(ctx context.Context, key string) error {
	return errors.WithStack(s.client.Del(ctx, key).Err())
}

// LocalStore keeps the most recent keys in process. Keys older than ttl are treated as absent.
type LocalStore struct {
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewLocalStore(size int, ttl time.Duration) (*LocalStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create idempotency cache")
	}
	return &LocalStore{cache: cache, ttl: ttl, now: time.Now}, nil
}

func (s *LocalStore) SetIfAbsent(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if v, ok := s.cache.Get(key); ok {
		if s.ttl <= 0 || now.Sub(v.(time.Time)) < s.ttl {
			return false, nil
		}
	}
	s.cache.Add(key, now)
	return true, nil
}

func (s *LocalStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(key)
	return nil
}
