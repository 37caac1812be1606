package cacheinfra

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore talks to a redis server. The client is created on first use and
// dropped again when the connection fails, so the next call dials afresh.
type RedisStore struct {
	opts   *redis.Options
	logger *slog.Logger

	mu     sync.Mutex
	client *redis.Client
}

// NewRedisStore parses the redis URL without dialing.
func NewRedisStore(cfg Config) (*RedisStore, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverRedis
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid redis url").
			WithTextCode("CACHE_CONFIG_INVALID")
	}

	return &RedisStore{opts: opts, logger: cfg.logger()}, nil
}

func (s *RedisStore) conn(ctx context.Context) (*redis.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	client := redis.NewClient(s.opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.CategoryExternal, "redis connection failed").
			WithTextCode("CACHE_UNAVAILABLE")
	}

	s.logger.Info("redis connected", "addr", s.opts.Addr)
	s.client = client
	return client, nil
}

// reset drops the client after a connection level failure.
func (s *RedisStore) reset(client *redis.Client, err error) {
	if !isConnError(err) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == client {
		s.logger.Warn("redis connection dropped", "error", err)
		_ = s.client.Close()
		s.client = nil
	}
}

func isConnError(err error) bool {
	if errors.Is(err, redis.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Get returns the stored bytes or ErrMiss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		s.reset(client, err)
		return nil, errors.Wrap(err, errors.CategoryExternal, "redis get failed")
	}
	return data, nil
}

// Set stores value with an EX expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	client, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if err := client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.reset(client, err)
		return errors.Wrap(err, errors.CategoryExternal, "redis set failed")
	}
	return nil
}

// Delete removes the given keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	client, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if err := client.Del(ctx, keys...).Err(); err != nil {
		s.reset(client, err)
		return errors.Wrap(err, errors.CategoryExternal, "redis del failed")
	}
	return nil
}

// Scan runs one SCAN step with MATCH and COUNT.
func (s *RedisStore) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	client, err := s.conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	keys, next, err := client.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		s.reset(client, err)
		return nil, 0, errors.Wrap(err, errors.CategoryExternal, "redis scan failed")
	}
	return keys, next, nil
}

// Close releases the connection pool if one was opened.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
