package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"svgkit/internal/config"
	u "svgkit/internal/logging"
)

// opTimeout bounds every Redis round trip so an unreachable cache never
// delays a conversion by more than this.
const opTimeout = time.Second

// Store keeps rendered PNGs in Redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps an existing client. A non-positive ttl defaults to one minute.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// FromConfig returns nil when the cache is disabled.
func FromConfig(cfg config.CacheConfig) *Store {
	if !cfg.Enabled {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisHost,
		DB:          cfg.RedisDB,
		DialTimeout: opTimeout,
		ReadTimeout: opTimeout,
		MaxRetries:  -1,
	})
	u.Debug("Render cache enabled", "addr", cfg.RedisHost, "db", cfg.RedisDB, "ttl", cfg.TTL.String())
	return New(rdb, cfg.TTL)
}

// Get returns nil, nil on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Set stores data under key for the configured TTL.
func (s *Store) Set(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.rdb.Set(ctx, key, data, s.ttl).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
