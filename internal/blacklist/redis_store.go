package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix    = "rsajwt:blacklist:"
	defaultRedisTimeout = 5 * time.Second
)

// RedisOptions configures a Redis-backed store
type RedisOptions struct {
	URL         string
	KeyPrefix   string
	MaxRetries  int
	PoolSize    int
	PoolTimeout time.Duration
	Timeout     time.Duration
}

// redisStore implements Store on Redis. Expiry is delegated to key TTLs, so
// Cleanup has nothing to do and several relay instances can share one set.
type redisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with PING
func NewRedisStore(opts RedisOptions) (Store, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL must be provided")
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 10
	}
	if opts.PoolTimeout == 0 {
		opts.PoolTimeout = 30 * time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultRedisTimeout
	}

	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	opt.MaxRetries = opts.MaxRetries
	opt.PoolSize = opts.PoolSize
	opt.PoolTimeout = opts.PoolTimeout
	opt.ReadTimeout = opts.Timeout
	opt.WriteTimeout = opts.Timeout

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisStore{
		client:  client,
		prefix:  opts.KeyPrefix,
		timeout: opts.Timeout,
	}, nil
}

func (r *redisStore) key(id string) string {
	return r.prefix + id
}

func (r *redisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// Add adds an entry that Redis expires at expiresAt
func (r *redisStore) Add(id string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.client.Set(ctx, r.key(id), expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// AddIfAbsent uses SETNX so concurrent relays agree on the first writer
func (r *redisStore) AddIfAbsent(id string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return true, nil
	}

	ctx, cancel := r.ctx()
	defer cancel()

	added, err := r.client.SetNX(ctx, r.key(id), expiresAt.Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx error: %w", err)
	}
	return added, nil
}

// Contains checks if the key exists
func (r *redisStore) Contains(id string) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return n > 0, nil
}

// Remove deletes the key
func (r *redisStore) Remove(id string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

// Cleanup is a no-op: Redis expires keys itself
func (r *redisStore) Cleanup() (int, error) {
	return 0, nil
}

// Size counts keys under the prefix with SCAN
func (r *redisStore) Size() (int, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan error: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

// Close closes the underlying client
func (r *redisStore) Close() error {
	return r.client.Close()
}
