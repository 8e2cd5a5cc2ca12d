// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/car-rental-backend/internal/config"
)

const defaultRedisOpTimeout = 2 * time.Second

// Redis holds the shared client behind rate limiting and the short-lived
// flags the auth flow sets: OTP request cooldowns and revoked token ids.
// Flag keys are namespaced with the configured prefix.
type Redis struct {
	Client  *redis.Client
	prefix  string
	timeout time.Duration
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	r := &Redis{
		Client:  redis.NewClient(opts),
		prefix:  cfg.KeyPrefix,
		timeout: cfg.OpTimeout,
	}
	if r.timeout <= 0 {
		r.timeout = defaultRedisOpTimeout
	}

	if err := r.Ping(ctx); err != nil {
		//nolint:errcheck // cleanup on connection failure
		_ = r.Client.Close()
		return nil, err
	}

	return r, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Claim sets key for ttl only if it is absent and reports whether this
// call set it.
func (r *Redis) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ok, err := r.Client.SetNX(ctx, r.key(key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (r *Redis) Mark(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.Client.Set(ctx, r.key(key), "1", ttl).Err(); err != nil {
		return fmt.Errorf("mark %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Marked(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.Client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.Client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}
