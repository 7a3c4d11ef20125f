// Package lease hands out short exclusive leases so that only one replica
// runs a periodic job per tick.
package lease

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis acquires leases with SET NX PX. A lease is never released early;
// it simply expires.
type Redis struct {
	client *redis.Client
	owner  string
}

func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisWithClient(client), nil
}

func NewRedisWithClient(client *redis.Client) *Redis {
	owner, err := os.Hostname()
	if err != nil || owner == "" {
		owner = "unknown"
	}
	return &Redis{client: client, owner: fmt.Sprintf("%s/%d", owner, os.Getpid())}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	acquired, err := r.client.SetNX(ctx, key, r.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	return acquired, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Local is the single-process fallback used when no Redis is configured.
type Local struct{}

func (Local) Acquire(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}
