// Package ratelimit throttles repeated actions per key through Redis.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown allows one action per key per window.
type Cooldown interface {
	// Allow reports whether the action may proceed now, starting a new
	// window when it does.
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
	// Release ends the current window of key early.
	Release(ctx context.Context, key string) error
}

// RedisCooldown implements Cooldown with SET NX PX.
type RedisCooldown struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCooldown returns a Cooldown storing keys under "cooldown:".
func NewRedisCooldown(client redis.UniversalClient) *RedisCooldown {
	return &RedisCooldown{client: client, prefix: "cooldown:"}
}

// Allow always permits when window is not positive.
func (c *RedisCooldown) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	return c.client.SetNX(ctx, c.prefix+key, 1, window).Result()
}

func (c *RedisCooldown) Release(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
