package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces blacklist keys so the instance can be shared.
const keyPrefix = "gatekeeper:blacklist:"

// Redis is the remote blacklist. The key TTL mirrors the token's natural
// expiry, so purging is entirely the server's job and no sweep runs here.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the given address and verifies the connection with a
// bounded ping before returning.
func NewRedis(ctx context.Context, addr, password string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("tokenstore: redis ping: %w", err)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Add(ctx context.Context, fingerprint string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past its natural expiry; nothing to blacklist.
		return nil
	}
	return r.client.Set(ctx, keyPrefix+fingerprint, 1, ttl).Err()
}

func (r *Redis) Contains(ctx context.Context, fingerprint string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+fingerprint).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Delete(ctx context.Context, fingerprint string) error {
	return r.client.Del(ctx, keyPrefix+fingerprint).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
