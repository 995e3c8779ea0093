package skipcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the Redis-backed skip-cache storage named in spec.md 5,
// grounded on the redis/go-redis/v9 client the retrieval pack's
// compozy-compozy and cloudposse-atmos manifests both depend on.
type Redis struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func (r *Redis) key(key string) string {
	if r.Prefix == "" {
		return "cigen:skip:" + key
	}
	return r.Prefix + key
}

// Has reports whether key has been marked done.
func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.Client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Put marks key as done, with an optional TTL.
func (r *Redis) Put(ctx context.Context, key string) error {
	return r.Client.Set(ctx, r.key(key), "1", r.TTL).Err()
}
