package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nshkrdotcom/agentrt/core"
)

// RedisRegistry is the optional cross-process backend for C9: instead of a
// Go-typed Handle it registers id → owner (an opaque string, e.g. a node
// address) with a lease TTL, so a crashed process's registrations expire on
// their own rather than requiring an explicit deregister (spec §4.5's
// "automatic deregistration on process death", grounded on the teacher's
// Redis-backed discovery heartbeat pattern).
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisRegistry builds a RedisRegistry. ttl is the lease duration; the
// owning process must call Renew more often than ttl to stay registered.
func NewRedisRegistry(client *redis.Client, prefix string, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRegistry) key(id string) string {
	return fmt.Sprintf("%sagent:%s", r.prefix, id)
}

// Register atomically claims id for owner, failing with ErrDuplicateID if
// another owner's lease is still live.
func (r *RedisRegistry) Register(ctx context.Context, id, owner string) error {
	ok, err := r.client.SetNX(ctx, r.key(id), owner, r.ttl).Result()
	if err != nil {
		return core.NewErrorWithID("RedisRegistry.Register", core.KindInternal, id, err)
	}
	if !ok {
		return core.NewErrorWithID("RedisRegistry.Register", core.KindConfig, id, core.ErrDuplicateID)
	}
	return nil
}

// Renew extends the lease, the heartbeat a live agent server issues
// periodically so it isn't reaped while still running.
func (r *RedisRegistry) Renew(ctx context.Context, id string) error {
	ok, err := r.client.Expire(ctx, r.key(id), r.ttl).Result()
	if err != nil {
		return core.NewErrorWithID("RedisRegistry.Renew", core.KindInternal, id, err)
	}
	if !ok {
		return core.NewErrorWithID("RedisRegistry.Renew", core.KindInternal, id, core.ErrNotFound)
	}
	return nil
}

// Deregister releases id immediately.
func (r *RedisRegistry) Deregister(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return core.NewErrorWithID("RedisRegistry.Deregister", core.KindInternal, id, err)
	}
	return nil
}

// Lookup returns the current owner string for id.
func (r *RedisRegistry) Lookup(ctx context.Context, id string) (string, error) {
	owner, err := r.client.Get(ctx, r.key(id)).Result()
	if err == redis.Nil {
		return "", core.NewErrorWithID("RedisRegistry.Lookup", core.KindInternal, id, core.ErrNotFound)
	}
	if err != nil {
		return "", core.NewErrorWithID("RedisRegistry.Lookup", core.KindInternal, id, err)
	}
	return owner, nil
}
