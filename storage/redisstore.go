package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/thread"
)

// RedisStore is the optional distributed-friendly Storage backend, grounded
// on the teacher's Redis-backed registry/discovery clients: checkpoints are
// plain string keys, threads use WATCH-based optimistic concurrency instead
// of a Lua script, matching go-redis's documented CAS recipe.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a RedisStore over an existing client. prefix
// namespaces keys (e.g. "agentrt:") the way the teacher's Redis clients
// namespace discovery/memory keys per environment.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) checkpointKey(key Key) string {
	return fmt.Sprintf("%scheckpoint:%s:%s", r.prefix, key.AgentModule, key.ID)
}

func (r *RedisStore) threadKey(id string) string {
	return fmt.Sprintf("%sthread:%s", r.prefix, id)
}

func (r *RedisStore) PutCheckpoint(ctx context.Context, key Key, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return core.NewError("RedisStore.PutCheckpoint", core.KindInternal, err)
	}
	if err := r.client.Set(ctx, r.checkpointKey(key), data, 0).Err(); err != nil {
		return core.NewError("RedisStore.PutCheckpoint", core.KindInternal, err)
	}
	return nil
}

func (r *RedisStore) GetCheckpoint(ctx context.Context, key Key) (Checkpoint, error) {
	data, err := r.client.Get(ctx, r.checkpointKey(key)).Bytes()
	if err == redis.Nil {
		return Checkpoint{}, core.NewError("RedisStore.GetCheckpoint", core.KindInternal, core.ErrNotFound)
	}
	if err != nil {
		return Checkpoint{}, core.NewError("RedisStore.GetCheckpoint", core.KindInternal, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, core.NewError("RedisStore.GetCheckpoint", core.KindInternal, err)
	}
	return cp, nil
}

func (r *RedisStore) DeleteCheckpoint(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, r.checkpointKey(key)).Err(); err != nil {
		return core.NewError("RedisStore.DeleteCheckpoint", core.KindInternal, err)
	}
	return nil
}

// AppendThread uses WATCH on the thread key so concurrent appends from
// other agents/processes fail with ErrConflict instead of silently
// clobbering each other's entries.
func (r *RedisStore) AppendThread(ctx context.Context, id string, entries []thread.Entry, expectedRev int64) (*thread.Thread, error) {
	key := r.threadKey(id)
	var result *thread.Thread

	txf := func(tx *redis.Tx) error {
		cur := thread.New(id)
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			if uerr := json.Unmarshal(data, cur); uerr != nil {
				return uerr
			}
		}
		if expectedRev >= 0 && uint64(expectedRev) != cur.Rev {
			return core.NewErrorWithID("RedisStore.AppendThread", core.KindInternal, id, core.ErrConflict)
		}
		next := cur.Append(entries...)
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		if _, ok := err.(*core.RuntimeError); ok {
			return nil, err
		}
		return nil, core.NewErrorWithID("RedisStore.AppendThread", core.KindInternal, id, err)
	}
	return result, nil
}

func (r *RedisStore) LoadThread(ctx context.Context, id string) (*thread.Thread, error) {
	data, err := r.client.Get(ctx, r.threadKey(id)).Bytes()
	if err == redis.Nil {
		return nil, core.NewErrorWithID("RedisStore.LoadThread", core.KindInternal, id, core.ErrMissingThread)
	}
	if err != nil {
		return nil, core.NewErrorWithID("RedisStore.LoadThread", core.KindInternal, id, err)
	}
	t := &thread.Thread{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, core.NewError("RedisStore.LoadThread", core.KindInternal, err)
	}
	return t, nil
}
