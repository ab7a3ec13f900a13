// Package persist implements the hibernate/thaw façade (spec component
// C12): hibernate flushes the unflushed journal tail then writes a
// checkpoint that never embeds the full thread; thaw reads the checkpoint,
// reloads the thread by revision, and rebuilds the agent.
package persist

import (
	"context"

	"github.com/nshkrdotcom/agentrt/agent"
	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/storage"
	"github.com/nshkrdotcom/agentrt/thread"
)

const threadStateKey = "__thread__"

// Factory rebuilds an agent from scratch (the equivalent of
// agent_module.new(opts)), before Thaw overlays the checkpointed state.
type Factory func() (*agent.Agent, error)

// Hibernate flushes ag's unflushed thread tail (if any) to store, then
// writes a checkpoint of ag's state with __thread__ replaced by a
// {id, rev} pointer (spec §3, §4.8).
func Hibernate(ctx context.Context, store storage.Storage, key storage.Key, ag *agent.Agent, lastFlushedRev uint64) (storage.Checkpoint, error) {
	state := make(map[string]interface{}, len(ag.State))
	for k, v := range ag.State {
		state[k] = v
	}

	var ptr *storage.ThreadPointer
	if th, ok := state[threadStateKey].(*thread.Thread); ok && th != nil {
		tail := th.EntriesAfter(lastFlushedRev)
		flushed := th
		if len(tail) > 0 {
			var err error
			flushed, err = store.AppendThread(ctx, th.ID, tail, int64(lastFlushedRev))
			if err != nil {
				return storage.Checkpoint{}, core.NewErrorWithID("persist.Hibernate", core.KindInternal, key.ID, err)
			}
		}
		ptr = &storage.ThreadPointer{ID: flushed.ID, Rev: flushed.Rev}
		delete(state, threadStateKey)
	}

	cp := storage.Checkpoint{
		Version:     1,
		AgentModule: key.AgentModule,
		ID:          key.ID,
		State:       state,
		Thread:      ptr,
	}
	if err := store.PutCheckpoint(ctx, key, cp); err != nil {
		return storage.Checkpoint{}, core.NewErrorWithID("persist.Hibernate", core.KindInternal, key.ID, err)
	}
	return cp, nil
}

// Thaw reads the checkpoint at key, rebuilds the agent via factory, overlays
// the checkpointed state, and — if the checkpoint carries a thread pointer —
// reloads the thread and validates its revision before reattaching it (spec
// §4.8's round-trip law: thaw(hibernate(agent)) reproduces agent's
// observable state).
func Thaw(ctx context.Context, store storage.Storage, key storage.Key, factory Factory) (*agent.Agent, error) {
	cp, err := store.GetCheckpoint(ctx, key)
	if err != nil {
		return nil, err
	}

	ag, err := factory()
	if err != nil {
		return nil, core.NewErrorWithID("persist.Thaw", core.KindInternal, key.ID, err)
	}

	ag, err = agent.Set(ag, cp.State)
	if err != nil {
		return nil, err
	}

	if cp.Thread != nil {
		th, err := store.LoadThread(ctx, cp.Thread.ID)
		if err != nil {
			return nil, core.NewErrorWithID("persist.Thaw", core.KindInternal, key.ID, err)
		}
		if th.Rev < cp.Thread.Rev {
			return nil, core.NewErrorWithID("persist.Thaw", core.KindInternal, key.ID, core.ErrThreadMismatch)
		}
		ag, err = agent.Set(ag, map[string]interface{}{threadStateKey: th})
		if err != nil {
			return nil, err
		}
	}

	return ag, nil
}
