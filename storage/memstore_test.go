package storage

import (
	"context"
	"testing"

	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	key := Key{AgentModule: "counter", ID: "a1"}

	_, err := store.GetCheckpoint(ctx, key)
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))

	cp := Checkpoint{Version: 1, AgentModule: "counter", ID: "a1", State: map[string]interface{}{"counter": 2}}
	require.NoError(t, store.PutCheckpoint(ctx, key, cp))

	got, err := store.GetCheckpoint(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, cp, got)

	require.NoError(t, store.DeleteCheckpoint(ctx, key))
	_, err = store.GetCheckpoint(ctx, key)
	require.Error(t, err)
}

func TestMemStoreAppendThreadOptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	th, err := store.AppendThread(ctx, "t1", []thread.Entry{{Kind: "a"}}, -1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), th.Rev)

	_, err = store.AppendThread(ctx, "t1", []thread.Entry{{Kind: "b"}}, 0)
	require.Error(t, err, "stale expected rev should conflict")

	th2, err := store.AppendThread(ctx, "t1", []thread.Entry{{Kind: "b"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), th2.Rev)

	loaded, err := store.LoadThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), loaded.Rev)
}

func TestMemStoreLoadMissingThread(t *testing.T) {
	store := NewMemStore()
	_, err := store.LoadThread(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}
