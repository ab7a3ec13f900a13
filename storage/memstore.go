package storage

import (
	"context"
	"sync"

	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/thread"
)

// MemStore is the in-memory Storage backend, grounded on the teacher's
// in-process memory store: a mutex-guarded map good enough for single-host
// tests and the default runtime (spec §1 calls an in-memory backend
// "sufficient for testing").
type MemStore struct {
	mu          sync.RWMutex
	checkpoints map[Key]Checkpoint
	threads     map[string]*thread.Thread
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		checkpoints: make(map[Key]Checkpoint),
		threads:     make(map[string]*thread.Thread),
	}
}

func (m *MemStore) PutCheckpoint(_ context.Context, key Key, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[key] = cp
	return nil
}

func (m *MemStore) GetCheckpoint(_ context.Context, key Key) (Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.checkpoints[key]
	if !ok {
		return Checkpoint{}, core.NewError("MemStore.GetCheckpoint", core.KindInternal, core.ErrNotFound)
	}
	return cp, nil
}

func (m *MemStore) DeleteCheckpoint(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, key)
	return nil
}

func (m *MemStore) AppendThread(_ context.Context, id string, entries []thread.Entry, expectedRev int64) (*thread.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.threads[id]
	if !ok {
		cur = thread.New(id)
	}
	if expectedRev >= 0 && uint64(expectedRev) != cur.Rev {
		return nil, core.NewErrorWithID("MemStore.AppendThread", core.KindInternal, id, core.ErrConflict)
	}
	next := cur.Append(entries...)
	m.threads[id] = next
	return next, nil
}

func (m *MemStore) LoadThread(_ context.Context, id string) (*thread.Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.threads[id]
	if !ok {
		return nil, core.NewErrorWithID("MemStore.LoadThread", core.KindInternal, id, core.ErrMissingThread)
	}
	return t, nil
}
