// Package storage implements the back-end-independent persistence contract
// (spec component C6): checkpoint CRUD plus append-only thread storage with
// optimistic concurrency.
package storage

import (
	"context"

	"github.com/nshkrdotcom/agentrt/thread"
)

// Key identifies a checkpoint: (agent_module, id).
type Key struct {
	AgentModule string
	ID          string
}

// ThreadPointer is the {id, rev} reference a Checkpoint carries instead of
// embedding the full thread body (spec §3, invariant: "checkpoint never
// embeds the full thread").
type ThreadPointer struct {
	ID  string
	Rev uint64
}

// Checkpoint is the persisted snapshot of an agent, minus any __thread__
// state key.
type Checkpoint struct {
	Version     int
	AgentModule string
	ID          string
	State       map[string]interface{}
	Thread      *ThreadPointer
}

// Storage is the interface hibernate/thaw (C12) and the server depend on.
// Implementations must be safe for concurrent callers across agents;
// per-thread writes use ExpectedRev for compare-and-swap semantics.
type Storage interface {
	PutCheckpoint(ctx context.Context, key Key, cp Checkpoint) error
	GetCheckpoint(ctx context.Context, key Key) (Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, key Key) error

	// AppendThread appends entries to the thread with the given id.
	// If expectedRev >= 0, the append is rejected with core.ErrConflict when
	// the thread's current rev does not match.
	AppendThread(ctx context.Context, id string, entries []thread.Entry, expectedRev int64) (*thread.Thread, error)
	LoadThread(ctx context.Context, id string) (*thread.Thread, error)
}
