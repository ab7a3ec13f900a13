package interpreter

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nshkrdotcom/agentrt/core"
)

// Task tracks one in-flight async outcome the drain loop doesn't wait on —
// a Schedule directive's timer, or a long-running action's eventual result
// — that will re-enter the agent server as a new signal when it completes.
// Adapted from the teacher's in-process async task bookkeeping, repurposed
// here to key outcomes by agent id instead of HTTP request id.
type Task struct {
	ID        string
	AgentID   string
	StartedAt time.Time
}

// TaskStore tracks outstanding Tasks so a server can correlate a delayed
// signal delivery back to the directive that scheduled it.
type TaskStore interface {
	Put(t Task)
	Get(id string) (Task, bool)
	Delete(id string)
	Len() int
}

// memTaskStore is the default in-process TaskStore.
type memTaskStore struct {
	mu    sync.Mutex
	tasks map[string]Task
}

// NewTaskStore builds an empty in-process TaskStore.
func NewTaskStore() TaskStore {
	return &memTaskStore{tasks: make(map[string]Task)}
}

func (s *memTaskStore) Put(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

func (s *memTaskStore) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *memTaskStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

func (s *memTaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// NewTask allocates a Task for agentID with a fresh id.
func NewTask(agentID string) Task {
	return Task{ID: uuid.NewString(), AgentID: agentID, StartedAt: time.Now().UTC()}
}

// Complete removes a task from the store, returning ErrNotFound if it was
// already completed or never existed (e.g. a duplicate timer fire).
func Complete(store TaskStore, id string) (Task, error) {
	t, ok := store.Get(id)
	if !ok {
		return Task{}, core.NewErrorWithID("interpreter.Complete", core.KindInternal, id, core.ErrNotFound)
	}
	store.Delete(id)
	return t, nil
}
