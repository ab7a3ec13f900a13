// Package thread implements the append-only interaction journal (spec
// component C5): monotonic seq per entry, rev = len(entries).
package thread

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one journalled interaction.
type Entry struct {
	ID      string                 `json:"id"`
	Seq     uint64                 `json:"seq"`
	At      int64                  `json:"at"` // unix millis
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload"`
	Refs    map[string]interface{} `json:"refs"`
}

// Thread is the value-semantic append-only log. Append never mutates an
// existing Thread; it returns a new one.
type Thread struct {
	ID        string    `json:"id"`
	Rev       uint64    `json:"rev"`
	Entries   []Entry   `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// New creates an empty thread with the given id (or a generated one).
func New(id string) *Thread {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Thread{ID: id, Rev: 0, Entries: nil, CreatedAt: now, UpdatedAt: now}
}

// Append returns a new Thread with entries appended, assigning sequential
// Seq starting at len(t.Entries), defaulting At/ID when absent (spec §4.7).
// rev of the result is len(result.Entries).
func (t *Thread) Append(entries ...Entry) *Thread {
	next := &Thread{
		ID:        t.ID,
		CreatedAt: t.CreatedAt,
		Metadata:  t.Metadata,
	}
	next.Entries = make([]Entry, len(t.Entries), len(t.Entries)+len(entries))
	copy(next.Entries, t.Entries)

	now := time.Now().UTC()
	base := uint64(len(t.Entries))
	for i, e := range entries {
		e.Seq = base + uint64(i)
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.At == 0 {
			e.At = now.UnixMilli()
		}
		if e.Payload == nil {
			e.Payload = map[string]interface{}{}
		}
		if e.Refs == nil {
			e.Refs = map[string]interface{}{}
		}
		next.Entries = append(next.Entries, e)
	}
	next.Rev = uint64(len(next.Entries))
	next.UpdatedAt = now
	return next
}

// EntriesAfter returns the entries whose Seq is >= fromRev, used to flush
// only the unflushed tail during hibernate.
func (t *Thread) EntriesAfter(fromRev uint64) []Entry {
	if fromRev >= uint64(len(t.Entries)) {
		return nil
	}
	return t.Entries[fromRev:]
}
