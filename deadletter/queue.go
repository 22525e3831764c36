package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/axonkit/uowkernel/phase"
	"github.com/axonkit/uowkernel/store"
)

// Record is a single dead-lettered envelope: the phase and cause it failed
// with, plus the raw payload for later inspection or replay.
type Record struct {
	EnvelopeID string      `json:"envelope_id"`
	Phase      phase.Phase `json:"phase"`
	Cause      string      `json:"cause"`
	Payload    []byte      `json:"payload,omitempty"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

// Queue is a dead-letter queue backed by a store.Store. It maintains an
// in-memory index so List triggers I/O only on its first call, which loads
// existing records from the backing store; Enqueue writes through to the
// backing store immediately, since on_error hooks are fire-and-forget and
// have no later opportunity to flush.
type Queue struct {
	backing store.Store

	mu          sync.RWMutex
	records     map[string]Record
	dirty       map[string]bool
	bootstraped bool
}

// New creates a Queue atop the given backing Store.
func New(backing store.Store) *Queue {
	return &Queue{
		backing: backing,
		records: make(map[string]Record),
		dirty:   make(map[string]bool),
	}
}

func recordKey(envelopeID string) string {
	return store.NamespaceDeadLetters + "/" + envelopeID
}

// Enqueue records envelopeID as dead-lettered with the given phase and
// cause, and writes it through to the backing store.
func (q *Queue) Enqueue(ctx context.Context, envelopeID string, failedPhase phase.Phase, cause error, payload []byte) error {
	rec := Record{
		EnvelopeID: envelopeID,
		Phase:      failedPhase,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	if cause != nil {
		rec.Cause = cause.Error()
	}

	q.mu.Lock()
	q.records[envelopeID] = rec
	q.dirty[envelopeID] = true
	q.mu.Unlock()

	return q.Flush(ctx)
}

// Flush persists every dirty record to the backing store.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	var entries []store.Entry
	for id := range q.dirty {
		rec := q.records[id]
		data, err := json.Marshal(rec)
		if err != nil {
			q.mu.Unlock()
			return fmt.Errorf("deadletter: marshal %s: %w", id, err)
		}
		entries = append(entries, store.Entry{Key: recordKey(id), Value: data})
	}
	q.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}
	if err := q.backing.Save(ctx, entries...); err != nil {
		return fmt.Errorf("deadletter: flush: %w", err)
	}

	q.mu.Lock()
	for _, e := range entries {
		delete(q.dirty, e.Key[len(store.NamespaceDeadLetters)+1:])
	}
	q.mu.Unlock()
	return nil
}

// bootstrap loads existing records from the backing store into the
// in-memory index, once.
func (q *Queue) bootstrap(ctx context.Context) error {
	q.mu.Lock()
	if q.bootstraped {
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	keys, err := q.backing.List(ctx)
	if err != nil {
		return fmt.Errorf("deadletter: bootstrap list: %w", err)
	}

	var toLoad []string
	prefix := store.NamespaceDeadLetters + "/"
	for _, k := range keys {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			toLoad = append(toLoad, k)
		}
	}

	var entries []store.Entry
	if len(toLoad) > 0 {
		entries, err = q.backing.Load(ctx, toLoad...)
		if err != nil {
			return fmt.Errorf("deadletter: bootstrap load: %w", err)
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range entries {
		var rec Record
		if err := json.Unmarshal(e.Value, &rec); err != nil {
			continue
		}
		q.records[rec.EnvelopeID] = rec
	}
	q.bootstraped = true
	return nil
}

// List returns every dead-lettered record, ordered by envelope ID.
func (q *Queue) List(ctx context.Context) ([]Record, error) {
	if err := q.bootstrap(ctx); err != nil {
		return nil, err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Record, 0, len(q.records))
	for _, rec := range q.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnvelopeID < out[j].EnvelopeID })
	return out, nil
}

// Drain returns every dead-lettered record and removes them from both the
// in-memory index and the backing store.
func (q *Queue) Drain(ctx context.Context) ([]Record, error) {
	records, err := q.List(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(records))
	for i, rec := range records {
		keys[i] = recordKey(rec.EnvelopeID)
	}
	if len(keys) > 0 {
		if err := q.backing.Delete(ctx, keys...); err != nil {
			return nil, fmt.Errorf("deadletter: drain: %w", err)
		}
	}

	q.mu.Lock()
	for _, rec := range records {
		delete(q.records, rec.EnvelopeID)
		delete(q.dirty, rec.EnvelopeID)
	}
	q.mu.Unlock()

	return records, nil
}
