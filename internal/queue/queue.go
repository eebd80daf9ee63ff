// Package queue implements the durable mutation queue: an append-only list
// of pending write operations persisted after every mutation, so work
// created while offline survives process restarts.
package queue

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bestlist/vitara-core/internal/errors"
	"github.com/bestlist/vitara-core/internal/events"
	"github.com/bestlist/vitara-core/internal/kvstore"
	"github.com/bestlist/vitara-core/internal/logging"
	"github.com/bestlist/vitara-core/internal/models"
	"github.com/bestlist/vitara-core/internal/uuid"
)

const (
	// QueueKey is the kvstore key holding the serialized queue.
	QueueKey = "offline_queue_v1"

	// StatusKey is the kvstore key holding last-sync metadata.
	StatusKey = "offline_queue_status_v1"

	// DefaultMaxSize caps the number of pending mutations.
	DefaultMaxSize = 500
)

// Queue is the durable mutation queue. All methods are safe for concurrent
// use; the queue is hydrated from the kvstore at most once per instance.
type Queue struct {
	store   kvstore.Store
	bus     *events.Bus
	maxSize int

	mu     sync.Mutex
	items  []*models.QueueItem
	loaded bool

	// onEnqueue, when set, is invoked asynchronously after a successful
	// enqueue so the caller never blocks on a sync attempt.
	onEnqueue func()

	log *logging.ComponentLogger
}

// New creates a Queue backed by store, publishing changes on bus.
func New(store kvstore.Store, bus *events.Bus) *Queue {
	return &Queue{
		store:   store,
		bus:     bus,
		maxSize: DefaultMaxSize,
		log:     logging.Component("offline_queue"),
	}
}

// SetOnEnqueue installs the fire-and-forget sync trigger. Must be called
// before the first Enqueue.
func (q *Queue) SetOnEnqueue(fn func()) {
	q.mu.Lock()
	q.onEnqueue = fn
	q.mu.Unlock()
}

// Load hydrates the queue from persistent storage. It is idempotent: the
// first call reads the kvstore, later calls return immediately. A corrupt
// persisted queue is discarded rather than wedging every enqueue.
func (q *Queue) Load() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadLocked()
}

func (q *Queue) loadLocked() error {
	if q.loaded {
		return nil
	}

	raw, found, err := q.store.Get(QueueKey)
	if err != nil {
		return errors.Wrap(errors.ErrQueueLoad, "failed to load offline queue", err)
	}

	if found && raw != "" {
		var items []*models.QueueItem
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			q.log.Warn("Discarding corrupt persisted queue", map[string]interface{}{"error": err.Error()})
			items = nil
		}
		q.items = items
	}

	q.loaded = true
	q.log.Info("Loaded queue", map[string]interface{}{"items": len(q.items)})
	return nil
}

// persistLocked writes the full queue back to the kvstore.
func (q *Queue) persistLocked() error {
	data, err := json.Marshal(q.items)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "failed to serialize queue", err)
	}
	if err := q.store.Set(QueueKey, string(data)); err != nil {
		return errors.Wrap(errors.ErrStorage, "failed to persist queue", err)
	}
	return nil
}

// Enqueue appends a mutation and persists the queue. It is callable while
// offline; when an onEnqueue trigger is installed it fires asynchronously so
// UI actions never wait on network I/O.
func (q *Queue) Enqueue(op models.Operation, payload json.RawMessage) (string, error) {
	q.mu.Lock()
	if err := q.loadLocked(); err != nil {
		q.mu.Unlock()
		return "", err
	}

	if len(q.items) >= q.maxSize {
		q.mu.Unlock()
		return "", errors.New(errors.ErrQueueFull, "offline queue is full")
	}

	item := &models.QueueItem{
		ID:         uuid.New(),
		Type:       op,
		Payload:    payload,
		CreatedAt:  time.Now().Unix(),
		RetryCount: 0,
		MaxRetries: models.DefaultMaxRetries,
	}

	q.items = append(q.items, item)
	if err := q.persistLocked(); err != nil {
		// Roll back the in-memory append so state matches disk.
		q.items = q.items[:len(q.items)-1]
		q.mu.Unlock()
		return "", err
	}
	pending := len(q.items)
	trigger := q.onEnqueue
	q.mu.Unlock()

	q.log.Info("Enqueued mutation", map[string]interface{}{
		"type": string(item.Type),
		"id":   item.ID,
	})

	q.bus.Publish(events.Event{Kind: events.KindQueueChanged, Pending: pending})

	if trigger != nil {
		go trigger()
	}

	return item.ID, nil
}

// Dequeue removes the item with the given id and persists the queue.
func (q *Queue) Dequeue(id string) error {
	q.mu.Lock()
	if err := q.loadLocked(); err != nil {
		q.mu.Unlock()
		return err
	}

	idx := -1
	for i, item := range q.items {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return errors.New(errors.ErrItemNotFound, "queue item not found: "+id)
	}

	q.items = append(q.items[:idx], q.items[idx+1:]...)
	if err := q.persistLocked(); err != nil {
		q.mu.Unlock()
		return err
	}
	pending := len(q.items)
	q.mu.Unlock()

	q.log.Info("Removed item from queue", map[string]interface{}{"id": id})
	q.bus.Publish(events.Event{Kind: events.KindQueueChanged, Pending: pending})
	return nil
}

// Update persists a mutated item (retry count) back into its queue slot.
// Items that are no longer queued are ignored.
func (q *Queue) Update(item *models.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.loadLocked(); err != nil {
		return err
	}

	for i, existing := range q.items {
		if existing.ID == item.ID {
			q.items[i] = item
			return q.persistLocked()
		}
	}
	return nil
}

// Snapshot returns the queued items in enqueue order. The returned slice is
// a copy; the sync engine iterates it while the live queue may shrink.
func (q *Queue) Snapshot() ([]*models.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.loadLocked(); err != nil {
		return nil, err
	}

	out := make([]*models.QueueItem, len(q.items))
	for i, item := range q.items {
		copied := *item
		out[i] = &copied
	}
	return out, nil
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.loadLocked(); err != nil {
		return 0
	}
	return len(q.items)
}

// Clear removes all pending items.
func (q *Queue) Clear() error {
	q.mu.Lock()
	q.items = nil
	q.loaded = true
	err := q.persistLocked()
	q.mu.Unlock()
	if err != nil {
		return err
	}

	q.log.Info("Queue cleared")
	q.bus.Publish(events.Event{Kind: events.KindQueueChanged, Pending: 0})
	return nil
}

// SaveStatus persists last-sync metadata after a sync pass.
func (q *Queue) SaveStatus(result models.SyncResult) error {
	record := models.SyncStatusRecord{
		LastSync: time.Now().Unix(),
		Results:  result,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(errors.ErrStorage, "failed to serialize sync status", err)
	}
	return q.store.Set(StatusKey, string(data))
}

// LastStatus returns the persisted last-sync metadata, or nil when no sync
// has completed yet.
func (q *Queue) LastStatus() *models.SyncStatusRecord {
	raw, found, err := q.store.Get(StatusKey)
	if err != nil || !found {
		return nil
	}
	var record models.SyncStatusRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil
	}
	return &record
}
