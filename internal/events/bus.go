// Package events provides the typed in-process publish/subscribe channel the
// client core uses to notify UI consumers about queue and cache mutations.
// A Bus is owned by one cache manager instance; there is no process-global
// bus.
package events

import (
	"sync"

	"github.com/bestlist/vitara-core/internal/models"
)

// Kind tags the event union.
type Kind string

const (
	// KindQueueChanged fires whenever the durable mutation queue grows or
	// shrinks.
	KindQueueChanged Kind = "queue.changed"

	// KindCacheUpdated fires after a cache domain is mutated and persisted.
	KindCacheUpdated Kind = "cache.updated"

	// KindOfflineRequired fires when a fetch-type operation degraded to
	// cache-only because the device is offline or backgrounded.
	KindOfflineRequired Kind = "cache.offline_required"

	// KindSyncStarted / KindSyncCompleted bracket a sync engine pass.
	KindSyncStarted   Kind = "sync.started"
	KindSyncCompleted Kind = "sync.completed"
)

// Event is the tagged union delivered to subscribers. Only the fields
// relevant to the Kind are populated.
type Event struct {
	Kind      Kind
	Domain    string             // cache domain key, for cache.* events
	RecordIDs []string           // affected record ids, when known
	Pending   int                // queue length, for queue.changed
	Result    *models.SyncResult // for sync.completed
}

// Handler consumes published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

// Bus is a minimal publish/subscribe channel.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]subscription
	nextID   int
}

type subscription struct {
	kind    Kind // empty = all kinds
	handler Handler
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]subscription)}
}

// Subscribe registers a handler for every event kind. The returned function
// removes the subscription.
func (b *Bus) Subscribe(h Handler) func() {
	return b.subscribe("", h)
}

// SubscribeKind registers a handler for one event kind.
func (b *Bus) SubscribeKind(kind Kind, h Handler) func() {
	return b.subscribe(kind, h)
}

func (b *Bus) subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = subscription{kind: kind, handler: h}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers ev to all matching subscribers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.handlers))
	for _, sub := range b.handlers {
		if sub.kind == "" || sub.kind == ev.Kind {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		h(ev)
	}
}
