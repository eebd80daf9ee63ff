package queue

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/bestlist/vitara-core/internal/errors"
	"github.com/bestlist/vitara-core/internal/events"
	"github.com/bestlist/vitara-core/internal/kvstore"
	"github.com/bestlist/vitara-core/internal/models"
)

func newTestQueue(t *testing.T) (*Queue, kvstore.Store, *events.Bus) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	bus := events.NewBus()
	q := New(store, bus)
	if err := q.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return q, store, bus
}

func TestEnqueuePersistsImmediately(t *testing.T) {
	q, store, _ := newTestQueue(t)

	id, err := q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{"name":"Tacos"}`))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty item id")
	}

	raw, found, err := store.Get(QueueKey)
	if err != nil || !found {
		t.Fatalf("queue not persisted: found=%v err=%v", found, err)
	}

	var items []*models.QueueItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("persisted queue not valid JSON: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 persisted item, got %d", len(items))
	}
	if items[0].ID != id {
		t.Errorf("persisted id %q does not match returned id %q", items[0].ID, id)
	}
	if items[0].MaxRetries != models.DefaultMaxRetries {
		t.Errorf("expected max retries %d, got %d", models.DefaultMaxRetries, items[0].MaxRetries)
	}
}

func TestQueueSurvivesRestart(t *testing.T) {
	store := kvstore.NewMemoryStore()
	bus := events.NewBus()

	q1 := New(store, bus)
	if _, err := q1.Enqueue(models.OperationCreatePost, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := q1.Enqueue(models.OperationDeleteRecord, json.RawMessage(`{"item_id":"42"}`)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// A second instance over the same store models a process restart.
	q2 := New(store, bus)
	if got := q2.Len(); got != 2 {
		t.Fatalf("expected 2 items after restart, got %d", got)
	}

	items, err := q2.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if items[0].Type != models.OperationCreatePost || items[1].Type != models.OperationDeleteRecord {
		t.Errorf("enqueue order not preserved: %s, %s", items[0].Type, items[1].Type)
	}
}

func TestCorruptPersistedQueueDiscarded(t *testing.T) {
	store := kvstore.NewMemoryStore()
	if err := store.Set(QueueKey, "{not json"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	q := New(store, events.NewBus())
	if err := q.Load(); err != nil {
		t.Fatalf("Load should tolerate corrupt data, got: %v", err)
	}
	if got := q.Len(); got != 0 {
		t.Errorf("expected empty queue after discarding corrupt data, got %d", got)
	}

	// The queue must remain usable.
	if _, err := q.Enqueue(models.OperationCreateList, json.RawMessage(`{}`)); err != nil {
		t.Errorf("Enqueue after corrupt load failed: %v", err)
	}
}

func TestEnqueueRejectedWhenFull(t *testing.T) {
	q, _, _ := newTestQueue(t)
	q.maxSize = 2

	for i := 0; i < 2; i++ {
		if _, err := q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("Enqueue %d failed: %v", i, err)
		}
	}

	_, err := q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected enqueue past capacity to fail")
	}
	if errors.CodeOf(err) != errors.ErrQueueFull {
		t.Errorf("expected %s, got %s", errors.ErrQueueFull, errors.CodeOf(err))
	}
	if got := q.Len(); got != 2 {
		t.Errorf("queue length changed on rejected enqueue: %d", got)
	}
}

func TestDequeueRemovesAndPersists(t *testing.T) {
	q, store, _ := newTestQueue(t)

	id1, _ := q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{}`))
	id2, _ := q.Enqueue(models.OperationUpdateRecord, json.RawMessage(`{}`))

	if err := q.Dequeue(id1); err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}

	raw, _, _ := store.Get(QueueKey)
	if strings.Contains(raw, id1) {
		t.Error("dequeued item still present in persisted queue")
	}
	if !strings.Contains(raw, id2) {
		t.Error("remaining item missing from persisted queue")
	}

	if err := q.Dequeue("missing"); errors.CodeOf(err) != errors.ErrItemNotFound {
		t.Errorf("expected %s for unknown id, got %v", errors.ErrItemNotFound, err)
	}
}

func TestUpdatePersistsRetryCount(t *testing.T) {
	q, _, _ := newTestQueue(t)

	id, _ := q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{}`))
	items, _ := q.Snapshot()
	items[0].RetryCount = 2
	if err := q.Update(items[0]); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	again, _ := q.Snapshot()
	if again[0].ID != id || again[0].RetryCount != 2 {
		t.Errorf("retry count not persisted: id=%s count=%d", again[0].ID, again[0].RetryCount)
	}

	// Updating an item that was already dequeued is a no-op.
	ghost := &models.QueueItem{ID: "gone", RetryCount: 1}
	if err := q.Update(ghost); err != nil {
		t.Errorf("Update of absent item should be a no-op, got: %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	q, _, _ := newTestQueue(t)
	q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{}`))

	items, _ := q.Snapshot()
	items[0].RetryCount = 99

	fresh, _ := q.Snapshot()
	if fresh[0].RetryCount != 0 {
		t.Error("mutating a snapshot leaked into the live queue")
	}
}

func TestEnqueuePublishesQueueChanged(t *testing.T) {
	q, _, bus := newTestQueue(t)

	var mu sync.Mutex
	var got []events.Event
	unsub := bus.SubscribeKind(events.KindQueueChanged, func(ev events.Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	defer unsub()

	q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{}`))
	q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{}`))

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 queue.changed events, got %d", len(got))
	}
	if got[0].Pending != 1 || got[1].Pending != 2 {
		t.Errorf("pending counts wrong: %d, %d", got[0].Pending, got[1].Pending)
	}
}

func TestEnqueueFiresTriggerAsynchronously(t *testing.T) {
	q, _, _ := newTestQueue(t)

	fired := make(chan struct{}, 1)
	q.SetOnEnqueue(func() { fired <- struct{}{} })

	if _, err := q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	<-fired
}

func TestSaveAndLoadStatus(t *testing.T) {
	q, _, _ := newTestQueue(t)

	if q.LastStatus() != nil {
		t.Fatal("expected no status before first sync")
	}

	result := models.SyncResult{Success: 3, Failed: 1, TotalItems: 4}
	if err := q.SaveStatus(result); err != nil {
		t.Fatalf("SaveStatus failed: %v", err)
	}

	status := q.LastStatus()
	if status == nil {
		t.Fatal("expected persisted status")
	}
	if status.Results != result {
		t.Errorf("unexpected results: %+v", status.Results)
	}
	if status.LastSync == 0 {
		t.Error("expected non-zero last sync timestamp")
	}
}

func TestClear(t *testing.T) {
	q, store, _ := newTestQueue(t)
	q.Enqueue(models.OperationCreateRecord, json.RawMessage(`{}`))

	if err := q.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := q.Len(); got != 0 {
		t.Errorf("expected empty queue, got %d", got)
	}
	raw, _, _ := store.Get(QueueKey)
	if raw != "null" && raw != "[]" {
		t.Errorf("unexpected persisted queue after clear: %q", raw)
	}
}
