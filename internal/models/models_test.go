package models

import (
	"encoding/json"
	"testing"
)

func TestContentKeyNormalization(t *testing.T) {
	a := Record{Name: "  Tacos Al Pastor ", Rating: 5, ListID: "l1"}
	b := Record{Name: "tacos al pastor", Rating: 5, ListID: "l1"}
	if a.ContentKey() != b.ContentKey() {
		t.Errorf("content keys differ: %q vs %q", a.ContentKey(), b.ContentKey())
	}

	c := Record{Name: "tacos al pastor", Rating: 4, ListID: "l1"}
	if a.ContentKey() == c.ContentKey() {
		t.Error("different ratings must produce different keys")
	}
	d := Record{Name: "tacos al pastor", Rating: 5, ListID: "l2"}
	if a.ContentKey() == d.ContentKey() {
		t.Error("different lists must produce different keys")
	}
}

func TestHasServerID(t *testing.T) {
	if (&Record{ID: "offline_abc"}).HasServerID() {
		t.Error("offline id is not a server id")
	}
	if !(&Record{ID: "42"}).HasServerID() {
		t.Error("plain id is a server id")
	}
	if (&Record{}).HasServerID() {
		t.Error("empty id is not a server id")
	}
}

func TestCacheEntryClone(t *testing.T) {
	entry := &CacheEntry{
		Records: []Record{{ID: "1"}, {ID: "2"}},
		HasMore: true,
		Offset:  2,
	}
	entry.Touch()

	clone := entry.Clone()
	clone.Records[0].ID = "mutated"
	clone.HasMore = false

	if entry.Records[0].ID != "1" || !entry.HasMore {
		t.Error("mutating a clone leaked into the original")
	}
	if entry.LastUpdated == 0 {
		t.Error("Touch did not set LastUpdated")
	}

	var nilEntry *CacheEntry
	if nilEntry.Clone() != nil {
		t.Error("nil clone must stay nil")
	}
}

func TestQueueItemExhausted(t *testing.T) {
	item := QueueItem{MaxRetries: DefaultMaxRetries}
	for i := 0; i < DefaultMaxRetries-1; i++ {
		item.RetryCount++
		if item.Exhausted() {
			t.Fatalf("exhausted after %d of %d retries", item.RetryCount, item.MaxRetries)
		}
	}
	item.RetryCount++
	if !item.Exhausted() {
		t.Error("expected exhaustion at the retry budget")
	}
}

func TestQueueItemJSONShape(t *testing.T) {
	item := QueueItem{
		ID:        "q1",
		Type:      OperationCreateRecord,
		Payload:   json.RawMessage(`{"name":"Tacos"}`),
		CreatedAt: 1700000000,
	}
	data, err := json.Marshal(&item)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]json.RawMessage
	json.Unmarshal(data, &raw)
	for _, field := range []string{"id", "type", "data", "timestamp"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("serialized item missing %q field", field)
		}
	}
}
