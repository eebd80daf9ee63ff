package kvstore

import (
	"fmt"
	"testing"
)

// backends every Store implementation must pass.
func openBackends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}

	badger, err := OpenBadger(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
		"badger": badger,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			if _, found, err := store.Get("missing"); err != nil || found {
				t.Errorf("missing key: found=%v err=%v", found, err)
			}

			if err := store.Set("k1", `{"a":1}`); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			value, found, err := store.Get("k1")
			if err != nil || !found {
				t.Fatalf("Get failed: found=%v err=%v", found, err)
			}
			if value != `{"a":1}` {
				t.Errorf("unexpected value: %q", value)
			}

			// Overwrite.
			if err := store.Set("k1", "v2"); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			value, _, _ = store.Get("k1")
			if value != "v2" {
				t.Errorf("overwrite not applied: %q", value)
			}

			// Remove, then remove again.
			if err := store.Remove("k1"); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			if _, found, _ := store.Get("k1"); found {
				t.Error("key still present after Remove")
			}
			if err := store.Remove("k1"); err != nil {
				t.Errorf("Remove of absent key should be a no-op: %v", err)
			}
		})
	}
}

func TestStoreEmptyValue(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			if err := store.Set("empty", ""); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			value, found, err := store.Get("empty")
			if err != nil || !found {
				t.Errorf("empty value must still be found: found=%v err=%v", found, err)
			}
			if value != "" {
				t.Errorf("expected empty value, got %q", value)
			}
		})
	}
}

func TestStoreConcurrentWriters(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			done := make(chan error, 10)
			for i := 0; i < 10; i++ {
				go func(n int) {
					key := fmt.Sprintf("key_%d", n%3)
					done <- store.Set(key, fmt.Sprintf("value_%d", n))
				}(i)
			}
			for i := 0; i < 10; i++ {
				if err := <-done; err != nil {
					t.Errorf("concurrent Set failed: %v", err)
				}
			}
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := s1.Set("durable", "yes"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	value, found, err := s2.Get("durable")
	if err != nil || !found || value != "yes" {
		t.Errorf("value lost across reopen: value=%q found=%v err=%v", value, found, err)
	}
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	if err := s1.Set("durable", "yes"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	value, found, err := s2.Get("durable")
	if err != nil || !found || value != "yes" {
		t.Errorf("value lost across reopen: value=%q found=%v err=%v", value, found, err)
	}
}

func TestMemoryStoreLen(t *testing.T) {
	store := NewMemoryStore()
	store.Set("a", "1")
	store.Set("b", "2")
	store.Set("a", "3")
	if got := store.Len(); got != 2 {
		t.Errorf("expected 2 keys, got %d", got)
	}
	store.Remove("a")
	if got := store.Len(); got != 1 {
		t.Errorf("expected 1 key, got %d", got)
	}
}
