package imagecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bestlist/vitara-core/internal/kvstore"
)

func newImageServer(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCacheRemoteDownloadsAndIndexes(t *testing.T) {
	srv := newImageServer(t, "image/png", []byte("png-bytes"))
	store := kvstore.NewMemoryStore()
	cache := New(store, t.TempDir())

	local, err := cache.CacheRemote(context.Background(), srv.URL+"/avatar.png", "u1")
	if err != nil {
		t.Fatalf("CacheRemote failed: %v", err)
	}
	if !strings.HasSuffix(local, ".png") {
		t.Errorf("expected .png extension, got %s", local)
	}
	data, err := os.ReadFile(local)
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("file contents wrong: %q, %v", data, err)
	}

	// Second access hits the index, downloads nothing.
	got, ok := cache.LocalURL(srv.URL + "/avatar.png")
	if !ok || got != local {
		t.Errorf("LocalURL = %q, %v; want %q, true", got, ok, local)
	}

	// The index is persisted.
	if _, found, _ := store.Get(IndexKey); !found {
		t.Error("index not persisted")
	}
}

func TestLocalURLMissesUnknown(t *testing.T) {
	cache := New(kvstore.NewMemoryStore(), t.TempDir())
	if _, ok := cache.LocalURL("https://example.com/missing.jpg"); ok {
		t.Error("unknown URL must miss")
	}
	if _, ok := cache.LocalURL(""); ok {
		t.Error("empty URL must miss")
	}
}

func TestStaleMappingSelfHeals(t *testing.T) {
	srv := newImageServer(t, "image/jpeg", []byte("jpg"))
	store := kvstore.NewMemoryStore()
	cache := New(store, t.TempDir())

	local, err := cache.CacheRemote(context.Background(), srv.URL+"/a.jpg", "u1")
	if err != nil {
		t.Fatalf("CacheRemote failed: %v", err)
	}

	// Someone deleted the file out from under the index.
	os.Remove(local)

	if _, ok := cache.LocalURL(srv.URL + "/a.jpg"); ok {
		t.Fatal("stale mapping must miss")
	}

	// The healed index no longer references the file.
	raw, _, _ := store.Get(IndexKey)
	if strings.Contains(raw, "a.jpg") {
		t.Error("stale mapping still in persisted index")
	}
}

func TestLocalFirstURLBackgroundFill(t *testing.T) {
	srv := newImageServer(t, "image/webp", []byte("webp"))
	cache := New(kvstore.NewMemoryStore(), t.TempDir())

	cached := make(chan string, 1)
	local, ok := cache.LocalFirstURL(context.Background(), srv.URL+"/b.webp", "u1", func(path string) {
		cached <- path
	})
	if ok || local != "" {
		t.Fatalf("first access must miss: %q, %v", local, ok)
	}

	select {
	case path := <-cached:
		if !strings.HasSuffix(path, ".webp") {
			t.Errorf("unexpected cached path: %s", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("background download never completed")
	}

	if _, ok := cache.LocalURL(srv.URL + "/b.webp"); !ok {
		t.Error("image not served locally after background fill")
	}
}

func TestRemoveDeletesFileAndMapping(t *testing.T) {
	srv := newImageServer(t, "image/png", []byte("png"))
	cache := New(kvstore.NewMemoryStore(), t.TempDir())

	local, _ := cache.CacheRemote(context.Background(), srv.URL+"/c.png", "u1")
	cache.Remove(srv.URL + "/c.png")

	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Error("file not deleted")
	}
	if _, ok := cache.LocalURL(srv.URL + "/c.png"); ok {
		t.Error("mapping not deleted")
	}
}

func TestCacheRemoteBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	cache := New(kvstore.NewMemoryStore(), t.TempDir())
	if _, err := cache.CacheRemote(context.Background(), srv.URL+"/gone.jpg", "u1"); err == nil {
		t.Error("404 must surface as an error")
	}
}

func TestExtFor(t *testing.T) {
	tests := map[string]string{
		"image/png":                 ".png",
		"image/webp":                ".webp",
		"image/gif":                 ".gif",
		"image/jpeg":                ".jpg",
		"image/png; charset=binary": ".png",
		"":                          ".jpg",
		"garbage":                   ".jpg",
	}
	for contentType, want := range tests {
		if got := extFor(contentType); got != want {
			t.Errorf("extFor(%q) = %q, want %q", contentType, got, want)
		}
	}
}
