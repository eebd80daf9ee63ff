// Package imagecache maintains a local copy of remote images so feed and
// profile views render without connectivity. It keeps a persisted index of
// remote URL -> local file path; stale mappings (file deleted out from
// under the index) self-heal on first access.
package imagecache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bestlist/vitara-core/internal/kvstore"
	"github.com/bestlist/vitara-core/internal/logging"
)

// IndexKey is the kvstore key holding the URL->path index.
const IndexKey = "local_image_cache_index_v1"

// ImageCache downloads and serves local copies of remote images.
type ImageCache struct {
	store      kvstore.Store
	dataDir    string
	httpClient *http.Client

	mu     sync.Mutex
	index  map[string]string // remote URL -> relative local path
	loaded bool

	log *logging.ComponentLogger
}

// New creates an ImageCache rooted at dataDir.
func New(store kvstore.Store, dataDir string) *ImageCache {
	return &ImageCache{
		store:      store,
		dataDir:    dataDir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.Component("image_cache"),
	}
}

// loadIndexLocked hydrates the index from the kvstore exactly once.
func (c *ImageCache) loadIndexLocked() {
	if c.loaded {
		return
	}
	c.loaded = true
	c.index = make(map[string]string)

	raw, found, err := c.store.Get(IndexKey)
	if err != nil || !found {
		return
	}
	if err := json.Unmarshal([]byte(raw), &c.index); err != nil {
		c.log.Warn("Discarding corrupt image cache index")
		c.index = make(map[string]string)
	}
}

func (c *ImageCache) persistIndexLocked() {
	data, err := json.Marshal(c.index)
	if err != nil {
		return
	}
	if err := c.store.Set(IndexKey, string(data)); err != nil {
		c.log.Warn("Failed to persist image cache index", map[string]interface{}{"error": err.Error()})
	}
}

// LocalURL returns the local path for a cached remote URL. A mapping whose
// file no longer exists is deleted and reported as a miss.
func (c *ImageCache) LocalURL(remoteURL string) (string, bool) {
	if remoteURL == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadIndexLocked()

	rel, ok := c.index[remoteURL]
	if !ok {
		return "", false
	}

	abs := filepath.Join(c.dataDir, rel)
	if _, err := os.Stat(abs); err != nil {
		// Stale mapping: the file is gone, heal the index.
		delete(c.index, remoteURL)
		c.persistIndexLocked()
		return "", false
	}
	return abs, true
}

// CacheRemote downloads remoteURL and stores it under the user's image
// directory, returning the local path.
func (c *ImageCache) CacheRemote(ctx context.Context, remoteURL, userID string) (string, error) {
	if remoteURL == "" {
		return "", fmt.Errorf("empty remote URL")
	}
	if userID == "" {
		userID = "common"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image fetch failed with status %d", resp.StatusCode)
	}

	rel := filepath.Join("images", userID, fmt.Sprintf("%s%s", hashURL(remoteURL), extFor(resp.Header.Get("Content-Type"))))
	abs := filepath.Join(c.dataDir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(abs)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.loadIndexLocked()
	c.index[remoteURL] = rel
	c.persistIndexLocked()
	c.mu.Unlock()

	return abs, nil
}

// LocalFirstURL returns the cached local path when available; otherwise it
// starts a background download and invokes onCached once the copy is ready.
func (c *ImageCache) LocalFirstURL(ctx context.Context, remoteURL, userID string, onCached func(local string)) (string, bool) {
	if local, ok := c.LocalURL(remoteURL); ok {
		return local, true
	}

	go func() {
		local, err := c.CacheRemote(ctx, remoteURL, userID)
		if err != nil {
			c.log.Warn("Background image cache failed", map[string]interface{}{
				"url":   remoteURL,
				"error": err.Error(),
			})
			return
		}
		if onCached != nil {
			onCached(local)
		}
	}()

	return "", false
}

// Remove deletes the cached copy of remoteURL, if any. Used after the
// record referencing the image is deleted.
func (c *ImageCache) Remove(remoteURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadIndexLocked()

	rel, ok := c.index[remoteURL]
	if !ok {
		return
	}
	os.Remove(filepath.Join(c.dataDir, rel))
	delete(c.index, remoteURL)
	c.persistIndexLocked()
}

// hashURL derives a short stable filename component from a URL.
func hashURL(url string) string {
	h := fnv.New64a()
	h.Write([]byte(url))
	return fmt.Sprintf("%x", h.Sum64())
}

// extFor maps a Content-Type to a file extension, defaulting to .jpg.
func extFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".jpg"
	}
	switch {
	case strings.HasSuffix(mediaType, "png"):
		return ".png"
	case strings.HasSuffix(mediaType, "webp"):
		return ".webp"
	case strings.HasSuffix(mediaType, "gif"):
		return ".gif"
	default:
		return ".jpg"
	}
}
