// Package cache implements the per-domain two-tier read cache (memory +
// persistent storage) with stale-while-revalidate reads, offset/hasMore
// pagination, and bounded persistence. All domains are owned by a Manager;
// there is no process-global cache state.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	gosync "sync"

	"github.com/bestlist/vitara-core/internal/events"
	"github.com/bestlist/vitara-core/internal/logging"
	"github.com/bestlist/vitara-core/internal/merge"
	"github.com/bestlist/vitara-core/internal/models"
)

// DomainConfig holds the per-domain tuning knobs.
type DomainConfig struct {
	// BatchSize is the page size for fetches.
	BatchSize int

	// MaxRecords caps how many records are written to persistent storage.
	// The in-memory working set is never trimmed.
	MaxRecords int

	// MaxEntryBytes is the serialization ceiling. An entry that marshals
	// larger than this is kept in memory only.
	MaxEntryBytes int
}

// Default caps: feeds keep more history than profiles.
const (
	DefaultBatchSize     = 10
	FeedMaxRecords       = 300
	ProfileMaxRecords    = 50
	DefaultMaxEntryBytes = 3 * 1024 * 1024
)

// configForDomain picks caps from the domain key prefix.
func configForDomain(domain string) DomainConfig {
	cfg := DomainConfig{
		BatchSize:     DefaultBatchSize,
		MaxRecords:    FeedMaxRecords,
		MaxEntryBytes: DefaultMaxEntryBytes,
	}
	if strings.HasPrefix(domain, "profile:") {
		cfg.MaxRecords = ProfileMaxRecords
	}
	return cfg
}

// ReadOptions controls Read behavior.
type ReadOptions struct {
	// Revalidate requests a background refresh of page 0 after the cached
	// entry is returned. It is ignored while offline or backgrounded.
	Revalidate bool
}

// Store is the cache for one domain key (one feed, one profile). Obtain
// instances through Manager.Domain; do not construct directly.
type Store struct {
	manager *Manager
	domain  string
	cfg     DomainConfig

	mu           gosync.Mutex
	entry        *models.CacheEntry
	hydrated     bool // persistent tier consulted at least once
	revalidating bool
	loadingMore  bool

	log *logging.ComponentLogger
}

// storageKey is the kvstore key for this domain's persisted entry.
func (s *Store) storageKey() string {
	return "cache_" + s.domain + "_v1"
}

// Get returns the cached entry, checking memory first and then promoting a
// persistent-tier hit into memory. It returns nil only if the domain has
// never been cached. Get never touches the network.
func (s *Store) Get() *models.CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked()
}

func (s *Store) getLocked() *models.CacheEntry {
	if s.entry != nil {
		return s.entry.Clone()
	}
	if s.hydrated {
		return nil
	}
	s.hydrated = true

	raw, found, err := s.manager.store.Get(s.storageKey())
	if err != nil {
		s.log.Warn("Failed to read persisted cache", map[string]interface{}{
			"domain": s.domain,
			"error":  err.Error(),
		})
		return nil
	}
	if !found {
		return nil
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		s.log.Warn("Discarding corrupt persisted cache", map[string]interface{}{"domain": s.domain})
		return nil
	}

	s.entry = &entry
	return s.entry.Clone()
}

// Read serves the domain with stale-while-revalidate semantics: a warm
// cache is returned immediately and, unless suppressed, page 0 is refetched
// in the background and merged in. A cold cache is fetched synchronously;
// cold and offline degrades to nil plus an offline-required event.
func (s *Store) Read(ctx context.Context, opts ReadOptions) (*models.CacheEntry, error) {
	s.mu.Lock()
	entry := s.getLocked()
	if entry != nil && opts.Revalidate && !s.revalidating && s.manager.canFetch() {
		s.revalidating = true
		go s.revalidate(ctx)
	}
	s.mu.Unlock()

	if entry != nil {
		return entry, nil
	}

	if !s.manager.canFetch() {
		s.manager.bus.Publish(events.Event{Kind: events.KindOfflineRequired, Domain: s.domain})
		return nil, nil
	}

	records, err := s.manager.client.FetchPage(ctx, s.domain, s.cfg.BatchSize, 0)
	if err != nil {
		return nil, err
	}

	fresh := &models.CacheEntry{
		Records: merge.Merge(records),
		HasMore: len(records) == s.cfg.BatchSize,
		Offset:  len(records),
	}
	fresh.Touch()

	s.mu.Lock()
	s.entry = fresh
	s.persistLocked()
	entry = s.entry.Clone()
	s.mu.Unlock()

	s.publishUpdated()
	return entry, nil
}

// revalidate refetches page 0 and merges it ahead of the cached records.
// It runs off the caller's goroutine; the caller already has its snapshot.
func (s *Store) revalidate(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.revalidating = false
		s.mu.Unlock()
	}()

	records, err := s.manager.client.FetchPage(ctx, s.domain, s.cfg.BatchSize, 0)
	if err != nil {
		s.log.Warn("Revalidation fetch failed", map[string]interface{}{
			"domain": s.domain,
			"error":  err.Error(),
		})
		return
	}

	// The manager may have been disposed while the fetch was in flight.
	if s.manager.isDisposed() {
		return
	}

	s.mu.Lock()
	cached := []models.Record{}
	hasMore := len(records) == s.cfg.BatchSize
	offset := len(records)
	if s.entry != nil {
		cached = s.entry.Records
		hasMore = hasMore || s.entry.HasMore
		if s.entry.Offset > offset {
			offset = s.entry.Offset
		}
	}

	entry := &models.CacheEntry{
		Records: merge.Merge(records, cached),
		HasMore: hasMore,
		Offset:  offset,
	}
	entry.Touch()
	s.entry = entry
	s.persistLocked()
	s.mu.Unlock()

	s.publishUpdated()
}

// LoadMore fetches the next page at the stored offset and appends the
// deduplicated result. Offline calls degrade to the cached entry.
func (s *Store) LoadMore(ctx context.Context) (*models.CacheEntry, error) {
	s.mu.Lock()
	entry := s.getLocked()
	if entry == nil || !entry.HasMore || s.loadingMore {
		s.mu.Unlock()
		return entry, nil
	}
	if !s.manager.canFetch() {
		s.mu.Unlock()
		s.manager.bus.Publish(events.Event{Kind: events.KindOfflineRequired, Domain: s.domain})
		return entry, nil
	}
	s.loadingMore = true
	offset := entry.Offset
	s.mu.Unlock()

	records, err := s.manager.client.FetchPage(ctx, s.domain, s.cfg.BatchSize, offset)

	s.mu.Lock()
	s.loadingMore = false
	if err != nil {
		s.mu.Unlock()
		return entry, err
	}
	if s.entry == nil {
		// Entry vanished (dispose/evict) while fetching; drop the page.
		s.mu.Unlock()
		return entry, nil
	}

	s.entry.Records = merge.Merge(s.entry.Records, records)
	s.entry.Offset += len(records)
	s.entry.HasMore = len(records) == s.cfg.BatchSize
	s.entry.Touch()
	s.persistLocked()
	out := s.entry.Clone()
	s.mu.Unlock()

	s.publishUpdated()
	return out, nil
}

// Replace swaps the full record list, used by hard refresh.
func (s *Store) Replace(records []models.Record) {
	deduped := merge.Merge(records)
	entry := &models.CacheEntry{
		Records: deduped,
		HasMore: len(deduped) >= s.cfg.BatchSize,
		Offset:  len(deduped),
	}
	entry.Touch()

	s.mu.Lock()
	s.hydrated = true
	s.entry = entry
	s.persistLocked()
	s.mu.Unlock()

	s.publishUpdated()
}

// Prepend inserts a newly created local record at the head of the list,
// deduplicating against anything already cached.
func (s *Store) Prepend(rec models.Record) {
	s.mu.Lock()
	cached := []models.Record{}
	if existing := s.getLocked(); existing != nil {
		cached = existing.Records
	}

	entry := &models.CacheEntry{
		Records: merge.Merge([]models.Record{rec}, cached),
		HasMore: s.entry != nil && s.entry.HasMore,
	}
	if s.entry != nil {
		entry.Offset = s.entry.Offset
	}
	entry.Touch()
	s.entry = entry
	s.persistLocked()
	s.mu.Unlock()

	s.publishUpdated(rec.ID)
}

// Remove deletes the record with the given id, if present.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	entry := s.getLocked()
	if entry == nil {
		s.mu.Unlock()
		return
	}

	records := s.entry.Records
	idx := -1
	for i := range records {
		if records[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	s.entry.Records = append(records[:idx], records[idx+1:]...)
	s.entry.Touch()
	s.persistLocked()
	s.mu.Unlock()

	s.publishUpdated(id)
}

// Confirm replaces an optimistic or offline record with its authoritative
// counterpart, matching by id first and contentKey second. It reports
// whether the domain contained a matching record.
func (s *Store) Confirm(rec models.Record) bool {
	s.mu.Lock()
	entry := s.getLocked()
	if entry == nil {
		s.mu.Unlock()
		return false
	}

	key := rec.ContentKey()
	matched := false
	for _, existing := range s.entry.Records {
		if existing.ID == rec.ID || (existing.Offline && existing.ContentKey() == key) {
			matched = true
			break
		}
	}
	if !matched {
		s.mu.Unlock()
		return false
	}

	s.entry.Records = merge.Merge([]models.Record{rec}, s.entry.Records)
	s.entry.Touch()
	s.persistLocked()
	s.mu.Unlock()

	s.publishUpdated(rec.ID)
	return true
}

// DropOffline removes offline placeholders belonging to userID whose
// content keys landed authoritatively in the last sync pass. Placeholders
// backing still-queued mutations are left in place.
func (s *Store) DropOffline(userID string, contentKeys map[string]bool) {
	s.mu.Lock()
	entry := s.getLocked()
	if entry == nil {
		s.mu.Unlock()
		return
	}

	before := len(s.entry.Records)
	s.entry.Records = merge.DropOfflineForUser(s.entry.Records, userID, contentKeys)
	if len(s.entry.Records) == before {
		s.mu.Unlock()
		return
	}

	s.entry.Touch()
	s.persistLocked()
	s.mu.Unlock()

	s.publishUpdated()
}

// persistLocked writes the entry to the kvstore, trimming the serialized
// copy to MaxRecords. Trimming happens only here: the in-memory working set
// keeps the full list. Oversized entries are skipped, not split — durability
// degrades, the session keeps its data.
func (s *Store) persistLocked() {
	if s.entry == nil {
		return
	}

	toWrite := s.entry
	if len(toWrite.Records) > s.cfg.MaxRecords {
		trimmed := *toWrite
		trimmed.Records = toWrite.Records[:s.cfg.MaxRecords]
		toWrite = &trimmed
	}

	data, err := json.Marshal(toWrite)
	if err != nil {
		s.log.Warn("Failed to serialize cache entry", map[string]interface{}{"domain": s.domain})
		return
	}

	if len(data) > s.cfg.MaxEntryBytes {
		s.log.Warn("Cache entry exceeds serialization ceiling, keeping memory only",
			map[string]interface{}{
				"domain": s.domain,
				"bytes":  len(data),
			})
		return
	}

	if err := s.manager.store.Set(s.storageKey(), string(data)); err != nil {
		s.log.Warn("Failed to persist cache entry", map[string]interface{}{
			"domain": s.domain,
			"error":  err.Error(),
		})
	}
}

func (s *Store) publishUpdated(recordIDs ...string) {
	s.manager.bus.Publish(events.Event{
		Kind:      events.KindCacheUpdated,
		Domain:    s.domain,
		RecordIDs: recordIDs,
	})
}

// LastUpdated returns the entry's LastUpdated, or zero when uncached.
func (s *Store) LastUpdated() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == nil {
		return 0
	}
	return s.entry.LastUpdated
}

// dropMemory evicts the in-memory entry and the persisted copy.
func (s *Store) dropMemory() {
	s.mu.Lock()
	s.entry = nil
	s.hydrated = true
	s.mu.Unlock()
	if err := s.manager.store.Remove(s.storageKey()); err != nil {
		s.log.Warn("Failed to remove persisted cache entry", map[string]interface{}{"domain": s.domain})
	}
}
