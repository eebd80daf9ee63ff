package cache

import (
	"sort"
	gosync "sync"
	"sync/atomic"

	"github.com/bestlist/vitara-core/internal/connectivity"
	"github.com/bestlist/vitara-core/internal/events"
	"github.com/bestlist/vitara-core/internal/kvstore"
	"github.com/bestlist/vitara-core/internal/logging"
	"github.com/bestlist/vitara-core/internal/models"
	"github.com/bestlist/vitara-core/internal/remote"
)

// Manager owns every cache domain for one app session. It has an explicit
// lifecycle: create it at startup, Dispose it at shutdown. UI consumers
// reference domains through keys, never through shared mutable state.
type Manager struct {
	store   kvstore.Store
	client  remote.Client
	monitor *connectivity.Monitor
	bus     *events.Bus

	mu      gosync.Mutex
	domains map[string]*Store

	// disposed is read from cache stores while they hold their own lock,
	// so it must not share the manager mutex.
	disposed atomic.Bool

	log *logging.ComponentLogger
}

// NewManager creates a cache manager.
func NewManager(store kvstore.Store, client remote.Client, monitor *connectivity.Monitor, bus *events.Bus) *Manager {
	return &Manager{
		store:   store,
		client:  client,
		monitor: monitor,
		bus:     bus,
		domains: make(map[string]*Store),
		log:     logging.Component("cache_manager"),
	}
}

// Bus returns the event bus consumers subscribe to.
func (m *Manager) Bus() *events.Bus {
	return m.bus
}

// Domain returns the cache store for a domain key, creating it on first
// use. All access to one domain funnels through the same instance, keeping
// read-modify-write on the persisted entry single-writer.
func (m *Manager) Domain(key string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.domains[key]; ok {
		return s
	}

	s := &Store{
		manager: m,
		domain:  key,
		cfg:     configForDomain(key),
		log:     logging.Component("cache_store"),
	}
	m.domains[key] = s
	return s
}

// canFetch reports whether network fetches are currently allowed: they are
// suppressed while offline, backgrounded, or after Dispose.
func (m *Manager) canFetch() bool {
	if m.isDisposed() {
		return false
	}
	return m.monitor.IsOnline() && m.monitor.IsAppActive()
}

func (m *Manager) isDisposed() bool {
	return m.disposed.Load()
}

// Dispose releases the manager. Further fetches are suppressed; in-flight
// revalidations discard their results.
func (m *Manager) Dispose() {
	m.disposed.Store(true)
	m.mu.Lock()
	m.domains = make(map[string]*Store)
	m.mu.Unlock()
	m.log.Info("Cache manager disposed")
}

// ConfirmRecord routes an authoritative record from the sync engine into
// every loaded domain holding its optimistic or offline counterpart.
func (m *Manager) ConfirmRecord(rec *models.Record) {
	if rec == nil {
		return
	}
	for _, s := range m.snapshot() {
		s.Confirm(*rec)
	}
}

// DropOfflinePlaceholders removes offline placeholders for userID across
// all loaded domains after a successful sync pass. Only placeholders whose
// content key is in contentKeys are dropped, so optimistic records still
// awaiting a retry keep their local representation.
func (m *Manager) DropOfflinePlaceholders(userID string, contentKeys map[string]bool) {
	for _, s := range m.snapshot() {
		s.DropOffline(userID, contentKeys)
	}
}

func (m *Manager) snapshot() []*Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Store, 0, len(m.domains))
	for _, s := range m.domains {
		out = append(out, s)
	}
	return out
}

// evictOldest drops the oldest half of tracked domains (by LastUpdated)
// when more than maxDomains are held. Called by the janitor.
func (m *Manager) evictOldest(maxDomains int) int {
	if m.isDisposed() {
		return 0
	}
	m.mu.Lock()
	if len(m.domains) <= maxDomains {
		m.mu.Unlock()
		return 0
	}

	type aged struct {
		key     string
		store   *Store
		updated int64
	}
	entries := make([]aged, 0, len(m.domains))
	for key, s := range m.domains {
		entries = append(entries, aged{key: key, store: s, updated: s.LastUpdated()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].updated < entries[j].updated
	})

	evict := entries[:len(entries)/2]
	for _, e := range evict {
		delete(m.domains, e.key)
	}
	m.mu.Unlock()

	for _, e := range evict {
		e.store.dropMemory()
	}

	m.log.Info("Evicted stale cache domains", map[string]interface{}{"count": len(evict)})
	return len(evict)
}

// DomainCount returns the number of tracked domains.
func (m *Manager) DomainCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.domains)
}
