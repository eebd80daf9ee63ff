// Package core assembles the client engine: storage, connectivity, queue,
// sync, caches and the event bus, with an explicit create/dispose
// lifecycle. Host bindings (FFI, desktop daemon) and integration tests wire
// against this package instead of assembling components themselves.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bestlist/vitara-core/internal/cache"
	"github.com/bestlist/vitara-core/internal/connectivity"
	"github.com/bestlist/vitara-core/internal/events"
	"github.com/bestlist/vitara-core/internal/imagecache"
	"github.com/bestlist/vitara-core/internal/kvstore"
	"github.com/bestlist/vitara-core/internal/logging"
	"github.com/bestlist/vitara-core/internal/models"
	"github.com/bestlist/vitara-core/internal/queue"
	"github.com/bestlist/vitara-core/internal/remote"
	syncengine "github.com/bestlist/vitara-core/internal/sync"
	"github.com/bestlist/vitara-core/internal/usercache"
	"github.com/bestlist/vitara-core/internal/uuid"
)

// Backend selects the durable KV implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
	BackendMemory Backend = "memory"
)

// Config configures one Core instance.
type Config struct {
	DataDir      string
	Backend      Backend
	UserID       string
	Policy       syncengine.Policy
	Janitor      cache.JanitorConfig
	SyncInterval time.Duration
}

// Core owns one app session's engine instances.
type Core struct {
	cfg     Config
	store   kvstore.Store
	bus     *events.Bus
	monitor *connectivity.Monitor
	queue   *queue.Queue
	engine  *syncengine.Engine
	caches  *cache.Manager
	janitor *cache.Janitor
	sched   *syncengine.Scheduler
	images  *imagecache.ImageCache
	users   *usercache.UserCache

	cancel      context.CancelFunc
	stopTrigger func()
	log         *logging.ComponentLogger
}

// New creates and wires a Core against the given remote API client.
func New(cfg Config, client remote.Client) (*Core, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	monitor := connectivity.NewMonitor()
	q := queue.New(store, bus)
	if err := q.Load(); err != nil {
		store.Close()
		return nil, err
	}

	policy := cfg.Policy
	if policy == (syncengine.Policy{}) {
		policy = syncengine.DefaultPolicy()
	}

	engine := syncengine.NewEngine(q, client, monitor, bus, policy)
	caches := cache.NewManager(store, client, monitor, bus)

	engine.SetOnConfirmed(caches.ConfirmRecord)
	engine.SetOnPassComplete(func(synced []*models.QueueItem) {
		caches.DropOfflinePlaceholders(cfg.UserID, syncedContentKeys(synced))
	})

	c := &Core{
		cfg:     cfg,
		store:   store,
		bus:     bus,
		monitor: monitor,
		queue:   q,
		engine:  engine,
		caches:  caches,
		janitor: cache.NewJanitor(caches, monitor, cfg.Janitor),
		sched:   syncengine.NewScheduler(engine, cfg.SyncInterval),
		images:  imagecache.New(store, cfg.DataDir),
		users:   usercache.New(store),
		log:     logging.Component("core"),
	}
	return c, nil
}

// syncedContentKeys collects the content keys carried by the synced
// mutation payloads, so placeholder cleanup only touches records those
// mutations confirmed. Payloads without a content key (deletes, profile
// updates) contribute nothing.
func syncedContentKeys(synced []*models.QueueItem) map[string]bool {
	keys := make(map[string]bool, len(synced))
	for _, item := range synced {
		var payload struct {
			ContentKey string `json:"content_key"`
		}
		if err := json.Unmarshal(item.Payload, &payload); err == nil && payload.ContentKey != "" {
			keys[payload.ContentKey] = true
		}
	}
	return keys
}

func openStore(cfg Config) (kvstore.Store, error) {
	switch cfg.Backend {
	case BackendBadger:
		return kvstore.OpenBadger(kvstore.BadgerConfig{
			Path:       cfg.DataDir,
			SyncWrites: true,
		})
	case BackendMemory:
		return kvstore.NewMemoryStore(), nil
	case BackendSQLite, "":
		return kvstore.OpenSQLite(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// Start launches the background tasks and the automatic sync triggers.
func (c *Core) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.stopTrigger = c.engine.Start(ctx)
	c.queue.SetOnEnqueue(c.engine.EnqueueTrigger(ctx))
	c.sched.Start(ctx)
	c.janitor.Start(ctx)
	c.log.Info("Client core started", map[string]interface{}{"backend": string(c.cfg.Backend)})
}

// Close tears the session down: background tasks stop, the cache manager is
// disposed, the store is closed.
func (c *Core) Close() error {
	if c.stopTrigger != nil {
		c.stopTrigger()
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.sched.Stop()
	c.janitor.Stop()
	c.caches.Dispose()
	err := c.store.Close()
	c.log.Info("Client core closed")
	return err
}

// Accessors for the host bindings.

func (c *Core) Bus() *events.Bus               { return c.bus }
func (c *Core) Monitor() *connectivity.Monitor { return c.monitor }
func (c *Core) Queue() *queue.Queue            { return c.queue }
func (c *Core) Engine() *syncengine.Engine     { return c.engine }
func (c *Core) Caches() *cache.Manager         { return c.caches }
func (c *Core) Images() *imagecache.ImageCache { return c.images }
func (c *Core) Users() *usercache.UserCache    { return c.users }

// RecordInput is the user-supplied part of a new record.
type RecordInput struct {
	Name       string `json:"name"`
	Rating     int    `json:"rating"`
	ListID     string `json:"list_id,omitempty"`
	IsStayAway bool   `json:"is_stay_away,omitempty"`
	Notes      string `json:"notes,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// CreateRecord runs the full optimistic write path: an offline placeholder
// is inserted into the user's profile domain and the mutation is queued.
// When online, a sync attempt follows asynchronously; the caller gets the
// placeholder immediately either way.
func (c *Core) CreateRecord(input RecordInput) (*models.Record, error) {
	rec := models.Record{
		ID:          uuid.NewOffline(),
		UserID:      c.cfg.UserID,
		ListID:      input.ListID,
		Name:        input.Name,
		Rating:      input.Rating,
		IsStayAway:  input.IsStayAway,
		Notes:       input.Notes,
		ImageURL:    input.ImageURL,
		Offline:     c.monitor.IsOffline(),
		PendingSync: true,
		CreatedAt:   time.Now().Unix(),
	}

	payload, err := json.Marshal(struct {
		RecordInput
		UserID     string `json:"user_id"`
		ContentKey string `json:"content_key"`
	}{RecordInput: input, UserID: c.cfg.UserID, ContentKey: rec.ContentKey()})
	if err != nil {
		return nil, err
	}

	// A placeholder created while online is still optimistic: the cache
	// marks it offline so a confirmed twin can supersede it by content key.
	// The mutation is queued before the placeholder is cached, so a full or
	// unwritable queue never leaves an orphan behind.
	rec.Offline = true
	if _, err := c.queue.Enqueue(models.OperationCreateRecord, payload); err != nil {
		return nil, err
	}
	c.caches.Domain("profile:" + c.cfg.UserID).Prepend(rec)
	return &rec, nil
}

// DeleteRecord removes the record from the user's cached domains and queues
// the remote deletion.
func (c *Core) DeleteRecord(recordID string) error {
	c.caches.Domain("profile:" + c.cfg.UserID).Remove(recordID)

	payload, err := json.Marshal(map[string]string{"item_id": recordID})
	if err != nil {
		return err
	}
	_, err = c.queue.Enqueue(models.OperationDeleteRecord, payload)
	return err
}

// SyncNow triggers a manual sync pass.
func (c *Core) SyncNow(ctx context.Context) (models.SyncResult, error) {
	return c.engine.SyncQueue(ctx)
}

// QueueStatus returns the queue snapshot for the UI.
func (c *Core) QueueStatus() models.QueueStatus {
	return c.engine.Status()
}
