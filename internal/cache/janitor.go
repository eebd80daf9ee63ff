package cache

import (
	"context"
	gosync "sync"
	"time"

	"github.com/bestlist/vitara-core/internal/connectivity"
	"github.com/bestlist/vitara-core/internal/logging"
)

// JanitorConfig holds the eviction knobs.
type JanitorConfig struct {
	// Interval between eviction sweeps.
	Interval time.Duration

	// MaxDomains is the cap on tracked cache domains; beyond it the oldest
	// half is evicted.
	MaxDomains int
}

// DefaultJanitorConfig returns the production settings.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Interval:   60 * time.Second,
		MaxDomains: 10,
	}
}

// Janitor is the low-priority periodic task bounding cache growth when a
// session touches many lists and profiles. It no-ops while the app is
// backgrounded.
type Janitor struct {
	manager *Manager
	monitor *connectivity.Monitor
	cfg     JanitorConfig
	stopCh  chan struct{}
	wg      gosync.WaitGroup
	mu      gosync.Mutex
	running bool
	log     *logging.ComponentLogger
}

// NewJanitor creates a Janitor for the given manager.
func NewJanitor(manager *Manager, monitor *connectivity.Monitor, cfg JanitorConfig) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultJanitorConfig().Interval
	}
	if cfg.MaxDomains <= 0 {
		cfg.MaxDomains = DefaultJanitorConfig().MaxDomains
	}
	return &Janitor{
		manager: manager,
		monitor: monitor,
		cfg:     cfg,
		stopCh:  make(chan struct{}),
		log:     logging.Component("cache_janitor"),
	}
}

// Start launches the sweep loop.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.wg.Add(1)
	go j.loop(ctx)
	j.log.Info("Cache janitor started")
}

// Stop stops the loop and waits for it to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	close(j.stopCh)
	j.wg.Wait()
	j.log.Info("Cache janitor stopped")
}

func (j *Janitor) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one eviction pass. Exposed for tests and manual triggering.
func (j *Janitor) Sweep() int {
	if !j.monitor.IsAppActive() {
		return 0
	}
	return j.manager.evictOldest(j.cfg.MaxDomains)
}
