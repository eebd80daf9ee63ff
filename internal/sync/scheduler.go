package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/bestlist/vitara-core/internal/logging"
)

// Scheduler periodically drains the mutation queue while the process is
// alive. It is a safety net behind the event-driven triggers: if an online
// transition was missed, pending work still syncs on the next tick.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	stopCh   chan struct{}
	wg       gosync.WaitGroup
	mu       gosync.Mutex
	running  bool
	log      *logging.ComponentLogger
}

// DefaultSyncInterval is how often the scheduler attempts a drain.
const DefaultSyncInterval = 1 * time.Minute

// NewScheduler creates a Scheduler. A non-positive interval falls back to
// the default.
func NewScheduler(engine *Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		stopCh:   make(chan struct{}),
		log:      logging.Component("sync_scheduler"),
	}
}

// Start launches the periodic drain loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
	s.log.Info("Sync scheduler started")
}

// Stop stops the loop and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.log.Info("Sync scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			// The engine itself no-ops when offline, empty, or mid-pass.
			if _, err := s.engine.SyncQueue(ctx); err != nil {
				s.log.Error("Periodic sync failed", err)
			}
		}
	}
}
