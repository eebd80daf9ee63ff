// Package sync drains the durable mutation queue against the remote API.
// One pass runs at a time (single-flight); items are executed sequentially
// in enqueue order with a fixed inter-item delay, retried up to their
// bounded budget, and dropped once the budget is exhausted.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bestlist/vitara-core/internal/connectivity"
	"github.com/bestlist/vitara-core/internal/errors"
	"github.com/bestlist/vitara-core/internal/events"
	"github.com/bestlist/vitara-core/internal/logging"
	"github.com/bestlist/vitara-core/internal/models"
	"github.com/bestlist/vitara-core/internal/queue"
	"github.com/bestlist/vitara-core/internal/remote"
)

// flightState is the engine's single-flight state machine. Transitions are
// validated under the mutex: Idle -> Running on begin, Running -> Idle on
// end. There is no other legal transition.
type flightState int

const (
	stateIdle flightState = iota
	stateRunning
)

// Policy holds the tunable delays of the sync engine.
type Policy struct {
	// InterItemDelay is the pause between sequential queue items, so a
	// large backlog does not burst the backend.
	InterItemDelay time.Duration

	// EnqueueSyncDelay is the pause before the fire-and-forget sync attempt
	// scheduled by an online enqueue.
	EnqueueSyncDelay time.Duration

	// OnlineSyncDelay is the pause after an offline->online transition
	// before auto-sync starts, letting the connection stabilize.
	OnlineSyncDelay time.Duration

	// PassTimeout bounds one full sync pass.
	PassTimeout time.Duration
}

// DefaultPolicy returns the delays used in production.
func DefaultPolicy() Policy {
	return Policy{
		InterItemDelay:   200 * time.Millisecond,
		EnqueueSyncDelay: 1 * time.Second,
		OnlineSyncDelay:  2 * time.Second,
		PassTimeout:      5 * time.Minute,
	}
}

// Engine replays queued mutations against the remote API.
type Engine struct {
	queue   *queue.Queue
	client  remote.Client
	monitor *connectivity.Monitor
	bus     *events.Bus
	policy  Policy

	mu    chan struct{} // buffered size 1; holds the flight state token
	state flightState

	// onConfirmed receives the authoritative record returned by a
	// successful create operation, so the cache layer can replace the
	// matching offline placeholder.
	onConfirmed func(rec *models.Record)

	// onPassComplete runs after a pass with at least one success, with the
	// queue items that synced. The cache layer uses it to drop the offline
	// placeholders those items made redundant; placeholders whose mutations
	// are still queued must survive the cleanup.
	onPassComplete func(synced []*models.QueueItem)

	log *logging.ComponentLogger
}

// NewEngine creates a sync engine. Hooks are optional.
func NewEngine(q *queue.Queue, client remote.Client, monitor *connectivity.Monitor, bus *events.Bus, policy Policy) *Engine {
	e := &Engine{
		queue:   q,
		client:  client,
		monitor: monitor,
		bus:     bus,
		policy:  policy,
		mu:      make(chan struct{}, 1),
		log:     logging.Component("sync_engine"),
	}
	e.mu <- struct{}{}
	return e
}

// SetOnConfirmed installs the authoritative-record hook.
func (e *Engine) SetOnConfirmed(fn func(rec *models.Record)) {
	e.onConfirmed = fn
}

// SetOnPassComplete installs the post-pass cleanup hook.
func (e *Engine) SetOnPassComplete(fn func(synced []*models.QueueItem)) {
	e.onPassComplete = fn
}

// begin attempts the Idle -> Running transition. It never blocks: a second
// concurrent caller is refused instead of queued.
func (e *Engine) begin() bool {
	select {
	case <-e.mu:
		e.state = stateRunning
		return true
	default:
		return false
	}
}

// end performs the Running -> Idle transition. Called from a deferred
// function so a panicking pass cannot wedge the lock.
func (e *Engine) end() {
	e.state = stateIdle
	e.mu <- struct{}{}
}

// IsSyncing reports whether a pass is in flight.
func (e *Engine) IsSyncing() bool {
	select {
	case token := <-e.mu:
		e.mu <- token
		return false
	default:
		return true
	}
}

// SyncQueue drains the mutation queue once. It returns immediately with a
// no-op result when the device is offline, the queue is empty, or another
// pass is already running.
func (e *Engine) SyncQueue(ctx context.Context) (models.SyncResult, error) {
	if e.monitor.IsOffline() {
		e.log.Debug("Offline, skipping sync")
		return models.SyncResult{}, nil
	}

	if !e.begin() {
		e.log.Debug("Sync already in progress, skipping")
		return models.SyncResult{AlreadyInProgress: true}, nil
	}
	defer e.end()

	snapshot, err := e.queue.Snapshot()
	if err != nil {
		return models.SyncResult{}, err
	}
	if len(snapshot) == 0 {
		e.log.Debug("Queue empty, nothing to sync")
		return models.SyncResult{}, nil
	}

	if e.policy.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.policy.PassTimeout)
		defer cancel()
	}

	e.log.Info("Starting sync", map[string]interface{}{"items": len(snapshot)})
	e.bus.Publish(events.Event{Kind: events.KindSyncStarted, Pending: len(snapshot)})

	result := models.SyncResult{TotalItems: len(snapshot)}
	var synced []*models.QueueItem

	for i, item := range snapshot {
		if ctx.Err() != nil {
			break
		}

		if err := e.execute(ctx, item); err != nil {
			e.log.Warn("Failed to sync item", map[string]interface{}{
				"type":  string(item.Type),
				"id":    item.ID,
				"retry": item.RetryCount + 1,
				"error": err.Error(),
			})

			item.RetryCount++
			if item.Exhausted() {
				// Permanently dropped; counted but not surfaced further.
				if err := e.queue.Dequeue(item.ID); err != nil {
					e.log.Error("Failed to drop exhausted item", err, map[string]interface{}{"id": item.ID})
				}
				result.Failed++
			} else if err := e.queue.Update(item); err != nil {
				e.log.Error("Failed to persist retry count", err, map[string]interface{}{"id": item.ID})
			}
		} else {
			if err := e.queue.Dequeue(item.ID); err != nil {
				e.log.Error("Failed to dequeue synced item", err, map[string]interface{}{"id": item.ID})
			}
			result.Success++
			synced = append(synced, item)
		}

		// Small delay between operations to be gentle on the backend.
		if i < len(snapshot)-1 && e.policy.InterItemDelay > 0 {
			select {
			case <-time.After(e.policy.InterItemDelay):
			case <-ctx.Done():
			}
		}
	}

	if result.Success > 0 && e.onPassComplete != nil {
		e.onPassComplete(synced)
	}

	if err := e.queue.SaveStatus(result); err != nil {
		e.log.Warn("Failed to persist sync status", map[string]interface{}{"error": err.Error()})
	}

	e.log.Info("Sync completed", map[string]interface{}{
		"success": result.Success,
		"failed":  result.Failed,
		"total":   result.TotalItems,
	})
	e.bus.Publish(events.Event{Kind: events.KindSyncCompleted, Result: &result})

	return result, nil
}

// execute runs the type-specific remote operation for one queue item.
// Errors are contained here; nothing unwinds past the item boundary.
func (e *Engine) execute(ctx context.Context, item *models.QueueItem) error {
	switch item.Type {
	case models.OperationCreateRecord:
		rec, err := e.client.CreateRecord(ctx, item.Payload)
		if err != nil {
			return err
		}
		e.confirm(rec)
		return nil

	case models.OperationUpdateRecord:
		rec, err := e.client.UpdateRecord(ctx, item.Payload)
		if err != nil {
			return err
		}
		e.confirm(rec)
		return nil

	case models.OperationDeleteRecord:
		return e.client.DeleteRecord(ctx, item.Payload)

	case models.OperationCreatePost:
		rec, err := e.client.CreatePost(ctx, item.Payload)
		if err != nil {
			return err
		}
		e.confirm(rec)
		return nil

	case models.OperationUpdateProfile:
		return e.client.UpdateProfile(ctx, item.Payload)

	case models.OperationCreateList:
		return e.client.CreateList(ctx, item.Payload)

	default:
		return errors.New(errors.ErrUnknownOp, fmt.Sprintf("unknown queue type: %s", item.Type))
	}
}

func (e *Engine) confirm(rec *models.Record) {
	if rec != nil && e.onConfirmed != nil {
		e.onConfirmed(rec)
	}
}

// Status returns the point-in-time queue status for the UI.
func (e *Engine) Status() models.QueueStatus {
	status := models.QueueStatus{
		PendingItems: e.queue.Len(),
		IsOnline:     e.monitor.IsOnline(),
		IsSyncing:    e.IsSyncing(),
	}
	if last := e.queue.LastStatus(); last != nil {
		status.LastSync = last.LastSync
		results := last.Results
		status.LastResults = &results
	}
	return status
}

// EnqueueTrigger is the fire-and-forget sync attempt scheduled by a
// successful enqueue. Install it with queue.SetOnEnqueue.
func (e *Engine) EnqueueTrigger(ctx context.Context) func() {
	return func() {
		if e.monitor.IsOffline() {
			return
		}
		select {
		case <-time.After(e.policy.EnqueueSyncDelay):
		case <-ctx.Done():
			return
		}
		if _, err := e.SyncQueue(ctx); err != nil {
			e.log.Error("Enqueue-triggered sync failed", err)
		}
	}
}

// Start wires the automatic triggers: offline->online transitions and
// background->foreground transitions with pending work. The returned stop
// function removes the listener.
func (e *Engine) Start(ctx context.Context) func() {
	remove := e.monitor.AddListener(func(current, previous connectivity.State) {
		switch {
		case current.Online && !previous.Online:
			e.log.Info("Network restored, starting auto-sync")
			go func() {
				select {
				case <-time.After(e.policy.OnlineSyncDelay):
				case <-ctx.Done():
					return
				}
				if _, err := e.SyncQueue(ctx); err != nil {
					e.log.Error("Auto-sync failed", err)
				}
			}()

		case current.AppActive && !previous.AppActive && e.queue.Len() > 0:
			e.log.Info("App foregrounded with pending items, starting sync")
			go func() {
				if _, err := e.SyncQueue(ctx); err != nil {
					e.log.Error("Foreground sync failed", err)
				}
			}()
		}
	})
	return remove
}

// MarshalStatus renders Status as JSON for the FFI boundary.
func (e *Engine) MarshalStatus() (string, error) {
	data, err := json.Marshal(e.Status())
	if err != nil {
		return "", err
	}
	return string(data), nil
}
