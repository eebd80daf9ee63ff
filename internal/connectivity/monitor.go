// Package connectivity tracks the host platform's network and app lifecycle
// state. The host pushes transitions in (SetOnline, SetAppActive); core
// components read the current state and subscribe to changes.
package connectivity

import (
	"sync"
	"time"

	"github.com/bestlist/vitara-core/internal/logging"
)

// State is a snapshot of connectivity and lifecycle.
type State struct {
	Online    bool
	AppActive bool
}

// Listener is invoked on every state change with the new and previous state.
type Listener func(current, previous State)

// Monitor is the connectivity and lifecycle source of truth.
type Monitor struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
	log       *logging.ComponentLogger
}

// NewMonitor creates a Monitor. The device is assumed online and foregrounded
// until the host reports otherwise.
func NewMonitor() *Monitor {
	return &Monitor{
		state:     State{Online: true, AppActive: true},
		listeners: make(map[int]Listener),
		log:       logging.Component("connectivity"),
	}
}

// IsOnline reports whether the device currently has connectivity.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Online
}

// IsOffline reports the inverse of IsOnline.
func (m *Monitor) IsOffline() bool {
	return !m.IsOnline()
}

// IsAppActive reports whether the app is foregrounded.
func (m *Monitor) IsAppActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.AppActive
}

// SetOnline records a connectivity transition reported by the host.
func (m *Monitor) SetOnline(online bool) {
	m.update(func(s *State) { s.Online = online })
}

// SetAppActive records a foreground/background transition reported by the host.
func (m *Monitor) SetAppActive(active bool) {
	m.update(func(s *State) { s.AppActive = active })
}

func (m *Monitor) update(apply func(*State)) {
	m.mu.Lock()
	previous := m.state
	next := previous
	apply(&next)
	if next == previous {
		m.mu.Unlock()
		return
	}
	m.state = next
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	m.log.Info("State changed", map[string]interface{}{
		"online":     next.Online,
		"app_active": next.AppActive,
	})

	for _, l := range listeners {
		l(next, previous)
	}
}

// AddListener registers a state-change listener and returns a function that
// removes it.
func (m *Monitor) AddListener(l Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// WaitForOnline blocks until the device is online, or returns false when the
// timeout elapses first.
func (m *Monitor) WaitForOnline(timeout time.Duration) bool {
	if m.IsOnline() {
		return true
	}

	ch := make(chan struct{}, 1)
	remove := m.AddListener(func(current, previous State) {
		if current.Online && !previous.Online {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	})
	defer remove()

	// Re-check after subscribing so a transition between the first check
	// and AddListener is not lost.
	if m.IsOnline() {
		return true
	}

	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
