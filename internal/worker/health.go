package worker

import (
	"sync"
	"time"
)

// Status is the last known state of one component.
type Status struct {
	Healthy     bool
	LastCheck   time.Time
	LastSuccess time.Time
	LastError   error
	Message     string
	Failures    int // consecutive
}

// Health tracks the state of the worker's components (jobs, cleanup, gateway).
type Health struct {
	mu         sync.RWMutex
	components map[string]Status
}

// NewHealth creates a new health tracker.
func NewHealth() *Health {
	return &Health{components: make(map[string]Status)}
}

// SetHealthy marks a component as healthy.
func (h *Health) SetHealthy(component, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	h.components[component] = Status{
		Healthy:     true,
		LastCheck:   now,
		LastSuccess: now,
		Message:     message,
	}
}

// SetUnhealthy marks a component as unhealthy.
func (h *Health) SetUnhealthy(component string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.components[component]
	st.Healthy = false
	st.LastCheck = time.Now()
	st.LastError = err
	st.Message = err.Error()
	st.Failures++
	h.components[component] = st
}

// Status returns the status of a component.
func (h *Health) Status(component string) (Status, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st, ok := h.components[component]
	return st, ok
}

// All returns a copy of every component status.
func (h *Health) All() map[string]Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]Status, len(h.components))
	for name, st := range h.components {
		out[name] = st
	}
	return out
}

// Healthy returns true if every component is healthy.
func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, st := range h.components {
		if !st.Healthy {
			return false
		}
	}
	return true
}
