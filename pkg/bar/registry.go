package bar

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// SlotStatus tracks the runtime state of one bar slot. The bar updates it
// after every item its widget produces.
type SlotStatus struct {
	Name       string    `json:"name"`
	Healthy    bool      `json:"healthy"`
	Finished   bool      `json:"finished,omitempty"`
	LastUpdate time.Time `json:"last_update,omitzero"`
	LastError  string    `json:"last_error,omitempty"`
	Updates    int64     `json:"updates"`
	Errors     int64     `json:"errors"`
}

// Registry holds one SlotStatus per slot. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []string
	slots map[string]*SlotStatus
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]*SlotStatus)}
}

// Register adds a slot. Slot names must be unique.
func (r *Registry) Register(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.slots[name]; exists {
		return fmt.Errorf("slot %q already registered", name)
	}
	r.order = append(r.order, name)
	r.slots[name] = &SlotStatus{Name: name, Healthy: true}
	return nil
}

// Status returns a copy of the named slot's status.
func (r *Registry) Status(name string) (SlotStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.slots[name]
	if !ok {
		return SlotStatus{}, false
	}
	return *s, true
}

// AllStatus returns a copy of every status in slot order.
func (r *Registry) AllStatus() []SlotStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SlotStatus, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.slots[name])
	}
	return out
}

// Unhealthy returns the sorted names of slots whose last item failed.
func (r *Registry) Unhealthy() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, s := range r.slots {
		if !s.Healthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Registry) recordUpdate(name string, at time.Time) {
	r.update(name, func(s *SlotStatus) {
		s.Healthy = true
		s.LastUpdate = at
		s.Updates++
	})
}

func (r *Registry) recordError(name string, err error) {
	r.update(name, func(s *SlotStatus) {
		s.Healthy = false
		s.LastError = err.Error()
		s.Errors++
	})
}

func (r *Registry) recordFinished(name string) {
	r.update(name, func(s *SlotStatus) { s.Finished = true })
}

// update applies fn to the named slot. Caller must not hold the lock.
func (r *Registry) update(name string, fn func(s *SlotStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.slots[name]; ok {
		fn(s)
	}
}
