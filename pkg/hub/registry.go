package hub

import (
	"sort"
	"sync"

	"github.com/efficientgo/core/errors"
)

// Registry tracks hubs by device identifier (typically the BLE address).
// Consumers receive it by injection; there is no package-level instance.
type Registry struct {
	mu   sync.RWMutex
	hubs map[string]*Hub
}

func NewRegistry() *Registry {
	return &Registry{hubs: make(map[string]*Hub)}
}

// Add registers h under its device id. Registering an id twice is an error;
// remove the old hub first.
func (r *Registry) Add(h *Hub) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hubs[h.DeviceID()]; ok {
		return errors.Newf("hub %q already registered", h.DeviceID())
	}
	r.hubs[h.DeviceID()] = h
	return nil
}

func (r *Registry) Get(deviceID string) (*Hub, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hubs[deviceID]
	return h, ok
}

// Remove unregisters and returns the hub so the caller can close it.
func (r *Registry) Remove(deviceID string) (*Hub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hubs[deviceID]
	if ok {
		delete(r.hubs, deviceID)
	}
	return h, ok
}

// IDs returns the registered device ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.hubs))
	for id := range r.hubs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
