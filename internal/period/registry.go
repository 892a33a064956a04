// Package period manages the set of independent schedule networks a server
// can serve — one *network.Network per GTFS "period" (a service-date range
// with its own binary artifacts) — and the single active selection a
// routing facade queries against.
package period

import (
	"fmt"
	"sort"
	"sync"

	"github.com/transitcore/raptorcore/internal/network"
	"github.com/transitcore/raptorcore/internal/tcodec"
)

// Registry holds every loaded period keyed by id and tracks which one is
// active. Safe for concurrent use: Active is a hot-path read guarded by a
// RWMutex, Load/SetActive are rarer writes.
type Registry struct {
	mu      sync.RWMutex
	periods map[string]*network.Network
	active  string
}

// NewRegistry returns an empty registry with nothing loaded and no active
// period; callers must Load at least one period before calling Active.
func NewRegistry() *Registry {
	return &Registry{periods: make(map[string]*network.Network)}
}

// Load reads the stop and route binary artifacts at stopsPath/routesPath
// through tcodec, builds a *network.Network from them, and registers it
// under id. The first period loaded into an empty registry becomes active
// automatically.
func (r *Registry) Load(id, stopsPath, routesPath string) error {
	stopInputs, err := tcodec.ReadStops(stopsPath)
	if err != nil {
		return fmt.Errorf("period %s: reading stops: %w", id, err)
	}
	routeInputs, err := tcodec.ReadRoutes(routesPath)
	if err != nil {
		return fmt.Errorf("period %s: reading routes: %w", id, err)
	}

	net := network.Build(stopInputs, routeInputs)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.periods[id] = net
	if r.active == "" {
		r.active = id
	}
	return nil
}

// LoadNetwork registers an already-built network directly, bypassing
// tcodec. Used by tests and by callers running a fresh GTFS import that
// never round-trips through the binary format.
func (r *Registry) LoadNetwork(id string, net *network.Network) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.periods[id] = net
	if r.active == "" {
		r.active = id
	}
}

// SetActive switches the active period. It fails if id was never loaded.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.periods[id]; !ok {
		return fmt.Errorf("period: unknown period id %q", id)
	}
	r.active = id
	return nil
}

// Active returns the currently active network, or nil if nothing has been
// loaded yet.
func (r *Registry) Active() *network.Network {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.periods[r.active]
}

// ActiveID returns the id of the currently active period, or "" if nothing
// has been loaded yet.
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Periods lists every loaded period id, sorted for stable output.
func (r *Registry) Periods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.periods))
	for id := range r.periods {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
