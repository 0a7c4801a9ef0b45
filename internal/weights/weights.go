// Package weights implements the Weight Resolver (spec.md §4.5): it
// resolves the per-component weight vector for a tenant, falling back
// to the package default, and keeps the result in a short-lived
// process-local cache so repeated orchestrator calls for the same
// tenant don't round-trip to the config store every time.
//
// This is the one piece of module-level state the system carries
// (Design Notes §9); everything else the resolver needs lives behind
// the TenantConfigStore interface.
package weights

import (
	"sync"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
)

// CacheTTL bounds how long a resolved weight vector is reused before
// the resolver consults the store again (spec.md §4.5: "Cached
// in-process for <=5 minutes").
const CacheTTL = 5 * time.Minute

// TenantConfigStore looks up a tenant's weight override, modeled on
// the defensive ConfigurationClient the original stub handlers import
// (falling back to defaults when unavailable) -- see SPEC_FULL.md §3.
type TenantConfigStore interface {
	// GetWeights returns the tenant's configured override, or
	// (nil, false) if the tenant has none (the resolver then falls
	// back to package defaults).
	GetWeights(tenantID string) (types.Weights, bool, error)
}

type entry struct {
	weights  types.Weights
	cachedAt time.Time
}

// Resolver resolves a tenant's weight vector: tenant-specific override
// first, global default otherwise, always normalized so components sum
// to 1.0 (spec.md §4.5).
type Resolver struct {
	store TenantConfigStore
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]entry
}

// New builds a Resolver backed by store. A nil store is valid and
// causes every lookup to fall back to defaults (useful for tests and
// for deployments that haven't wired tenant overrides yet).
func New(store TenantConfigStore) *Resolver {
	return &Resolver{
		store: store,
		ttl:   CacheTTL,
		cache: make(map[string]entry),
	}
}

// Resolve returns the effective weight vector for tenantID. Lookup
// order: in-process cache (if fresh) -> tenant override from the store
// -> package default. The result is always Normalize()d.
func (r *Resolver) Resolve(tenantID string) types.Weights {
	if w, ok := r.cached(tenantID); ok {
		return w
	}

	w := r.lookup(tenantID)
	r.remember(tenantID, w)
	return w
}

// ResolveWithOverride applies an explicit per-request override
// (spec.md §6.1 weights_override) on top of the tenant's resolved
// vector: any component named in override replaces the tenant/default
// value before normalization. A nil/empty override returns Resolve's
// result unchanged.
func (r *Resolver) ResolveWithOverride(tenantID string, override map[string]float64) types.Weights {
	base := r.Resolve(tenantID)
	if len(override) == 0 {
		return base
	}
	merged := base.Clone()
	for name, v := range override {
		merged[name] = v
	}
	return merged.Normalize()
}

func (r *Resolver) cached(tenantID string) (types.Weights, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.cache[tenantID]
	if !ok {
		return nil, false
	}
	if time.Since(e.cachedAt) >= r.ttl {
		return nil, false
	}
	return e.weights, true
}

func (r *Resolver) remember(tenantID string, w types.Weights) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[tenantID] = entry{weights: w, cachedAt: time.Now()}
}

func (r *Resolver) lookup(tenantID string) types.Weights {
	if r.store == nil || tenantID == "" {
		return types.DefaultWeights()
	}

	override, ok, err := r.store.GetWeights(tenantID)
	if err != nil || !ok {
		return types.DefaultWeights()
	}
	return override.Normalize()
}

// Invalidate drops any cached entry for tenantID, forcing the next
// Resolve to consult the store again (used after an admin edits a
// tenant's weight configuration).
func (r *Resolver) Invalidate(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, tenantID)
}

// InMemoryStore is a TenantConfigStore fake for tests and for
// deployments without a Postgres tenant-config table.
type InMemoryStore struct {
	mu      sync.RWMutex
	weights map[string]types.Weights
}

// NewInMemoryStore returns an empty in-memory TenantConfigStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{weights: make(map[string]types.Weights)}
}

// Set installs tenantID's weight override.
func (s *InMemoryStore) Set(tenantID string, w types.Weights) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[tenantID] = w
}

// GetWeights implements TenantConfigStore.
func (s *InMemoryStore) GetWeights(tenantID string) (types.Weights, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weights[tenantID]
	return w, ok, nil
}
