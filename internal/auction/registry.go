package auction

import (
	"sync"

	"DutchAuction/internal/models"
)

// Registry is the set of currently open auctions keyed by asset. Terminal
// auctions are dropped from the registry; their settlement records live in
// the audit store.
type Registry struct {
	mu   sync.RWMutex
	open map[string]*Machine
}

func NewRegistry() *Registry {
	return &Registry{open: make(map[string]*Machine)}
}

// Create registers a new open auction for its asset key. At most one open
// auction may exist per key at any time.
func (r *Registry) Create(rec models.Auction) (*Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.open[rec.AssetKey]; exists {
		return nil, ErrDuplicateAuction
	}
	m := newMachine(rec)
	r.open[rec.AssetKey] = m
	return m, nil
}

func (r *Registry) Lookup(assetKey string) (*Machine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.open[assetKey]
	return m, ok
}

// Drop removes a terminal auction from the open set, freeing the key for
// the next auction of the same asset.
func (r *Registry) Drop(assetKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, assetKey)
}

// OpenKeys lists the asset keys with a currently open auction.
func (r *Registry) OpenKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.open))
	for k := range r.open {
		keys = append(keys, k)
	}
	return keys
}
