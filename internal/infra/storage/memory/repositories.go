package memory

import (
	"context"
	"sort"
	"sync"

	"staycal/internal/domain/property"
)

// PropertyRepository is an in-memory implementation for local runs and tests.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[property.ID]*property.Property
}

// NewPropertyRepository builds an empty repository.
func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[property.ID]*property.Property)}
}

// ByID returns a property or property.ErrNotFound.
func (r *PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, property.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

// Save stores/updates a property entry.
func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Version++
	clone := *p
	r.items[p.ID] = &clone
	return nil
}

// List returns every property ordered by id.
func (r *PropertyRepository) List(ctx context.Context) ([]*property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*property.Property, 0, len(r.items))
	for _, p := range r.items {
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ property.Repository = (*PropertyRepository)(nil)
