package catalog

import (
	"context"
	"fmt"
	"sync"
)

// memoryRepo is an in-memory Repository used by tests and local tooling.
// InTx emulates transactional rollback by snapshotting state.
type memoryRepo struct {
	mu         sync.RWMutex
	locations  map[string]Location
	categories map[string]Category
	items      map[string]Item
	variations map[string]Variation
	vendors    map[string]Vendor
	inventory  map[string]InventoryLevel // keyed objectID + "\x00" + locationID
}

// NewMemoryRepository creates an empty in-memory catalog repository.
func NewMemoryRepository() Repository {
	return &memoryRepo{
		locations:  make(map[string]Location),
		categories: make(map[string]Category),
		items:      make(map[string]Item),
		variations: make(map[string]Variation),
		vendors:    make(map[string]Vendor),
		inventory:  make(map[string]InventoryLevel),
	}
}

func levelKey(objectID, locationID string) string { return objectID + "\x00" + locationID }

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r *memoryRepo) InTx(_ context.Context, fn func(Repository) error) error {
	r.mu.Lock()
	locations := copyMap(r.locations)
	categories := copyMap(r.categories)
	items := copyMap(r.items)
	variations := copyMap(r.variations)
	vendors := copyMap(r.vendors)
	inventory := copyMap(r.inventory)
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.locations = locations
		r.categories = categories
		r.items = items
		r.variations = variations
		r.vendors = vendors
		r.inventory = inventory
		r.mu.Unlock()
		return err
	}
	return nil
}

func upsertValue[V comparable](m map[string]V, key string, v V) UpsertOutcome {
	prev, ok := m[key]
	if ok && prev == v {
		return Unchanged
	}
	m[key] = v
	if ok {
		return Updated
	}
	return Inserted
}

func (r *memoryRepo) UpsertLocation(_ context.Context, l *Location) (UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsertValue(r.locations, l.RemoteID, *l), nil
}

func (r *memoryRepo) UpsertCategory(_ context.Context, c *Category) (UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsertValue(r.categories, c.RemoteID, *c), nil
}

func (r *memoryRepo) UpsertItem(_ context.Context, i *Item) (UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsertValue(r.items, i.RemoteID, *i), nil
}

func (r *memoryRepo) UpsertVariation(_ context.Context, v *Variation) (UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsertValue(r.variations, v.RemoteID, *v), nil
}

func (r *memoryRepo) UpsertVendor(_ context.Context, v *Vendor) (UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsertValue(r.vendors, v.RemoteID, *v), nil
}

func (r *memoryRepo) UpsertInventoryLevel(_ context.Context, lvl *InventoryLevel) (UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsertValue(r.inventory, levelKey(lvl.CatalogObjectID, lvl.LocationID), *lvl), nil
}

func (r *memoryRepo) RemoteIDs(_ context.Context, kind Kind) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[string]struct{})
	switch kind {
	case KindLocations:
		for id, l := range r.locations {
			if !l.IsDeleted {
				ids[id] = struct{}{}
			}
		}
	case KindCategories:
		for id, c := range r.categories {
			if !c.IsDeleted {
				ids[id] = struct{}{}
			}
		}
	case KindItems:
		for id, i := range r.items {
			if !i.IsDeleted {
				ids[id] = struct{}{}
			}
		}
	case KindVariations:
		for id, v := range r.variations {
			if !v.IsDeleted {
				ids[id] = struct{}{}
			}
		}
	case KindVendors:
		for id, v := range r.vendors {
			if !v.IsDeleted {
				ids[id] = struct{}{}
			}
		}
	default:
		return nil, fmt.Errorf("remote ids: %s has no remote_id key", kind)
	}
	return ids, nil
}

func (r *memoryRepo) MarkDeleted(_ context.Context, kind Kind, remoteIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range remoteIDs {
		switch kind {
		case KindLocations:
			if l, ok := r.locations[id]; ok {
				l.IsDeleted = true
				r.locations[id] = l
			}
		case KindCategories:
			if c, ok := r.categories[id]; ok {
				c.IsDeleted = true
				r.categories[id] = c
			}
		case KindItems:
			if i, ok := r.items[id]; ok {
				i.IsDeleted = true
				r.items[id] = i
			}
		case KindVariations:
			if v, ok := r.variations[id]; ok {
				v.IsDeleted = true
				r.variations[id] = v
			}
		case KindVendors:
			if v, ok := r.vendors[id]; ok {
				v.IsDeleted = true
				r.vendors[id] = v
			}
		default:
			return fmt.Errorf("mark deleted: %s has no soft-delete flag", kind)
		}
	}
	return nil
}

func (r *memoryRepo) ClearForRefresh(_ context.Context, kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case KindInventory:
		r.inventory = make(map[string]InventoryLevel)
	case KindVariations:
		r.inventory = make(map[string]InventoryLevel)
		r.variations = make(map[string]Variation)
	case KindItems:
		r.inventory = make(map[string]InventoryLevel)
		r.variations = make(map[string]Variation)
		r.items = make(map[string]Item)
	case KindCategories:
		r.inventory = make(map[string]InventoryLevel)
		r.variations = make(map[string]Variation)
		r.items = make(map[string]Item)
		r.categories = make(map[string]Category)
	case KindLocations:
		r.inventory = make(map[string]InventoryLevel)
		r.locations = make(map[string]Location)
	case KindVendors:
		r.vendors = make(map[string]Vendor)
	default:
		return fmt.Errorf("clear for refresh: unknown kind %q", kind)
	}
	return nil
}

func (r *memoryRepo) Count(_ context.Context, kind Kind) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch kind {
	case KindLocations:
		return len(r.locations), nil
	case KindCategories:
		return len(r.categories), nil
	case KindItems:
		return len(r.items), nil
	case KindVariations:
		return len(r.variations), nil
	case KindVendors:
		return len(r.vendors), nil
	case KindInventory:
		return len(r.inventory), nil
	}
	return 0, fmt.Errorf("count: unknown kind %q", kind)
}

func (r *memoryRepo) ActiveLocationIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, l := range r.locations {
		if !l.IsDeleted && l.Status == "ACTIVE" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
