package order

import (
	"context"
	"database/sql"
	"sync"

	"github.com/mkandawire/possync/internal/modules/catalog"
)

// memoryRepo is an in-memory Repository used by tests.
type memoryRepo struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

// NewMemoryRepository creates an empty in-memory order repository.
func NewMemoryRepository() Repository {
	return &memoryRepo{orders: make(map[string]*Order)}
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.LineItems = make([]*LineItem, len(o.LineItems))
	for i, li := range o.LineItems {
		item := *li
		c.LineItems[i] = &item
	}
	return &c
}

func ordersEqual(a, b *Order) bool {
	if a.LocationID != b.LocationID || a.State != b.State ||
		a.TotalAmount != b.TotalAmount || a.Currency != b.Currency ||
		!a.CreatedAt.Equal(b.CreatedAt) || !a.UpdatedAt.Equal(b.UpdatedAt) ||
		len(a.LineItems) != len(b.LineItems) {
		return false
	}
	for i := range a.LineItems {
		if *a.LineItems[i] != *b.LineItems[i] {
			return false
		}
	}
	return true
}

func (r *memoryRepo) InTx(_ context.Context, fn func(Repository) error) error {
	r.mu.Lock()
	snapshot := make(map[string]*Order, len(r.orders))
	for id, o := range r.orders {
		snapshot[id] = cloneOrder(o)
	}
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.orders = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memoryRepo) Upsert(_ context.Context, o *Order) (catalog.UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.orders[o.RemoteID]
	if ok && ordersEqual(prev, o) {
		return catalog.Unchanged, nil
	}
	r.orders[o.RemoteID] = cloneOrder(o)
	if ok {
		return catalog.Updated, nil
	}
	return catalog.Inserted, nil
}

func (r *memoryRepo) GetByRemoteID(_ context.Context, remoteID string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[remoteID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneOrder(o), nil
}

func (r *memoryRepo) ClearAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = make(map[string]*Order)
	return nil
}

func (r *memoryRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders), nil
}
