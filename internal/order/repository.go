package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Filter narrows List; zero fields match everything.
type Filter struct {
	CustomerID string
	Status     Status
}

func (f Filter) match(o Order) bool {
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Insert stores a new order. It returns ErrDuplicateID, storing nothing,
	// when the id is taken.
	Insert(ctx context.Context, ord Order) error
	Get(ctx context.Context, id string) (Order, error)
	// UpdateStatus sets status and updated_at and returns the stored order.
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Order, error)
	// List returns matching orders, newest first.
	List(ctx context.Context, f Filter) ([]Order, error)
}

func sortNewestFirst(orders []Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
}

// InMemoryRepository keeps orders in a map. Stored orders are copied on the
// way in and out.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: map[string]Order{}}
}

func (r *InMemoryRepository) Insert(ctx context.Context, ord Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[ord.ID]; ok {
		return ErrDuplicateID
	}
	r.orders[ord.ID] = ord.Clone()
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o.Clone(), nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = at
	r.orders[id] = o
	return o.Clone(), nil
}

func (r *InMemoryRepository) List(ctx context.Context, f Filter) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		if f.match(o) {
			out = append(out, o.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}
