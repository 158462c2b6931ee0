package menu

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound = errors.New("menu item not found")
)

// Repository provides read access to the menu.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id string) (Item, error)
}

// InMemoryRepository serves a fixed menu. It keeps insertion order for List.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items []Item
	byID  map[string]int
}

func NewInMemoryRepository(seed []Item) *InMemoryRepository {
	r := &InMemoryRepository{}
	r.Reset(seed)
	return r
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Item, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return r.items[i], nil
}

// Reset replaces the whole menu. Later duplicates of an id win.
func (r *InMemoryRepository) Reset(items []Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make([]Item, 0, len(items))
	r.byID = make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := r.byID[it.ID]; ok {
			r.items[i] = it
			continue
		}
		r.byID[it.ID] = len(r.items)
		r.items = append(r.items, it)
	}
}
