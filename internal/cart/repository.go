package cart

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MaxQuantity bounds a single line of a cart.
const MaxQuantity = 999

var (
	ErrCartFull        = errors.New("cart is full")
	ErrInvalidQuantity = errors.New("quantity out of range")
	ErrItemNotFound    = errors.New("item not available")
	ErrNoCustomer      = errors.New("customer id is required")
)

// Store holds one live cart per customer: a mapping of item id to a positive
// quantity. Operations for different customers never block each other.
type Store interface {
	// Add merges delta into the item's quantity and returns the new quantity.
	// A result of zero or less removes the item; one above MaxQuantity is
	// ErrInvalidQuantity and leaves the cart unchanged. ErrCartFull is returned,
	// and the cart left unchanged, when the item is new and the cart already
	// holds the maximum number of distinct items.
	Add(ctx context.Context, customerID, itemID string, delta int) (int, error)
	// SetQuantity sets an absolute quantity; zero removes the item.
	SetQuantity(ctx context.Context, customerID, itemID string, qty int) error
	Remove(ctx context.Context, customerID, itemID string) error
	// Quantity is zero for items not in the cart.
	Quantity(ctx context.Context, customerID, itemID string) (int, error)
	// Items returns a copy of the cart; empty when there is none.
	Items(ctx context.Context, customerID string) (map[string]int, error)
	Clear(ctx context.Context, customerID string) error
}

func applyAdd(items map[string]int, itemID string, delta, maxItems int) (int, error) {
	cur, exists := items[itemID]
	if delta > MaxQuantity-cur {
		return 0, ErrInvalidQuantity
	}
	next := cur + delta
	if next <= 0 {
		delete(items, itemID)
		return 0, nil
	}
	if !exists && len(items) >= maxItems {
		return 0, ErrCartFull
	}
	items[itemID] = next
	return next, nil
}

func applySet(items map[string]int, itemID string, qty, maxItems int) error {
	if qty < 0 || qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	if qty == 0 {
		delete(items, itemID)
		return nil
	}
	if _, exists := items[itemID]; !exists && len(items) >= maxItems {
		return ErrCartFull
	}
	items[itemID] = qty
	return nil
}

type entry struct {
	mu      sync.Mutex
	items   map[string]int
	touched time.Time
	// dead entries have been dropped from the map; holders must reload.
	dead bool
}

// InMemoryRepository keeps carts in process memory. Each customer has its own
// lock; idle carts older than the TTL read as empty and are dropped by Sweep.
type InMemoryRepository struct {
	carts    sync.Map // customerID -> *entry
	maxItems int
	ttl      time.Duration
	now      func() time.Time
}

func NewInMemoryRepository(maxItems int, ttl time.Duration) *InMemoryRepository {
	return &InMemoryRepository{maxItems: maxItems, ttl: ttl, now: time.Now}
}

func (r *InMemoryRepository) expired(e *entry) bool {
	return r.ttl > 0 && r.now().Sub(e.touched) > r.ttl
}

// with runs fn with the customer's entry locked. Without create, fn is not
// called when the customer has no cart.
func (r *InMemoryRepository) with(customerID string, create bool, fn func(e *entry)) {
	for {
		var v any
		if create {
			v, _ = r.carts.LoadOrStore(customerID, &entry{items: map[string]int{}, touched: r.now()})
		} else {
			var ok bool
			if v, ok = r.carts.Load(customerID); !ok {
				return
			}
		}
		e := v.(*entry)
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		if r.expired(e) {
			e.items = map[string]int{}
		}
		fn(e)
		e.mu.Unlock()
		return
	}
}

func (r *InMemoryRepository) Add(ctx context.Context, customerID, itemID string, delta int) (int, error) {
	var (
		qty int
		err error
	)
	r.with(customerID, true, func(e *entry) {
		qty, err = applyAdd(e.items, itemID, delta, r.maxItems)
		if err == nil {
			e.touched = r.now()
		}
	})
	return qty, err
}

func (r *InMemoryRepository) SetQuantity(ctx context.Context, customerID, itemID string, qty int) error {
	if qty < 0 || qty > MaxQuantity {
		return ErrInvalidQuantity
	}
	var err error
	r.with(customerID, qty > 0, func(e *entry) {
		err = applySet(e.items, itemID, qty, r.maxItems)
		if err == nil {
			e.touched = r.now()
		}
	})
	return err
}

func (r *InMemoryRepository) Remove(ctx context.Context, customerID, itemID string) error {
	r.with(customerID, false, func(e *entry) {
		delete(e.items, itemID)
		e.touched = r.now()
	})
	return nil
}

func (r *InMemoryRepository) Quantity(ctx context.Context, customerID, itemID string) (int, error) {
	var qty int
	r.with(customerID, false, func(e *entry) {
		qty = e.items[itemID]
	})
	return qty, nil
}

func (r *InMemoryRepository) Items(ctx context.Context, customerID string) (map[string]int, error) {
	out := map[string]int{}
	r.with(customerID, false, func(e *entry) {
		for k, v := range e.items {
			out[k] = v
		}
	})
	return out, nil
}

func (r *InMemoryRepository) Clear(ctx context.Context, customerID string) error {
	r.with(customerID, false, func(e *entry) {
		e.items = map[string]int{}
		e.dead = true
		r.carts.CompareAndDelete(customerID, e)
	})
	return nil
}

// Sweep drops expired and empty carts and returns how many were removed.
func (r *InMemoryRepository) Sweep() int {
	removed := 0
	r.carts.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if !e.dead && (len(e.items) == 0 || r.expired(e)) {
			e.dead = true
			r.carts.CompareAndDelete(k, e)
			removed++
		}
		e.mu.Unlock()
		return true
	})
	return removed
}
