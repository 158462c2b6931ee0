package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/cafe-order-backend/internal/menu"
)

// Catalog is the part of the menu the cart needs.
type Catalog interface {
	Get(ctx context.Context, id string) (menu.Item, error)
}

type Line struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	// Available is false when the menu no longer carries the item.
	Available bool `json:"available"`
}

// View is a priced rendering of a cart for display.
type View struct {
	Lines []Line          `json:"lines"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Service orchestrates cart operations.
type Service struct {
	store   Store
	catalog Catalog
}

func NewService(store Store, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog}
}

func (s *Service) checkItem(ctx context.Context, itemID string) error {
	if _, err := s.catalog.Get(ctx, itemID); err != nil {
		if errors.Is(err, menu.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("menu lookup %s: %w", itemID, err)
	}
	return nil
}

// Add adds delta of itemID to the customer's cart. Positive deltas require
// the item to be on the menu; removals always go through.
func (s *Service) Add(ctx context.Context, customerID, itemID string, delta int) (int, error) {
	if customerID == "" {
		return 0, ErrNoCustomer
	}
	if delta == 0 {
		return s.store.Quantity(ctx, customerID, itemID)
	}
	if delta > 0 {
		if err := s.checkItem(ctx, itemID); err != nil {
			return 0, err
		}
	}
	return s.store.Add(ctx, customerID, itemID, delta)
}

func (s *Service) SetQuantity(ctx context.Context, customerID, itemID string, qty int) error {
	if customerID == "" {
		return ErrNoCustomer
	}
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if qty > 0 {
		if err := s.checkItem(ctx, itemID); err != nil {
			return err
		}
	}
	return s.store.SetQuantity(ctx, customerID, itemID, qty)
}

func (s *Service) Remove(ctx context.Context, customerID, itemID string) error {
	if customerID == "" {
		return ErrNoCustomer
	}
	return s.store.Remove(ctx, customerID, itemID)
}

func (s *Service) Items(ctx context.Context, customerID string) (map[string]int, error) {
	if customerID == "" {
		return nil, ErrNoCustomer
	}
	return s.store.Items(ctx, customerID)
}

func (s *Service) Clear(ctx context.Context, customerID string) error {
	if customerID == "" {
		return ErrNoCustomer
	}
	return s.store.Clear(ctx, customerID)
}

// View prices the cart against the current menu. Lines are sorted by item id.
func (s *Service) View(ctx context.Context, customerID string) (View, error) {
	items, err := s.Items(ctx, customerID)
	if err != nil {
		return View{}, err
	}
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	v := View{Lines: make([]Line, 0, len(ids)), Total: decimal.Zero}
	for _, id := range ids {
		qty := items[id]
		line := Line{ItemID: id, Quantity: qty}
		it, err := s.catalog.Get(ctx, id)
		switch {
		case err == nil:
			line.Name = it.Name
			line.UnitPrice = it.Price
			line.Subtotal = it.Price.Mul(decimal.NewFromInt(int64(qty)))
			line.Available = true
			v.Total = v.Total.Add(line.Subtotal)
		case errors.Is(err, menu.ErrNotFound):
		default:
			return View{}, fmt.Errorf("menu lookup %s: %w", id, err)
		}
		v.Count += qty
		v.Lines = append(v.Lines, line)
	}
	return v, nil
}
