package menu

import (
	"context"

	"github.com/shopspring/decimal"
)

// Service exposes menu lookups to handlers, carts and orders.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.repo.GetByID(ctx, id)
}

// Price returns the current price of an item, ErrNotFound if the menu no
// longer carries it.
func (s *Service) Price(ctx context.Context, id string) (decimal.Decimal, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return it.Price, nil
}

// Category is one menu section and how many items it holds.
type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories lists menu sections in menu order.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0)
	index := map[string]int{}
	for _, it := range items {
		i, ok := index[it.Category]
		if !ok {
			i = len(out)
			index[it.Category] = i
			out = append(out, Category{Name: it.Category})
		}
		out[i].Count++
	}
	return out, nil
}
