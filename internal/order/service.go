package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/cafe-order-backend/internal/menu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultIDAttempts = 10

// PriceLookup resolves the current price of a menu item. menu.ErrNotFound
// marks an item the menu no longer carries.
type PriceLookup interface {
	Price(ctx context.Context, itemID string) (decimal.Decimal, error)
}

// StatusRecorder is told about every successful status change.
type StatusRecorder interface {
	StatusChanged(status string)
}

// NewOrder is the input to Create. Items is copied; the caller keeps
// ownership of the map.
type NewOrder struct {
	CustomerID  string
	DisplayName string
	Contact     *string
	Items       map[string]int
	Notes       string
}

// NewID draws an 8-character uppercase token from a random UUID.
func NewID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(gen func() string, attempts int) Option {
	return func(s *Service) {
		s.newID = gen
		if attempts > 0 {
			s.attempts = attempts
		}
	}
}

func WithStatusRecorder(rec StatusRecorder) Option {
	return func(s *Service) { s.recorder = rec }
}

// Service provides business logic for orders.
type Service struct {
	repo     Repository
	prices   PriceLookup
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
	attempts int
	recorder StatusRecorder
}

func NewService(repo Repository, prices PriceLookup, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		prices:   prices,
		log:      log,
		now:      time.Now,
		newID:    NewID,
		attempts: defaultIDAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// total prices items; ids the menu cannot resolve are returned sorted and
// left out of the sum.
func (s *Service) total(ctx context.Context, items map[string]int) (decimal.Decimal, []string, error) {
	total := decimal.Zero
	var unpriced []string
	for id, qty := range items {
		price, err := s.prices.Price(ctx, id)
		if errors.Is(err, menu.ErrNotFound) {
			unpriced = append(unpriced, id)
			continue
		}
		if err != nil {
			return decimal.Decimal{}, nil, fmt.Errorf("price %s: %w", id, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	sort.Strings(unpriced)
	return total, unpriced, nil
}

// Create turns a cart snapshot into a stored Pending order.
func (s *Service) Create(ctx context.Context, in NewOrder) (Order, error) {
	ctx, span := otel.Tracer("order").Start(ctx, "order.Create")
	defer span.End()

	if len(in.Items) == 0 {
		return Order{}, ErrEmptyCart
	}
	items := make(map[string]int, len(in.Items))
	for id, qty := range in.Items {
		if qty <= 0 {
			return Order{}, fmt.Errorf("%w: %s=%d", ErrInvalidQuantity, id, qty)
		}
		items[id] = qty
	}

	total, unpriced, err := s.total(ctx, items)
	if err != nil {
		span.RecordError(err)
		return Order{}, err
	}
	if len(unpriced) > 0 {
		s.log.Warn("order contains items missing from the menu",
			zap.String("customer_id", in.CustomerID), zap.Strings("items", unpriced))
	}

	now := s.stamp()
	ord := Order{
		CustomerID:    in.CustomerID,
		DisplayName:   in.DisplayName,
		Items:         items,
		Notes:         in.Notes,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		TotalAmount:   total,
		UnpricedItems: unpriced,
	}
	if in.Contact != nil {
		contact := *in.Contact
		ord.Contact = &contact
	}

	for i := 0; i < s.attempts; i++ {
		ord.ID = s.newID()
		err = s.repo.Insert(ctx, ord)
		if errors.Is(err, ErrDuplicateID) {
			s.log.Debug("order id collision, drawing another", zap.String("order_id", ord.ID))
			continue
		}
		if err != nil {
			s.log.Error("failed to store order", zap.String("customer_id", in.CustomerID), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist")
			return Order{}, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		span.SetAttributes(attribute.String("order.id", ord.ID), attribute.String("order.total", total.String()))
		s.log.Info("order created", zap.String("order_id", ord.ID),
			zap.String("customer_id", ord.CustomerID), zap.String("total", total.String()))
		return ord.Clone(), nil
	}
	s.log.Error("gave up drawing a unique order id", zap.Int("attempts", s.attempts))
	return Order{}, fmt.Errorf("%w: %w", ErrPersistence, ErrDuplicateID)
}

// stamp is the current time at the precision every backend stores, so a
// returned order equals the one read back later. TIMESTAMPTZ keeps microseconds.
func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	ord, err := s.repo.Get(ctx, strings.ToUpper(strings.TrimSpace(id)))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Order{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return ord, err
}

// List returns orders newest first, optionally only those in status.
func (s *Service) List(ctx context.Context, status Status) ([]Order, error) {
	orders, err := s.repo.List(ctx, Filter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return orders, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	orders, err := s.repo.List(ctx, Filter{CustomerID: customerID})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return orders, nil
}

// UpdateStatus moves an order to the status named by raw. Any known status may
// follow any other.
func (s *Service) UpdateStatus(ctx context.Context, id, raw string) (Order, error) {
	status, err := ParseStatus(raw)
	if err != nil {
		return Order{}, err
	}
	id = strings.ToUpper(strings.TrimSpace(id))
	ord, err := s.repo.UpdateStatus(ctx, id, status, s.stamp())
	if errors.Is(err, ErrNotFound) {
		return Order{}, err
	}
	if err != nil {
		s.log.Error("failed to update order status", zap.String("order_id", id), zap.Error(err))
		return Order{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.log.Info("order status updated", zap.String("order_id", id), zap.String("status", string(status)))
	if s.recorder != nil {
		s.recorder.StatusChanged(string(status))
	}
	return ord, nil
}
