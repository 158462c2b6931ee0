package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wichananm65/cafe-order-backend/internal/notify"
	"github.com/wichananm65/cafe-order-backend/internal/order"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

var (
	ErrContactConflict = errors.New("give either a phone number or contact info, not both")
	ErrInProgress      = errors.New("checkout already in progress")
)

// Carts is the cart access checkout needs.
type Carts interface {
	Items(ctx context.Context, customerID string) (map[string]int, error)
	Clear(ctx context.Context, customerID string) error
}

type Orders interface {
	Create(ctx context.Context, in order.NewOrder) (order.Order, error)
}

// Recorder receives checkout outcomes. A nil Recorder records nothing.
type Recorder interface {
	OrderPlaced()
	CheckoutFailed(reason string)
	NotifyFailed()
}

// Customer is who the order is for and how to reach them.
type Customer struct {
	DisplayName string
	Phone       string
	ContactInfo string
	Notes       string
}

func (c Customer) contact() (*string, error) {
	phone := strings.TrimSpace(c.Phone)
	info := strings.TrimSpace(c.ContactInfo)
	switch {
	case phone != "" && info != "":
		return nil, ErrContactConflict
	case phone != "":
		return &phone, nil
	case info != "":
		return &info, nil
	}
	return nil, nil
}

type Service struct {
	carts    Carts
	orders   Orders
	notifier notify.Notifier
	catalog  notify.Catalog
	recorder Recorder
	log      *zap.Logger

	inFlight sync.Map // customerID -> struct{}
}

func NewService(carts Carts, orders Orders, notifier notify.Notifier, catalog notify.Catalog, recorder Recorder, log *zap.Logger) *Service {
	return &Service{carts: carts, orders: orders, notifier: notifier, catalog: catalog, recorder: recorder, log: log}
}

func (s *Service) failed(reason string) {
	if s.recorder != nil {
		s.recorder.CheckoutFailed(reason)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, order.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrContactConflict):
		return "invalid_contact"
	case errors.Is(err, ErrInProgress):
		return "in_progress"
	case errors.Is(err, order.ErrPersistence):
		return "persistence"
	}
	return "internal"
}

// Finalize turns the customer's cart into an order. The cart is cleared only
// after the order is stored; on any earlier failure it is left as it was.
// Notification is best effort and never fails the checkout.
func (s *Service) Finalize(ctx context.Context, customerID string, cust Customer) (ord order.Order, err error) {
	ctx, span := otel.Tracer("checkout").Start(ctx, "checkout.Finalize")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, failureReason(err))
			s.failed(failureReason(err))
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("customer.id", customerID))

	contact, err := cust.contact()
	if err != nil {
		return order.Order{}, err
	}
	if _, busy := s.inFlight.LoadOrStore(customerID, struct{}{}); busy {
		return order.Order{}, ErrInProgress
	}
	defer s.inFlight.Delete(customerID)

	snapshot, err := s.carts.Items(ctx, customerID)
	if err != nil {
		return order.Order{}, fmt.Errorf("read cart: %w", err)
	}
	if len(snapshot) == 0 {
		return order.Order{}, order.ErrEmptyCart
	}

	ord, err = s.orders.Create(ctx, order.NewOrder{
		CustomerID:  customerID,
		DisplayName: strings.TrimSpace(cust.DisplayName),
		Contact:     contact,
		Items:       snapshot,
		Notes:       strings.TrimSpace(cust.Notes),
	})
	if err != nil {
		return order.Order{}, err
	}
	span.SetAttributes(attribute.String("order.id", ord.ID))

	if err := s.carts.Clear(ctx, customerID); err != nil {
		s.log.Warn("order placed but cart not cleared",
			zap.String("order_id", ord.ID), zap.String("customer_id", customerID), zap.Error(err))
	}
	s.notifyStaff(ctx, ord)
	if s.recorder != nil {
		s.recorder.OrderPlaced()
	}
	return ord, nil
}

func (s *Service) notifyStaff(ctx context.Context, ord order.Order) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	summary, err := notify.NewSummary(ctx, ord, s.catalog)
	if err == nil {
		err = s.notifier.Notify(ctx, summary)
	}
	if err != nil {
		s.log.Error("failed to notify staff of new order", zap.String("order_id", ord.ID), zap.Error(err))
		if s.recorder != nil {
			s.recorder.NotifyFailed()
		}
	}
}
