package order

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrDuplicateID     = errors.New("order id already exists")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrPersistence     = errors.New("order storage failed")
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusPreparing Status = "Preparing"
	StatusReady     Status = "Ready"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

var statuses = []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled}

// ParseStatus matches raw against the known statuses ignoring case.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	for _, s := range statuses {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

// Valid reports whether s is exactly one of the known statuses.
func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Order is a finalized cart. Items and TotalAmount are fixed at creation;
// only Status and UpdatedAt change afterwards.
type Order struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	DisplayName string          `json:"display_name"`
	Contact     *string         `json:"contact"`
	Items       map[string]int  `json:"items"`
	Notes       string          `json:"notes,omitempty"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	// UnpricedItems lists item ids the menu could not price when the order
	// was placed; they are excluded from TotalAmount.
	UnpricedItems []string `json:"unpriced_items,omitempty"`
}

// MarshalJSON writes total_amount as a JSON number.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		TotalAmount json.Number `json:"total_amount"`
	}{plain(o), json.Number(o.TotalAmount.String())})
}

// Clone returns a deep copy sharing no maps or slices with o.
func (o Order) Clone() Order {
	c := o
	c.Items = make(map[string]int, len(o.Items))
	for k, v := range o.Items {
		c.Items[k] = v
	}
	if o.Contact != nil {
		contact := *o.Contact
		c.Contact = &contact
	}
	if o.UnpricedItems != nil {
		c.UnpricedItems = append([]string(nil), o.UnpricedItems...)
	}
	return c
}

// ItemCount is the total number of units in the order.
func (o Order) ItemCount() int {
	n := 0
	for _, q := range o.Items {
		n += q
	}
	return n
}
