package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/cafe-order-backend/internal/menu"
	"github.com/wichananm65/cafe-order-backend/internal/order"
)

const currency = "$"

// Notifier delivers a new-order summary to the cafe staff.
type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

// Catalog resolves item names for the summary.
type Catalog interface {
	Get(ctx context.Context, id string) (menu.Item, error)
}

type Line struct {
	ItemID   string           `json:"item_id"`
	Name     string           `json:"name"`
	Quantity int              `json:"quantity"`
	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
}

// Summary is what staff need to start preparing an order.
type Summary struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Customer   string          `json:"customer"`
	Contact    string          `json:"contact"`
	Lines      []Line          `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	Status     string          `json:"status"`
	Notes      string          `json:"notes,omitempty"`
	PlacedAt   time.Time       `json:"placed_at"`
	// CurrentPrices is set when line subtotals, priced from today's menu, no
	// longer add up to Total, which is fixed when the order is placed.
	CurrentPrices bool `json:"current_prices,omitempty"`
}

// NewSummary describes ord using current menu names and prices. Items the
// menu no longer has are listed by id without a subtotal.
func NewSummary(ctx context.Context, ord order.Order, catalog Catalog) (Summary, error) {
	s := Summary{
		OrderID:    ord.ID,
		CustomerID: ord.CustomerID,
		Customer:   ord.DisplayName,
		Contact:    "Not provided",
		Total:      ord.TotalAmount,
		Status:     string(ord.Status),
		Notes:      ord.Notes,
		PlacedAt:   ord.CreatedAt,
	}
	if ord.Contact != nil && *ord.Contact != "" {
		s.Contact = *ord.Contact
	}
	ids := make([]string, 0, len(ord.Items))
	for id := range ord.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	sum := decimal.Zero
	for _, id := range ids {
		qty := ord.Items[id]
		line := Line{ItemID: id, Name: id, Quantity: qty}
		it, err := catalog.Get(ctx, id)
		switch {
		case err == nil:
			sub := it.Price.Mul(decimal.NewFromInt(int64(qty)))
			sum = sum.Add(sub)
			line.Name = it.Name
			line.Subtotal = &sub
		case errors.Is(err, menu.ErrNotFound):
		default:
			return Summary{}, fmt.Errorf("summary for %s: %w", ord.ID, err)
		}
		s.Lines = append(s.Lines, line)
	}
	s.CurrentPrices = !sum.Equal(s.Total)
	return s, nil
}

// Text renders the admin chat message.
func (s Summary) Text() string {
	var b strings.Builder
	b.WriteString("NEW ORDER RECEIVED\n\n")
	fmt.Fprintf(&b, "Order ID: #%s\n", s.OrderID)
	fmt.Fprintf(&b, "Customer: %s\n", s.Customer)
	fmt.Fprintf(&b, "Contact: %s\n", s.Contact)
	fmt.Fprintf(&b, "Time: %s\n\n", s.PlacedAt.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString("ITEMS ORDERED:\n")
	for _, l := range s.Lines {
		if l.Subtotal == nil {
			fmt.Fprintf(&b, "- %s x %d (not on menu)\n", l.Name, l.Quantity)
			continue
		}
		fmt.Fprintf(&b, "- %s x %d = %s%s\n", l.Name, l.Quantity, currency, l.Subtotal.StringFixed(2))
	}
	if s.CurrentPrices {
		b.WriteString("(item prices are today's menu prices)\n")
	}
	if s.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", s.Notes)
	}
	fmt.Fprintf(&b, "\nTOTAL: %s%s\n", currency, s.Total.StringFixed(2))
	fmt.Fprintf(&b, "Status: %s", s.Status)
	return b.String()
}
