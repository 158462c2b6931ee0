package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/wichananm65/cafe-order-backend/internal/menu"
	"github.com/wichananm65/cafe-order-backend/internal/order"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testOrder() order.Order {
	phone := "+44 7700 900123"
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	return order.Order{
		ID:            "A1B2C3D4",
		CustomerID:    "tg-42",
		DisplayName:   "Ada",
		Contact:       &phone,
		Items:         map[string]int{"latte": 3, "retired_muffin": 1},
		Status:        order.StatusPending,
		CreatedAt:     at,
		UpdatedAt:     at,
		TotalAmount:   decimal.RequireFromString("14.25"),
		UnpricedItems: []string{"retired_muffin"},
	}
}

func catalog() Catalog {
	return menu.NewService(menu.NewInMemoryRepository(menu.DefaultItems()))
}

func TestSummaryText(t *testing.T) {
	s, err := NewSummary(context.Background(), testOrder(), catalog())
	if err != nil {
		t.Fatal(err)
	}
	want := "NEW ORDER RECEIVED\n\n" +
		"Order ID: #A1B2C3D4\n" +
		"Customer: Ada\n" +
		"Contact: +44 7700 900123\n" +
		"Time: 2024-05-01 09:30:00\n\n" +
		"ITEMS ORDERED:\n" +
		"- Caffe Latte x 3 = $14.25\n" +
		"- retired_muffin x 1 (not on menu)\n" +
		"\nTOTAL: $14.25\n" +
		"Status: Pending"
	if got := s.Text(); got != want {
		t.Fatalf("unexpected text:\n%s\nwant:\n%s", got, want)
	}

	noContact := testOrder()
	noContact.Contact = nil
	s, _ = NewSummary(context.Background(), noContact, catalog())
	if !strings.Contains(s.Text(), "Contact: Not provided") {
		t.Fatalf("missing contact placeholder:\n%s", s.Text())
	}
}

func TestSummaryFlagsRepricedLines(t *testing.T) {
	ord := testOrder()
	ord.TotalAmount = decimal.RequireFromString("12.75")
	s, err := NewSummary(context.Background(), ord, catalog())
	if err != nil {
		t.Fatal(err)
	}
	if !s.CurrentPrices {
		t.Fatalf("expected lines to be marked as current prices")
	}
	text := s.Text()
	if !strings.Contains(text, "- retired_muffin x 1 (not on menu)\n(item prices are today's menu prices)\n") ||
		!strings.Contains(text, "TOTAL: $12.75") {
		t.Fatalf("unexpected text:\n%s", text)
	}

	s, _ = NewSummary(context.Background(), testOrder(), catalog())
	if s.CurrentPrices {
		t.Fatalf("lines matching the total should not be flagged")
	}
}

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	s, _ := NewSummary(context.Background(), testOrder(), catalog())
	w := &recordingWriter{}
	n := NewKafkaNotifier(w)

	if err := n.Notify(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "A1B2C3D4" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}
	var ev struct {
		Type    string `json:"type"`
		Summary struct {
			OrderID string `json:"order_id"`
			Total   string `json:"total"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "order.placed" || ev.Summary.OrderID != "A1B2C3D4" || ev.Summary.Total != "14.25" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if err := n.Close(); err != nil {
		t.Fatal(err)
	}

	failing := NewKafkaNotifier(&recordingWriter{err: errors.New("broker down")})
	if err := failing.Notify(context.Background(), s); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s, _ := NewSummary(context.Background(), testOrder(), catalog())
	if err := NewLogNotifier(zap.New(core)).Notify(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterField(zap.String("order_id", "A1B2C3D4")).All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
}
