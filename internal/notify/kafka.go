package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "orders.placed"

// MessageWriter is the part of *kafka.Writer the notifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

type placedEvent struct {
	Type    string  `json:"type"`
	Summary Summary `json:"summary"`
	Text    string  `json:"text"`
}

// KafkaNotifier publishes each summary keyed by order id, so every event for
// one order lands on the same partition.
type KafkaNotifier struct {
	writer MessageWriter
}

func NewKafkaNotifier(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

func (n *KafkaNotifier) Notify(ctx context.Context, s Summary) error {
	data, err := json.Marshal(placedEvent{Type: "order.placed", Summary: s, Text: s.Text()})
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(s.OrderID), Value: data, Time: time.Now().UTC()}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order %s: %w", s.OrderID, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	if c, ok := n.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
