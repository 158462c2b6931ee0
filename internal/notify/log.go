package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes summaries to the log. Used when no broker is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, s Summary) error {
	n.log.Info("new order",
		zap.String("order_id", s.OrderID),
		zap.String("customer", s.Customer),
		zap.String("total", s.Total.StringFixed(2)),
		zap.String("text", s.Text()))
	return nil
}
