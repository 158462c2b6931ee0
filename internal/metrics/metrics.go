package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics groups the HTTP and ordering metrics of the service.
type ServerMetrics struct {
	Requests           *prometheus.CounterVec
	LatencyMS          *prometheus.HistogramVec
	OrdersPlaced       prometheus.Counter
	CheckoutFailures   *prometheus.CounterVec
	NotifyFailures     prometheus.Counter
	OrderStatusChanges *prometheus.CounterVec
}

// NewServerMetrics registers the metrics on reg. service is used as the metric
// subsystem, so it must be a valid Prometheus name component.
func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	m := &ServerMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cafe",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: service,
			Name:      "orders_placed_total",
			Help:      "Orders created by checkout.",
		}),
		CheckoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: service,
			Name:      "checkout_failures_total",
			Help:      "Checkouts that did not produce an order, by reason.",
		}, []string{"reason"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: service,
			Name:      "order_notify_failures_total",
			Help:      "Admin notifications that could not be delivered.",
		}),
		OrderStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Subsystem: service,
			Name:      "order_status_changes_total",
			Help:      "Order status updates, by new status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.OrdersPlaced, m.CheckoutFailures, m.NotifyFailures, m.OrderStatusChanges)
	return m
}

// Middleware records request count and latency per matched route.
func (m *ServerMetrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		route := c.Route().Path
		m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Microseconds()) / 1000)
		return err
	}
}

func (m *ServerMetrics) OrderPlaced() { m.OrdersPlaced.Inc() }

func (m *ServerMetrics) CheckoutFailed(reason string) { m.CheckoutFailures.WithLabelValues(reason).Inc() }

func (m *ServerMetrics) NotifyFailed() { m.NotifyFailures.Inc() }

func (m *ServerMetrics) StatusChanged(status string) { m.OrderStatusChanges.WithLabelValues(status).Inc() }

// Handler exposes the gathered metrics as a fiber handler.
func Handler(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
