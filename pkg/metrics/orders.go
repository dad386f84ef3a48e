package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderMetrics counts order lifecycle transitions.
type OrderMetrics struct {
	created        *prometheus.CounterVec
	decided        *prometheus.CounterVec
	stockConflicts *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders placed, by payment method.",
	}, []string{"payment_method"})
	decided := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_decided_total",
		Help: "Admin decisions on pending orders, by resulting status.",
	}, []string{"status"})
	stockConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_stock_conflicts_total",
		Help: "Requests refused for insufficient stock, by stage.",
	}, []string{"stage"})
	reg.MustRegister(created, decided, stockConflicts)
	return &OrderMetrics{
		created:        created,
		decided:        decided,
		stockConflicts: stockConflicts,
	}
}

func (m *OrderMetrics) OrderCreated(method enums.PaymentMethod) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(string(method))).Inc()
}

func (m *OrderMetrics) OrderDecided(status enums.OrderStatus) {
	if m == nil || m.decided == nil {
		return
	}
	m.decided.WithLabelValues(normalizeLabel(string(status))).Inc()
}

func (m *OrderMetrics) StockConflict(stage string) {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.WithLabelValues(normalizeLabel(stage)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
