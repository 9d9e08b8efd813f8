package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway calls
	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tochkapay_gateway_requests_total",
		Help: "Total number of requests sent to payment gateways",
	}, []string{"gateway", "method", "status"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tochkapay_gateway_latency_seconds",
		Help:    "Latency of payment gateway requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})

	GatewayCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tochkapay_gateway_circuit_state",
		Help: "Circuit breaker state per gateway (0 closed, 1 half-open, 2 open)",
	}, []string{"gateway"})

	// Lifecycle
	PaymentOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tochkapay_payment_operations_total",
		Help: "Payment lifecycle operations handled per provider",
	}, []string{"provider", "operation", "result"})

	WebhookActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tochkapay_webhook_actions_total",
		Help: "Webhook notifications by resulting action",
	}, []string{"provider", "action"})
)

// ObserveGatewayRequest records one outbound gateway call
func ObserveGatewayRequest(gateway, method, status string, started time.Time) {
	GatewayRequestsTotal.WithLabelValues(gateway, method, status).Inc()
	GatewayLatency.WithLabelValues(gateway).Observe(time.Since(started).Seconds())
}

// ObserveOperation records the outcome of a lifecycle operation
func ObserveOperation(provider, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	PaymentOperationsTotal.WithLabelValues(provider, operation, result).Inc()
}
