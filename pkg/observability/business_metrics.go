package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Relay metrics
	relayCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_calls_total",
		Help: "Total number of relayed RPC calls",
	}, []string{
		"chain",
		"plan",
		"status", // authorized, upstream_error, denied
	})

	relayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_latency_seconds",
		Help:    "End-to-end latency of a relayed RPC call",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{
		"chain",
	})

	// Metering gate metrics
	meteringDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metering_denials_total",
		Help: "Total calls denied by the metering gate",
	}, []string{
		"reason", // invalid_api_key, out_of_credits
	})

	// Subscription engine metrics
	subscriptionRolloversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_rollovers_total",
		Help: "Total cycle-rollover outcomes processed by the subscription engine",
	}, []string{
		"outcome", // renewed, demoted_insolvent, downgraded
	})

	subscriptionChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_changes_total",
		Help: "Total user-initiated subscription changes",
	}, []string{
		"action", // upgrade, downgrade, cancel
		"status", // success, insufficient_funds, rejected
	})

	// Payment verifier metrics
	paymentsVerifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Total on-chain payment verification attempts",
	}, []string{
		"chain",
		"status", // credited, not_found, rejected, or the rejecting error kind
	})

	paymentsCreditedCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_credited_cents_total",
		Help: "Total USD cents credited to customer balances from verified payments",
	}, []string{
		"chain",
	})

	paymentVerificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_verification_duration_seconds",
		Help:    "Time to verify an on-chain payment (tx/receipt/safe-head fetch plus decode)",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"chain",
	})

	// WebSocket bridge metrics
	bridgeConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_bridge_connections_active",
		Help: "Number of active client WebSocket bridge connections",
	})

	bridgeReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_bridge_reconnects_total",
		Help: "Total upstream reconnect attempts by the WebSocket bridge",
	}, []string{
		"chain",
		"outcome", // retry, user_closed, exhausted
	})
)

// RecordRelayCall records the outcome and latency of a relayed RPC call.
func RecordRelayCall(chain, plan, status string, duration float64) {
	relayCallsTotal.WithLabelValues(chain, plan, status).Inc()
	relayLatency.WithLabelValues(chain).Observe(duration)
}

// RecordMeteringDenial records a call rejected by the metering gate.
func RecordMeteringDenial(reason string) {
	meteringDenialsTotal.WithLabelValues(reason).Inc()
}

// RecordSubscriptionRollover records one row's outcome during cycle rollover.
func RecordSubscriptionRollover(outcome string) {
	subscriptionRolloversTotal.WithLabelValues(outcome).Inc()
}

// RecordSubscriptionChange records a user-initiated upgrade/downgrade/cancel.
func RecordSubscriptionChange(action, status string) {
	subscriptionChangesTotal.WithLabelValues(action, status).Inc()
}

// RecordPaymentVerification records a payment verification attempt.
func RecordPaymentVerification(chain, status string, creditedCents int64, duration float64) {
	paymentsVerifiedTotal.WithLabelValues(chain, status).Inc()
	paymentVerificationDuration.WithLabelValues(chain).Observe(duration)
	if status == "credited" {
		paymentsCreditedCents.WithLabelValues(chain).Add(float64(creditedCents))
	}
}

// IncBridgeConnections adjusts the active WebSocket bridge connection gauge.
func IncBridgeConnections() { bridgeConnectionsActive.Inc() }

// DecBridgeConnections adjusts the active WebSocket bridge connection gauge.
func DecBridgeConnections() { bridgeConnectionsActive.Dec() }

// RecordBridgeReconnect records an upstream reconnect attempt's outcome.
func RecordBridgeReconnect(chain, outcome string) {
	bridgeReconnectsTotal.WithLabelValues(chain, outcome).Inc()
}
