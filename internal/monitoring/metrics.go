package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_total",
			Help: "Checkout attempts by result",
		},
		[]string{"result"},
	)

	checkoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkout_duration_seconds",
			Help:    "Duration of checkout transactions including the gateway call",
			Buckets: prometheus.DefBuckets,
		},
	)

	paymentEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_events_total",
			Help: "Payment notifications by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions",
		},
		[]string{"from", "to"},
	)

	earningsSettled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seller_earnings_settled_total",
			Help: "Seller earning rows created",
		},
	)

	earningsPromoted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seller_earnings_promoted_total",
			Help: "Seller earnings moved from PENDING to AVAILABLE",
		},
	)

	withdrawals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdrawal_transitions_total",
			Help: "Withdrawal requests by resulting status",
		},
		[]string{"status"},
	)

	gatewayCalls = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Latency of payment gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	sweptReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_sweeps_total",
			Help: "Expired reservations processed by the sweeper",
		},
		[]string{"result"},
	)
)

// TrackCheckout records a checkout attempt.
func TrackCheckout(result string, d time.Duration) {
	checkouts.WithLabelValues(result).Inc()
	checkoutDuration.Observe(d.Seconds())
}

// TrackPaymentEvent records a reconciled payment notification.
func TrackPaymentEvent(source, outcome string) {
	paymentEvents.WithLabelValues(source, outcome).Inc()
}

// TrackOrderTransition records an order moving between statuses.
func TrackOrderTransition(from, to string) {
	orderTransitions.WithLabelValues(from, to).Inc()
}

func TrackEarningsSettled(n int) { earningsSettled.Add(float64(n)) }

func TrackEarningsPromoted(n int64) { earningsPromoted.Add(float64(n)) }

func TrackWithdrawal(status string) { withdrawals.WithLabelValues(status).Inc() }

// TrackGatewayCall records the latency of a call to the payment gateway.
func TrackGatewayCall(operation, status string, d time.Duration) {
	gatewayCalls.WithLabelValues(operation, status).Observe(d.Seconds())
}

func TrackSweep(result string) { sweptReservations.WithLabelValues(result).Inc() }
