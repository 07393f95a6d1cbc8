package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_reservations_total",
			Help: "Total reservation attempts by result",
		},
		[]string{"result"},
	)

	reservedUnits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_reserved_units_total",
			Help: "Total ticket units successfully reserved",
		},
	)

	releasedUnits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_released_units_total",
			Help: "Total ticket units released back to stock",
		},
	)

	checkoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Total checkout attempts by result",
		},
		[]string{"result"},
	)

	paymentOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_outcomes_total",
			Help: "Total payment outcomes applied by the reconciler",
		},
		[]string{"outcome", "result"},
	)

	sweptTransactionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swept_transactions_total",
			Help: "Total pending transactions expired by the sweeper",
		},
	)

	checkinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Total check-in scans by result",
		},
		[]string{"result"},
	)
)

// ReservationAccepted records a successful reservation of n units
func ReservationAccepted(n int) {
	reservationsTotal.WithLabelValues("accepted").Inc()
	reservedUnits.Add(float64(n))
}

// ReservationRejected records a reservation refused for lack of stock
func ReservationRejected() {
	reservationsTotal.WithLabelValues("rejected").Inc()
}

// ReservationReleased records n units returned to stock
func ReservationReleased(n int) {
	releasedUnits.Add(float64(n))
}

// CheckoutCompleted records a checkout attempt outcome
func CheckoutCompleted(result string) {
	checkoutsTotal.WithLabelValues(result).Inc()
}

// PaymentOutcomeApplied records a reconciler decision for a gateway outcome
func PaymentOutcomeApplied(outcome, result string) {
	paymentOutcomesTotal.WithLabelValues(outcome, result).Inc()
}

// TransactionSwept records a pending transaction expired by the sweeper
func TransactionSwept() {
	sweptTransactionsTotal.Inc()
}

// CheckInScanned records a check-in scan outcome
func CheckInScanned(result string) {
	checkinsTotal.WithLabelValues(result).Inc()
}
