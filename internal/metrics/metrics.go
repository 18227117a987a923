// Package metrics registers the Prometheus collectors for the reservation
// path.  They are served on /metrics by the default registry.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/webexpert/event-ticketing/internal/apperr"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	cancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_cancellations_total",
			Help: "Cancellation attempts by outcome",
		},
		[]string{"outcome"},
	)

	unitsReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_units_reserved_total",
			Help: "Ticket units taken by successful reservations",
		},
	)

	reservationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_reservation_duration_seconds",
			Help:    "Latency of the reservation unit of work",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"outcome"},
	)

	publishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_event_publish_failures_total",
			Help: "Booking events that could not be handed to the broker",
		},
		[]string{"queue"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_rate_limited_total",
			Help: "Requests rejected by the token bucket",
		},
		[]string{"route"},
	)
)

// Outcome labels.
const (
	OutcomeOK               = "ok"
	OutcomeInvalid          = "invalid"
	OutcomeNotFound         = "not_found"
	OutcomeSalesClosed      = "sales_closed"
	OutcomeInsufficient     = "insufficient_inventory"
	OutcomeAlreadyCancelled = "already_cancelled"
	OutcomeRejected         = "rejected"
	OutcomeUnauthenticated  = "unauthenticated"
	OutcomeError            = "error"
)

// Outcome classifies err into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, apperr.ErrUnauthenticated):
		return OutcomeUnauthenticated
	case errors.Is(err, apperr.ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, apperr.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, apperr.ErrSalesNotStarted), errors.Is(err, apperr.ErrSalesEnded):
		return OutcomeSalesClosed
	case errors.Is(err, apperr.ErrInsufficientInventory):
		return OutcomeInsufficient
	case errors.Is(err, apperr.ErrAlreadyCancelled):
		return OutcomeAlreadyCancelled
	case apperr.IsBusinessRule(err):
		return OutcomeRejected
	}
	return OutcomeError
}

// ObserveReservation records one reservation attempt.
func ObserveReservation(err error, qty int, took time.Duration) {
	outcome := Outcome(err)
	reservations.WithLabelValues(outcome).Inc()
	reservationDuration.WithLabelValues(outcome).Observe(took.Seconds())
	if err == nil {
		unitsReserved.Add(float64(qty))
	}
}

// ObserveCancellation records one cancellation attempt.
func ObserveCancellation(err error) {
	cancellations.WithLabelValues(Outcome(err)).Inc()
}

// PublishFailed counts a booking event dropped on the floor.
func PublishFailed(queue string) {
	publishFailures.WithLabelValues(queue).Inc()
}

// RateLimited counts a 429 answered on route.
func RateLimited(route string) {
	rateLimited.WithLabelValues(route).Inc()
}
