// Package metrics holds the Prometheus collectors of the fulfillment engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_registrations_created_total",
			Help: "Registrations admitted, by registration kind",
		},
		[]string{"kind"},
	)

	AdmissionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_admission_rejections_total",
			Help: "Registration attempts refused by admission, by reason",
		},
		[]string{"reason"},
	)

	StockMovements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_stock_units_total",
			Help: "Merchandise units reserved or released",
		},
		[]string{"direction"},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_workflow_transitions_total",
			Help: "Applied payment workflow transitions, by action",
		},
		[]string{"action"},
	)

	TicketScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_ticket_scans_total",
			Help: "Ticket verification attempts, by outcome",
		},
		[]string{"outcome"},
	)

	HoldsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fulfillment_holds_expired_total",
			Help: "Registrations cancelled because their hold ran out",
		},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_notification_failures_total",
			Help: "Notifications that could not be delivered, by kind",
		},
		[]string{"kind"},
	)
)

// Stock movement directions.
const (
	Reserved = "reserved"
	Released = "released"
)

// ObserveStock records units moving in or out of a variant.
func ObserveStock(direction string, units int) {
	if units <= 0 {
		return
	}
	StockMovements.WithLabelValues(direction).Add(float64(units))
}
