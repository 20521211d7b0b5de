package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsTotal prometheus.Counter
	EventsPublished    *prometheus.CounterVec
	EventsConsumed     *prometheus.CounterVec
	PublishFailures    *prometheus.CounterVec
	BookingsAccepted   prometheus.Counter
	BookingsRejected   prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on reg; tests pass a fresh registry so each
// suite gets isolated counters.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotbook_registrations_total",
			Help: "Total number of accounts registered",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slotbook_events_published_total",
			Help: "Events published to the bus, by event name",
		}, []string{"event"}),
		EventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slotbook_events_consumed_total",
			Help: "Events handled by consumers, by event name and consumer group",
		}, []string{"event", "group"}),
		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slotbook_publish_failures_total",
			Help: "Best-effort publishes that failed and were only logged",
		}, []string{"event"}),
		BookingsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotbook_bookings_accepted_total",
			Help: "Slot reservations that won the conditional write",
		}),
		BookingsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "slotbook_bookings_rejected_total",
			Help: "Booking attempts rejected because the slot was already reserved",
		}),
	}
}
