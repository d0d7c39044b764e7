package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "telecare",
			Name:      "booking_attempts_total",
			Help:      "Count of booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "telecare",
			Name:      "appointment_transitions_total",
			Help:      "Count of appointment status transitions.",
		},
		[]string{"to"},
	)

	triageRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "telecare",
			Name:      "triage_requests_total",
			Help:      "Count of symptom triage gateway calls by outcome.",
		},
		[]string{"outcome"},
	)

	emailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "telecare",
			Name:      "emails_sent_total",
			Help:      "Count of transactional emails by delivery result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingAttempts, statusTransitions, triageRequests, emailsSent)
	})
}

func IncBookingAttempt(outcome string) {
	bookingAttempts.WithLabelValues(outcome).Inc()
}

func IncStatusTransition(to string) {
	statusTransitions.WithLabelValues(to).Inc()
}

func IncTriageRequest(outcome string) {
	triageRequests.WithLabelValues(outcome).Inc()
}

func IncEmailSent(result string) {
	emailsSent.WithLabelValues(result).Inc()
}
