package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics provides observability for the registration workflow.
// Tracks confirmations, refunds, deletions and the payment-path durations.
type Metrics struct {
	PaymentIntentsCreated  prometheus.Counter
	RegistrationsConfirmed prometheus.Counter
	ParticipantsRegistered prometheus.Counter
	RegistrationsRefunded  *prometheus.CounterVec
	RegistrationsDeleted   prometheus.Counter
	RevenueCents           prometheus.Counter
	PostCommitFailures     *prometheus.CounterVec
	ConfirmDuration        prometheus.Histogram
	RefundDuration         prometheus.Histogram
	ExportDuration         prometheus.Histogram
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers with reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PaymentIntentsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "retreat_payment_intents_created_total",
			Help: "Total number of payment intents created",
		}),
		RegistrationsConfirmed: f.NewCounter(prometheus.CounterOpts{
			Name: "retreat_registrations_confirmed_total",
			Help: "Total number of registrations confirmed after payment",
		}),
		ParticipantsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "retreat_participants_registered_total",
			Help: "Total number of participants on confirmed registrations",
		}),
		RegistrationsRefunded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "retreat_registrations_refunded_total",
			Help: "Total number of refunded registrations by source (admin, webhook)",
		}, []string{"source"}),
		RegistrationsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "retreat_registrations_deleted_total",
			Help: "Total number of registrations deleted by staff",
		}),
		RevenueCents: f.NewCounter(prometheus.CounterOpts{
			Name: "retreat_revenue_cents_total",
			Help: "Gross amount collected in minor currency units",
		}),
		PostCommitFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "retreat_post_commit_failures_total",
			Help: "Best-effort steps that failed after a registration was committed",
		}, []string{"step"}),
		ConfirmDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "retreat_confirm_registration_duration_seconds",
			Help:    "Duration of ConfirmRegistration including payment lookup",
			Buckets: durationBuckets,
		}),
		RefundDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "retreat_refund_registration_duration_seconds",
			Help:    "Duration of RefundRegistration including the payment refund",
			Buckets: durationBuckets,
		}),
		ExportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "retreat_export_csv_duration_seconds",
			Help:    "Duration of CSV exports",
			Buckets: durationBuckets,
		}),
	}
}

func (m *Metrics) IncrementIntentCreated() {
	m.PaymentIntentsCreated.Inc()
}

// RecordConfirmed counts one confirmed registration.
func (m *Metrics) RecordConfirmed(participants int, amountCents int64) {
	m.RegistrationsConfirmed.Inc()
	m.ParticipantsRegistered.Add(float64(participants))
	m.RevenueCents.Add(float64(amountCents))
}

func (m *Metrics) IncrementRefunded(source string) {
	m.RegistrationsRefunded.WithLabelValues(source).Inc()
}

func (m *Metrics) IncrementDeleted() {
	m.RegistrationsDeleted.Inc()
}

func (m *Metrics) IncrementPostCommitFailure(step string) {
	m.PostCommitFailures.WithLabelValues(step).Inc()
}

// ObserveConfirm records the duration of a ConfirmRegistration call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveConfirm(start time.Time) {
	m.ConfirmDuration.Observe(time.Since(start).Seconds())
}

// ObserveRefund records the duration of a RefundRegistration call.
func (m *Metrics) ObserveRefund(start time.Time) {
	m.RefundDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveExport(start time.Time) {
	m.ExportDuration.Observe(time.Since(start).Seconds())
}
