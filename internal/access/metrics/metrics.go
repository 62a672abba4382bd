package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"idregistry/internal/access/models"
)

// Metrics provides observability for the registry access module.
// Tracks authorization outcomes, administrative operations and current guard state.
type Metrics struct {
	Decisions         *prometheus.CounterVec
	Operations        *prometheus.CounterVec
	Notifications     *prometheus.CounterVec
	Paused            prometheus.Gauge
	GateOpen          prometheus.Gauge
	AuthorizeDuration prometheus.Histogram
}

// New registers the module metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idregistry_registration_decisions_total",
			Help: "Registration authorization decisions by outcome",
		}, []string{"outcome"}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idregistry_admin_operations_total",
			Help: "Administrative operations by operation and result code",
		}, []string{"operation", "result"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idregistry_notifications_total",
			Help: "Notifications delivered by event name",
		}, []string{"event"}),
		Paused: factory.NewGauge(prometheus.GaugeOpts{
			Name: "idregistry_paused",
			Help: "1 when registration is paused",
		}),
		GateOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "idregistry_gate_open",
			Help: "1 once trusted-only registration has been disabled",
		}),
		AuthorizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "idregistry_authorize_duration_seconds",
			Help:    "Duration of registration authorization checks",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// ObserveDecision records an authorization outcome and its duration.
// Call with time.Now() at the start of the check.
func (m *Metrics) ObserveDecision(d models.Decision, start time.Time) {
	m.Decisions.WithLabelValues(d.Outcome()).Inc()
	m.AuthorizeDuration.Observe(time.Since(start).Seconds())
}

// IncrementOperation records an administrative operation. result is "ok" or an error code.
func (m *Metrics) IncrementOperation(operation, result string) {
	m.Operations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) IncrementNotification(name models.EventName) {
	m.Notifications.WithLabelValues(string(name)).Inc()
}

// SetState mirrors the guard flags into gauges.
func (m *Metrics) SetState(snap models.Snapshot) {
	m.Paused.Set(boolGauge(snap.Paused))
	m.GateOpen.Set(boolGauge(snap.GateOpen))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
