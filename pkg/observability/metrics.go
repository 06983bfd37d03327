// Package observability exposes prometheus instrumentation for the
// orchestrator runtime.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the orchestrator counters. A nil *Metrics is valid and
// records nothing, so instrumentation stays optional.
type Metrics struct {
	TransitionsTotal   *prometheus.CounterVec
	PolicyDenialsTotal prometheus.Counter
	EventsRoutedTotal  prometheus.Counter
	SagasTotal         *prometheus.CounterVec
}

// NewMetrics registers the orchestrator collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "transitions_total",
			Help:      "Workflow transition attempts by result.",
		}, []string{"result"}),
		PolicyDenialsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "policy_denials_total",
			Help:      "Transitions rejected by a condition hook.",
		}),
		EventsRoutedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "events_routed_total",
			Help:      "Inbound domain events routed to the engine.",
		}),
		SagasTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "sagas_total",
			Help:      "Saga executions by terminal status.",
		}, []string{"status"}),
	}
}

// ObserveTransition records one transition attempt.
func (m *Metrics) ObserveTransition(result string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(result).Inc()
}

// ObserveDenial records one policy denial.
func (m *Metrics) ObserveDenial() {
	if m == nil {
		return
	}
	m.PolicyDenialsTotal.Inc()
}

// ObserveEvent records one routed inbound event.
func (m *Metrics) ObserveEvent() {
	if m == nil {
		return
	}
	m.EventsRoutedTotal.Inc()
}

// ObserveSaga records one saga reaching a terminal status.
func (m *Metrics) ObserveSaga(status string) {
	if m == nil {
		return
	}
	m.SagasTotal.WithLabelValues(status).Inc()
}
