// Package metrics exposes Prometheus counters for the verification lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
)

// Metrics holds the Prometheus metrics of the viewer
type Metrics struct {
	registry *prometheus.Registry

	RunsStarted     prometheus.Counter
	RunsCompleted   *prometheus.CounterVec
	StepTransitions *prometheus.CounterVec
}

// New creates the metrics on a dedicated registry, together with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "certviewer_verification_runs_started_total",
			Help: "Total number of certificate verification runs started",
		}),
		RunsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certviewer_verification_runs_completed_total",
			Help: "Total number of certificate verification runs completed, by final status",
		}, []string{"status"}),
		StepTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certviewer_verification_step_transitions_total",
			Help: "Total number of verification step status changes, by step code and status",
		}, []string{"code", "status"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe updates the counters for one lifecycle event.
func (m *Metrics) Observe(event events.Event) {
	switch event.Name {
	case events.CertificateVerify:
		m.RunsStarted.Inc()
	case events.CertificateVerifyStep:
		if step := event.Detail.Step; step != nil {
			m.StepTransitions.WithLabelValues(step.Code, string(step.Status)).Inc()
		}
	case events.CertificateVerified:
		if result := event.Detail.Result; result != nil {
			m.RunsCompleted.WithLabelValues(string(result.Status)).Inc()
		}
	}
}

// Subscribe observes every lifecycle event published on bus.
func (m *Metrics) Subscribe(bus *events.Bus) ([]events.Subscription, error) {
	return bus.SubscribeAll(m.Observe)
}
