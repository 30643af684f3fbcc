package api

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK      = "ok"
	outcomeBackend = "backend_error"
	outcomeNetwork = "network_error"
	outcomeTimeout = "timeout"
	outcomeInvalid = "invalid"
)

// Metrics instruments outbound API calls.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certgen",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Outbound backend API calls by resource, operation and outcome.",
		}, []string{"resource", "operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "certgen",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Latency of outbound backend API calls that reached the network.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "operation"}),
	}
	if reg != nil {
		m.requests = register(reg, m.requests)
		m.duration = register(reg, m.duration)
	}
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) observe(resource, operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(resource, operation, outcome).Inc()
	if outcome != outcomeInvalid {
		m.duration.WithLabelValues(resource, operation).Observe(seconds)
	}
}
