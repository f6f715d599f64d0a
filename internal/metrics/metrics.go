package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type Metrics struct {
	operations        *prometheus.CounterVec
	connectorsCreated prometheus.Counter
	meterValuesStored prometheus.Counter
	gatherer          prometheus.Gatherer
}

// New registers the persistence counters on reg. A nil reg gets a private
// registry so several instances can coexist in tests.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cpms",
			Name:      "persistence_operations_total",
			Help:      "Persistence operations by outcome.",
		}, []string{"operation", "outcome"}),
		connectorsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cpms",
			Name:      "connectors_created_total",
			Help:      "Connectors registered on their first event.",
		}),
		meterValuesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cpms",
			Name:      "meter_values_stored_total",
			Help:      "Meter value rows written.",
		}),
		gatherer: reg,
	}
}

// Observe counts one operation. Errors matching one of notFound are
// reported as not_found rather than error.
func (m *Metrics) Observe(operation string, err error, notFound ...error) {
	if m == nil {
		return
	}
	m.operations.With(prometheus.Labels{"operation": operation, "outcome": outcome(err, notFound)}).Inc()
}

func (m *Metrics) ConnectorCreated() {
	if m == nil {
		return
	}
	m.connectorsCreated.Inc()
}

func (m *Metrics) MeterValuesStored(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.meterValuesStored.Add(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error, notFound []error) string {
	if err == nil {
		return OutcomeOK
	}
	for _, nf := range notFound {
		if errors.Is(err, nf) {
			return OutcomeNotFound
		}
	}
	return OutcomeError
}
