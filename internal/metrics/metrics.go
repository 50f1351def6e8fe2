// Package metrics wraps github.com/prometheus/client_golang for the
// counters and gauges the server dispatch core exposes: registered handler
// count, active session count, and call/find outcomes.
//
// Modeled on the teacher's pkg/metrics/prometheus family (badger.go,
// cache.go, s3.go): every method is nil-safe, so a *Metrics obtained from a
// Server constructed without a registry (New(nil)) costs nothing to call
// into (see DESIGN.md).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for CallsTotal.
const (
	OutcomeOK              = "ok"
	OutcomeNotFound        = "not_found"
	OutcomeInvalidResponse = "invalid_response"
)

// Metrics collects the server's operational counters. A nil *Metrics is
// valid and every method on it is a no-op.
type Metrics struct {
	registeredHandlers prometheus.Gauge
	sessionsActive     prometheus.Gauge
	callsTotal         *prometheus.CounterVec
	findTotal          prometheus.Counter
}

// New registers the RPC server's metrics against reg and returns a
// *Metrics. Passing a nil registry returns nil, which every method below
// treats as "metrics disabled".
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	return &Metrics{
		registeredHandlers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "rpc_registered_handlers",
			Help: "Number of handlers currently registered on the server.",
		}),
		sessionsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "rpc_sessions_active",
			Help: "Number of connections currently in the Ready or Handshake state.",
		}),
		callsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rpc_calls_total",
			Help: "Total number of call opcodes processed, by outcome.",
		}, []string{"outcome"}),
		findTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rpc_find_total",
			Help: "Total number of find opcodes processed.",
		}),
	}
}

// SetRegisteredHandlers records the registry's current entry count.
func (m *Metrics) SetRegisteredHandlers(n int) {
	if m == nil {
		return
	}
	m.registeredHandlers.Set(float64(n))
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

// RecordCall increments the call counter for the given outcome.
func (m *Metrics) RecordCall(outcome string) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(outcome).Inc()
}

// RecordFind increments the find counter.
func (m *Metrics) RecordFind() {
	if m == nil {
		return
	}
	m.findTotal.Inc()
}
