package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is an Observer that exports call counts, in-flight calls and
// latency
type Metrics struct {
	calls    *prometheus.CounterVec
	inFlight prometheus.Gauge
	duration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cita",
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Finished RPC calls (state=completed/failed)",
		}, []string{"method", "state"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "cita",
			Subsystem: "rpc",
			Name:      "in_flight",
			Help:      "RPC calls sent and not yet finished",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cita",
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "RPC call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) ObserveCall(e CallEvent) {
	switch {
	case e.To == StateSending:
		m.inFlight.Inc()
	case e.To.Terminal():
		if e.From == StateSending || e.From == StateAwaitingResponse {
			m.inFlight.Dec()
		}
		m.calls.WithLabelValues(e.Method, e.To.String()).Inc()
		m.duration.WithLabelValues(e.Method).Observe(e.Elapsed.Seconds())
	}
}

// Chain fans events out to several observers
func Chain(observers ...Observer) Observer {
	return ObserverFunc(func(e CallEvent) {
		for _, o := range observers {
			if o != nil {
				o.ObserveCall(e)
			}
		}
	})
}
