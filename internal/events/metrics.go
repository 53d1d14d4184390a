package events

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink turns events into Prometheus metrics.
type MetricsSink struct {
	events       *prometheus.CounterVec
	stageSeconds *prometheus.HistogramVec
	storeSeconds *prometheus.HistogramVec
	writes       *prometheus.CounterVec
}

// NewMetricsSink creates the collectors and registers them with reg.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	m := &MetricsSink{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitebuild",
				Name:      "events_total",
				Help:      "Number of compilation lifecycle events by kind.",
			},
			[]string{"kind"},
		),
		stageSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sitebuild",
				Name:      "stage_duration_seconds",
				Help:      "Duration of compiler stages.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"stage"},
		),
		storeSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sitebuild",
				Name:      "store_duration_seconds",
				Help:      "Duration of store loads and stores.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"store", "op"},
		),
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitebuild",
				Name:      "rep_writes_total",
				Help:      "Number of snapshot writes, by whether the file changed.",
			},
			[]string{"modified"},
		),
	}
	for _, c := range []prometheus.Collector{m.events, m.stageSeconds, m.storeSeconds, m.writes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsSink) Emit(e Event) {
	m.events.With(prometheus.Labels{"kind": string(e.Kind)}).Inc()
	switch e.Kind {
	case StageEnded, StageAborted:
		m.stageSeconds.With(prometheus.Labels{"stage": e.Subject}).Observe(e.Duration.Seconds())
	case StoreLoaded:
		m.storeSeconds.With(prometheus.Labels{"store": e.Subject, "op": "load"}).Observe(e.Duration.Seconds())
	case StoreStored:
		m.storeSeconds.With(prometheus.Labels{"store": e.Subject, "op": "store"}).Observe(e.Duration.Seconds())
	case RepWriteEnded:
		modified := "false"
		if e.Modified {
			modified = "true"
		}
		m.writes.With(prometheus.Labels{"modified": modified}).Inc()
	}
}
