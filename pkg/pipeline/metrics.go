package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	stageDuration *prometheus.HistogramVec
	graphSize     *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "streetgraph",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "duration of each graph construction stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		graphSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "streetgraph",
			Subsystem: "pipeline",
			Name:      "graph_size",
			Help:      "node and edge count after each stage",
		}, []string{"stage", "kind"}),
	}
	reg.MustRegister(m.stageDuration, m.graphSize)
	return m
}

func (m *Metrics) observe(stage string, start time.Time, nodes, edges int) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	m.graphSize.WithLabelValues(stage, "nodes").Set(float64(nodes))
	m.graphSize.WithLabelValues(stage, "edges").Set(float64(edges))
}
