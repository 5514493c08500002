package builder

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type buildMetrics struct {
	builds    *prometheus.CounterVec
	durations prometheus.Observer
	inFlight  prometheus.Gauge
}

var (
	buildMetricsOnce sync.Once
	buildMetricsInst *buildMetrics
)

func globalBuildMetrics() *buildMetrics {
	buildMetricsOnce.Do(func() {
		buildMetricsInst = &buildMetrics{
			builds: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "devserver",
				Name:      "builds_total",
				Help:      "Plugin builds, labeled by result",
			}, []string{"result"}),
			durations: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "devserver",
				Name:      "build_duration_seconds",
				Help:      "Duration of plugin builds",
				Buckets:   prometheus.DefBuckets,
			}),
			inFlight: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "devserver",
				Name:      "builds_in_flight",
				Help:      "Bundler invocations currently running",
			}),
		}
	})
	return buildMetricsInst
}

func (m *buildMetrics) observe(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(result).Inc()
	m.durations.Observe(d.Seconds())
}
