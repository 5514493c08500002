package notify

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type channelMetrics struct {
	subscribers prometheus.Gauge
	events      *prometheus.CounterVec
	skipped     prometheus.Counter
	dropped     prometheus.Counter
}

var (
	channelMetricsOnce sync.Once
	channelMetricsInst *channelMetrics
)

func globalChannelMetrics() *channelMetrics {
	channelMetricsOnce.Do(func() {
		channelMetricsInst = &channelMetrics{
			subscribers: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "devserver",
				Subsystem: "notify",
				Name:      "subscribers",
				Help:      "Connected notification subscribers",
			}),
			events: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "devserver",
				Subsystem: "notify",
				Name:      "events_total",
				Help:      "Events broadcast, labeled by type",
			}, []string{"type"}),
			skipped: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "devserver",
				Subsystem: "notify",
				Name:      "skipped_sends_total",
				Help:      "Sends skipped because the subscriber was not writable",
			}),
			dropped: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "devserver",
				Subsystem: "notify",
				Name:      "dropped_subscribers_total",
				Help:      "Subscribers dropped after a failed send",
			}),
		}
	})
	return channelMetricsInst
}
