package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for price refreshes.
type Metrics struct {
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	inFlight      prometheus.Gauge
	cyclesTotal   prometheus.Counter
}

// NewMetrics registers the refresh collectors on reg. A nil reg uses a
// private registry, which keeps tests independent of the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metalwatch",
			Name:      "fetches_total",
			Help:      "Price fetches by outcome",
		}, []string{"result"}),

		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metalwatch",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single price fetch",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "metalwatch",
			Name:      "fetches_in_flight",
			Help:      "Price fetches currently running",
		}),

		cyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "metalwatch",
			Name:      "refresh_cycles_total",
			Help:      "Periodic full-registry refresh cycles started",
		}),
	}
}
