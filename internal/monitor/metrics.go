package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Navezjt/master-me/internal/errors"
)

// Metrics holds the Prometheus collectors of the telemetry consumer.
type Metrics struct {
	registry *prometheus.Registry

	loudness     *prometheus.GaugeVec
	distribution *prometheus.HistogramVec
	samplesRead  *prometheus.CounterVec
}

// NewMetrics creates and registers the consumer's collectors on a fresh
// registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.loudness = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "masterme",
		Name:      "windowed_loudness_lufs",
		Help:      "Most recent windowed peak loudness per channel.",
	}, []string{"channel"})

	m.distribution = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "masterme",
		Name:      "windowed_loudness_distribution_lufs",
		Help:      "Distribution of windowed peak loudness per channel.",
		Buckets:   prometheus.LinearBuckets(-70, 5, 15), // -70 .. 0 LUFS
	}, []string{"channel"})

	m.samplesRead = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "masterme",
		Name:      "telemetry_samples_read_total",
		Help:      "Windowed samples drained from the shared region.",
	}, []string{"channel"})

	for _, c := range []prometheus.Collector{m.loudness, m.distribution, m.samplesRead} {
		if err := m.registry.Register(c); err != nil {
			return nil, errors.New(err).
				Component("monitor").
				Category(errors.CategorySystem).
				Context("operation", "register_collector").
				Build()
		}
	}
	return m, nil
}

// Registry exposes the registry for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records one drained sample.
func (m *Metrics) Observe(channel string, lufs float32) {
	v := float64(lufs)
	m.loudness.WithLabelValues(channel).Set(v)
	m.distribution.WithLabelValues(channel).Observe(v)
	m.samplesRead.WithLabelValues(channel).Inc()
}
