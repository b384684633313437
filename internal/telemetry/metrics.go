package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blindscan"

// Metrics holds the collectors of one scan session. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	probes           *prometheus.CounterVec
	probeDuration    prometheus.Histogram
	streams          *prometheus.CounterVec
	deviceErrors     *prometheus.CounterVec
	duplicates       prometheus.Counter
	bandsCompleted   prometheus.Counter
	channels         prometheus.Gauge
	lastScanComplete prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Tune requests issued by the sweep, by lock result.",
		}, []string{"result"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Time from tune request to final status.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		streams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_found_total",
			Help:      "Valid streams reported by the demodulator.",
		}, []string{"delivery_system"}),
		deviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_errors_total",
			Help:      "Frontend requests that failed after retrying.",
		}, []string{"op"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Channel entries removed as duplicates.",
		}),
		bandsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bands_completed_total",
			Help:      "LNB bands swept to the end.",
		}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels",
			Help:      "Channels in the deduplicated list.",
		}),
		lastScanComplete: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_completed_timestamp_seconds",
			Help:      "Unix time the last scan finished.",
		}),
	}

	m.registry.MustRegister(
		m.probes,
		m.probeDuration,
		m.streams,
		m.deviceErrors,
		m.duplicates,
		m.bandsCompleted,
		m.channels,
		m.lastScanComplete,
	)
	return m
}

// Registry exposes the private registry, e.g. for tests or additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveProbe(d time.Duration, locked bool) {
	if m == nil {
		return
	}

	result := "unlocked"
	if locked {
		result = "locked"
	}
	m.probes.WithLabelValues(result).Inc()
	m.probeDuration.Observe(d.Seconds())
}

func (m *Metrics) StreamFound(deliverySystem string) {
	if m == nil {
		return
	}
	m.streams.WithLabelValues(deliverySystem).Inc()
}

func (m *Metrics) DeviceError(op string) {
	if m == nil {
		return
	}
	m.deviceErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) DuplicateRemoved() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

func (m *Metrics) BandCompleted() {
	if m == nil {
		return
	}
	m.bandsCompleted.Inc()
}

func (m *Metrics) SetChannels(n int) {
	if m == nil {
		return
	}
	m.channels.Set(float64(n))
}

func (m *Metrics) ScanCompleted(t time.Time) {
	if m == nil {
		return
	}
	m.lastScanComplete.Set(float64(t.Unix()))
}
