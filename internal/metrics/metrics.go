// Package metrics defines the Prometheus collectors for the broker.
// Collectors are constructed against an injected *prometheus.Registry
// rather than registered on the global DefaultRegisterer, so tests and
// multiple broker instances in one process never collide on metric
// names.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the broker exposes at /metrics.
type Metrics struct {
	IngestTotal     prometheus.Counter
	IngestRejected  *prometheus.CounterVec // by reason: burst_limited, rate_limited, too_large, or the validator's error kind
	EntriesAccepted prometheus.Counter

	FanOutDelivered prometheus.Counter
	FanOutDropped   *prometheus.CounterVec // by reason: queue_full, client_gone

	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	ConnectionsFailed *prometheus.CounterVec // by reason

	ChannelsActive prometheus.Gauge

	GoroutinesActive prometheus.Gauge
	MemoryBytes      prometheus.Gauge
	CPUPercent       prometheus.Gauge

	NATSConnected prometheus.Gauge

	IDPoolSize prometheus.Gauge
}

// New builds and registers every collector against reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		IngestTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbroker_ingest_total",
			Help: "Total POST /api/logs requests accepted for processing.",
		}),
		IngestRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logbroker_ingest_rejected_total",
			Help: "Ingest requests rejected, by reason.",
		}, []string{"reason"}),
		EntriesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbroker_entries_accepted_total",
			Help: "Total normalized log entries published to the bus.",
		}),
		FanOutDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbroker_fanout_delivered_total",
			Help: "Total frames enqueued onto a subscriber's queue.",
		}),
		FanOutDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logbroker_fanout_dropped_total",
			Help: "Frames dropped during fan-out, by reason.",
		}, []string{"reason"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logbroker_stream_connections_active",
			Help: "Current number of open SSE stream connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logbroker_stream_connections_total",
			Help: "Total SSE stream connections accepted.",
		}),
		ConnectionsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logbroker_stream_connections_rejected_total",
			Help: "SSE stream connections rejected, by reason.",
		}, []string{"reason"}),
		ChannelsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logbroker_channels_active",
			Help: "Current number of registered channels.",
		}),
		GoroutinesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logbroker_goroutines_active",
			Help: "Current number of goroutines.",
		}),
		MemoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logbroker_memory_bytes",
			Help: "Current process heap allocation in bytes.",
		}),
		CPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logbroker_cpu_usage_percent",
			Help: "Sampled process CPU usage percentage.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logbroker_nats_connected",
			Help: "Whether the optional NATS secondary sink is connected (1) or not (0).",
		}),
		IDPoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logbroker_idpool_size",
			Help: "Current number of pre-generated ids available in the id pool.",
		}),
	}

	reg.MustRegister(
		m.IngestTotal, m.IngestRejected, m.EntriesAccepted,
		m.FanOutDelivered, m.FanOutDropped,
		m.ConnectionsActive, m.ConnectionsTotal, m.ConnectionsFailed,
		m.ChannelsActive,
		m.GoroutinesActive, m.MemoryBytes, m.CPUPercent,
		m.NATSConnected, m.IDPoolSize,
	)
	return m
}

// SampleRuntime updates the goroutine and heap gauges from runtime
// introspection. Called periodically by StartSampler.
func (m *Metrics) SampleRuntime() {
	m.GoroutinesActive.Set(float64(runtime.NumGoroutine()))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	m.MemoryBytes.Set(float64(mem.Alloc))
}

// StartSampler runs SampleRuntime on a ticker until stop is closed.
func (m *Metrics) StartSampler(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.SampleRuntime()
		case <-stop:
			return
		}
	}
}
