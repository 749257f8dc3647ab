package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ti-mo/bandix/internal/store"
)

var (
	droppedDesc = prometheus.NewDesc(
		"bandix_store_dropped_samples_total",
		"Samples rejected by a store because capture was disabled",
		[]string{"store"}, nil,
	)
	evictedDesc = prometheus.NewDesc(
		"bandix_store_evicted_entries_total",
		"Entries evicted from a store to stay within its size limit",
		[]string{"store"}, nil,
	)
)

// metrics holds the Prometheus collectors of a Pipeline.
type metrics struct {
	flushes  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	running  prometheus.Gauge
	capture  prometheus.Gauge
	entries  *prometheus.GaugeVec
	stores   *storeCollector
}

func newMetrics() *metrics {
	return &metrics{
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bandix_flushes_total",
			Help: "Total number of flush attempts by kind and result",
		}, []string{"kind", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bandix_flush_duration_seconds",
			Help:    "Duration of flushes that were not skipped",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"kind"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bandix_flush_running",
			Help: "1 while a flush is in progress",
		}),
		capture: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bandix_capture_enabled",
			Help: "1 while capture is enabled, 0 after the final flush disabled it",
		}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bandix_store_entries",
			Help: "Amount of entries held by a store after its last flush",
		}, []string{"store"}),
	}
}

// register adds all collectors to reg.
func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.flushes, m.duration, m.running, m.capture, m.entries, m.stores} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// storeCollector reads the drop and eviction counters of the registered
// stores at scrape time.
type storeCollector struct {
	stores func() []store.Store
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- droppedDesc
	ch <- evictedDesc
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.stores() {
		if d, ok := s.(store.Dropper); ok {
			ch <- prometheus.MustNewConstMetric(droppedDesc, prometheus.CounterValue, float64(d.Dropped()), s.Name())
		}
		if e, ok := s.(store.Evicter); ok {
			ch <- prometheus.MustNewConstMetric(evictedDesc, prometheus.CounterValue, float64(e.Evicted()), s.Name())
		}
	}
}
