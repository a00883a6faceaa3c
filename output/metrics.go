// SPDX-License-Identifier: EPL-2.0

package output

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus series shared by every device that was
// created with WithMetrics. Series are labelled by device ID.
type Metrics struct {
	pullDelivered *prometheus.CounterVec
	pullUnderruns *prometheus.CounterVec
	fillStalls    *prometheus.CounterVec
	fillBlocks    *prometheus.CounterVec
	fillDuration  *prometheus.HistogramVec
	running       *prometheus.GaugeVec

	collectors []prometheus.Collector
}

// NewMetrics creates the output metrics and registers them with reg. A nil
// reg leaves them unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()

	if reg != nil {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	labels := []string{"device"}

	m.pullDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audout_pull_delivered_total",
			Help: "Blocks handed to the consumer",
		},
		labels,
	)

	m.pullUnderruns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audout_pull_underruns_total",
			Help: "Pulls that found no ready block and produced silence",
		},
		labels,
	)

	m.fillStalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audout_fill_stalls_total",
			Help: "Times the fill loop found the ring full and backed off",
		},
		labels,
	)

	m.fillBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audout_fill_blocks_total",
			Help: "Blocks produced by the fill loop",
		},
		labels,
	)

	m.fillDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audout_fill_duration_seconds",
			Help:    "Time spent producing one block, including the source callback",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12), // 50us to ~100ms
		},
		labels,
	)

	m.running = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audout_devices_running",
			Help: "Whether the device fill loop is running",
		},
		labels,
	)

	m.collectors = []prometheus.Collector{
		m.pullDelivered,
		m.pullUnderruns,
		m.fillStalls,
		m.fillBlocks,
		m.fillDuration,
		m.running,
	}
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// deviceMetrics are the series of one device, resolved once so the hot
// paths only touch atomics.
type deviceMetrics struct {
	delivered    prometheus.Counter
	underruns    prometheus.Counter
	stalls       prometheus.Counter
	blocks       prometheus.Counter
	fillDuration prometheus.Observer
	running      prometheus.Gauge
}

func (m *Metrics) forDevice(id string) *deviceMetrics {
	return &deviceMetrics{
		delivered:    m.pullDelivered.WithLabelValues(id),
		underruns:    m.pullUnderruns.WithLabelValues(id),
		stalls:       m.fillStalls.WithLabelValues(id),
		blocks:       m.fillBlocks.WithLabelValues(id),
		fillDuration: m.fillDuration.WithLabelValues(id),
		running:      m.running.WithLabelValues(id),
	}
}

// forget drops every series of a closed device.
func (m *Metrics) forget(id string) {
	for _, c := range m.collectors {
		if v, ok := c.(interface{ DeleteLabelValues(...string) bool }); ok {
			v.DeleteLabelValues(id)
		}
	}
}
