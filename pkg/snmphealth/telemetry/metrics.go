// Package telemetry exposes Prometheus metrics for probe outcomes and batch
// runs on a private registry.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vpbank/snmp_health/models"
)

const namespace = "snmphealth"

// Metrics groups the collectors recorded by the monitor service.
type Metrics struct {
	registry *prometheus.Registry

	probes        *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	batchDevices  prometheus.Gauge
	batchDuration prometheus.Histogram
	commitErrors  prometheus.Counter
}

// New registers every collector on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Status checks by resulting status.",
		}, []string{"status"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Response time of status checks that reached the network.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"status"}),
		batchDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_devices",
			Help:      "Devices checked by the most recent fleet run.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock time of fleet runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		commitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_errors_total",
			Help:      "Failed writes of probe observations.",
		}),
	}
	m.registry.MustRegister(
		m.probes, m.probeDuration, m.batchDevices, m.batchDuration, m.commitErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveProbe records one status check.
func (m *Metrics) ObserveProbe(res models.ProbeResult) {
	status := string(res.Status)
	m.probes.WithLabelValues(status).Inc()
	if res.ResponseTimeMillis != nil {
		m.probeDuration.WithLabelValues(status).Observe(*res.ResponseTimeMillis / 1000)
	}
}

// ObserveBatch records one fleet run.
func (m *Metrics) ObserveBatch(devices int, took time.Duration) {
	m.batchDevices.Set(float64(devices))
	m.batchDuration.Observe(took.Seconds())
}

// CommitFailed counts a failed persistence step.
func (m *Metrics) CommitFailed() { m.commitErrors.Inc() }

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
