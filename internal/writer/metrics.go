// internal/writer/metrics.go
package writer

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/saj-modbus/internal/status"
)

const metricsNamespace = "saj"

// infoLabels are the identity fields exported on saj_info.
var infoLabels = []string{
	status.KeySerial,
	status.KeyPC,
	status.KeyDevType,
	status.KeySubType,
	status.KeyDisplayVer,
	status.KeyMasterVer,
	status.KeySlaveVer,
}

// MetricsWriter projects snapshots onto Prometheus collectors held in a
// private registry.
type MetricsWriter struct {
	reg *prometheus.Registry

	fields   *prometheus.GaugeVec
	up       prometheus.Gauge
	failures prometheus.Counter
	info     *prometheus.GaugeVec
	clock    prometheus.Gauge

	mu        sync.Mutex
	lastErrAt time.Time
	prev      status.Fields
}

// NewMetricsWriter registers the inverter collectors plus the Go runtime and
// process collectors. name becomes the constant "inverter" label.
func NewMetricsWriter(name string) *MetricsWriter {
	constLabels := prometheus.Labels{"inverter": name}

	m := &MetricsWriter{
		reg: prometheus.NewRegistry(),
		fields: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "field",
			Help:        "Numeric snapshot field by key.",
			ConstLabels: constLabels,
		}, []string{"field"}),
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "up",
			Help:        "1 when the last poll succeeded.",
			ConstLabels: constLabels,
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "poll_failures_total",
			Help:        "Failed poll ticks.",
			ConstLabels: constLabels,
		}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "info",
			Help:        "Inverter identity, always 1.",
			ConstLabels: constLabels,
		}, infoLabels),
		clock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "clock_seconds",
			Help:        "Inverter clock as unix seconds.",
			ConstLabels: constLabels,
		}),
	}

	m.reg.MustRegister(
		m.fields,
		m.up,
		m.failures,
		m.info,
		m.clock,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the private registry.
func (m *MetricsWriter) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the exposition format.
func (m *MetricsWriter) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteStatus never fails; the error satisfies StatusWriter.
func (m *MetricsWriter) WriteStatus(s status.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Health == status.HealthOK {
		m.up.Set(1)
	} else {
		m.up.Set(0)
	}

	// republished command snapshots reuse At; count each failed tick once
	if s.Health == status.HealthError && !s.At.Equal(m.lastErrAt) {
		m.failures.Inc()
		m.lastErrAt = s.At
	}

	fields := status.FreezeCounters(m.prev, s.Fields)
	m.prev = fields

	for k, v := range fields {
		if isInfoKey(k) {
			continue
		}
		if t, ok := v.(time.Time); ok {
			m.clock.Set(float64(t.Unix()))
			continue
		}
		if f, ok := status.Numeric(v); ok {
			m.fields.WithLabelValues(k).Set(f)
		}
	}

	if _, ok := fields[status.KeySerial]; ok {
		values := make([]string, len(infoLabels))
		for i, k := range infoLabels {
			if p, ok := FormatValue(fields[k]); ok {
				values[i] = p
			}
		}
		m.info.Reset()
		m.info.WithLabelValues(values...).Set(1)
	}
	return nil
}

func isInfoKey(k string) bool {
	for _, l := range infoLabels {
		if l == k {
			return true
		}
	}
	return false
}
