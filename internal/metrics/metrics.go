// Package metrics exports probe outcomes as Prometheus metrics, written in
// the node_exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BadgerOps/bestmirror/internal/mirror"
)

// Collector records probe results into its own registry.
type Collector struct {
	registry *prometheus.Registry
	average  *prometheus.GaugeVec
	peak     *prometheus.GaugeVec
	bytes    *prometheus.GaugeVec
	failures prometheus.Counter
	duration prometheus.Histogram
}

// New creates a Collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		average: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bestmirror_probe_average_mbps",
				Help: "Average download rate of the test file in MiB/s",
			},
			[]string{"mirror"},
		),
		peak: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bestmirror_probe_peak_mbps",
				Help: "Highest one-second download rate of the test file in MiB/s",
			},
			[]string{"mirror"},
		),
		bytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bestmirror_probe_bytes",
				Help: "Bytes of the test file received before completion or timeout",
			},
			[]string{"mirror"},
		),
		failures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bestmirror_probe_failures_total",
				Help: "Mirrors skipped because they could not be reached",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bestmirror_probe_duration_seconds",
				Help:    "Wall-clock duration of successful probes",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
	}
	c.registry.MustRegister(c.average, c.peak, c.bytes, c.failures, c.duration)
	return c
}

// RecordResult implements mirror.Recorder.
func (c *Collector) RecordResult(r mirror.ProbeResult) {
	c.average.WithLabelValues(r.URL).Set(r.AverageMBps)
	c.peak.WithLabelValues(r.URL).Set(r.PeakMBps)
	c.bytes.WithLabelValues(r.URL).Set(float64(r.Bytes))
	c.duration.Observe(r.Elapsed.Seconds())
}

// RecordFailure implements mirror.Recorder.
func (c *Collector) RecordFailure(string, error) {
	c.failures.Inc()
}

// WriteTextfile atomically writes all metrics to path.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
