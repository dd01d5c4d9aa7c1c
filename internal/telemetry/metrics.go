// Package telemetry provides Prometheus instrumentation for harvest runs.
//
// Metrics are collected in a private registry and exported once per run to a
// node-exporter compatible textfile.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "csw_harvester"

// Row outcomes
const (
	RowAccepted = "accepted"
	RowFiltered = "filtered"
)

// Registry write results
const (
	WriteAppended  = "appended"
	WriteDuplicate = "duplicate"
	WriteFailed    = "failed"
)

// HarvestMetrics holds the instruments recorded during a harvest run
type HarvestMetrics struct {
	registry *prometheus.Registry

	rowsTotal       *prometheus.CounterVec
	candidatesTotal *prometheus.CounterVec
	probesTotal     *prometheus.CounterVec
	writesTotal     *prometheus.CounterVec
	printedTotal    prometheus.Counter
	runDuration     prometheus.Histogram
	lastRun         prometheus.Gauge
}

// NewHarvestMetrics creates the instruments in a new private registry
func NewHarvestMetrics() *HarvestMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &HarvestMetrics{
		registry: reg,
		rowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Spreadsheet rows processed by filter outcome",
		}, []string{"outcome"}),
		candidatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidate connections by validation status",
		}, []string{"status"}),
		probesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "CSW handshakes by state and failure reason",
		}, []string{"state", "reason"}),
		writesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_writes_total",
			Help:      "Registry append attempts by result",
		}, []string{"result"}),
		printedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "printed_total",
			Help:      "Entries printed to standard output",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a harvest run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last harvest run finished",
		}),
	}
}

// Registry returns the registry holding the instruments
func (m *HarvestMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRow records a row filter outcome
func (m *HarvestMetrics) RecordRow(outcome string) {
	if m == nil {
		return
	}
	m.rowsTotal.WithLabelValues(outcome).Inc()
}

// RecordCandidate records the validation status of a candidate
func (m *HarvestMetrics) RecordCandidate(status string) {
	if m == nil {
		return
	}
	m.candidatesTotal.WithLabelValues(status).Inc()
}

// RecordProbe records a CSW handshake result
func (m *HarvestMetrics) RecordProbe(state, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.probesTotal.WithLabelValues(state, reason).Inc()
}

// RecordWrite records a registry append attempt
func (m *HarvestMetrics) RecordWrite(result string) {
	if m == nil {
		return
	}
	m.writesTotal.WithLabelValues(result).Inc()
}

// RecordPrinted records a printed entry
func (m *HarvestMetrics) RecordPrinted() {
	if m == nil {
		return
	}
	m.printedTotal.Inc()
}

// RecordRun records the duration and completion time of a run
func (m *HarvestMetrics) RecordRun(duration time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
	m.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile exports the current values in the Prometheus text format.
// The file is written atomically.
func (m *HarvestMetrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}
