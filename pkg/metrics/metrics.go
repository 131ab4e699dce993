// Package metrics provides Prometheus counters for clusterpep runs.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricPagesFetched       = "clusterpep_pages_fetched_total"
	MetricPSMsRead           = "clusterpep_psms_read_total"
	MetricDuplicatePSMs      = "clusterpep_duplicate_psms_total"
	MetricMissingAssays      = "clusterpep_missing_assays_total"
	MetricMalformedMods      = "clusterpep_malformed_modifications_total"
	MetricWrongAnnotations   = "clusterpep_wrong_annotations_total"
	MetricClustersRanked     = "clusterpep_clusters_ranked_total"
	MetricRowsWritten        = "clusterpep_report_rows_written_total"
	MetricEntriesSuppressed  = "clusterpep_entries_suppressed_total"
	MetricStageDuration      = "clusterpep_stage_duration_seconds"
	MetricLastSuccessSeconds = "clusterpep_last_success_timestamp_seconds"
)

// Metrics contains Prometheus metrics for an export run.
// All operations are thread-safe.
type Metrics struct {
	pagesFetched      prometheus.Counter
	psmsRead          prometheus.Counter
	duplicatePSMs     prometheus.Counter
	missingAssays     prometheus.Counter
	malformedMods     prometheus.Counter
	wrongAnnotations  prometheus.Counter
	clustersRanked    prometheus.Counter
	rowsWritten       *prometheus.CounterVec
	entriesSuppressed *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec
	lastSuccess       prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPagesFetched,
			Help: "Total number of repository pages fetched",
		}),
		psmsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPSMsRead,
			Help: "Total number of clustered PSMs read from the repository",
		}),
		duplicatePSMs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDuplicatePSMs,
			Help: "Total number of PSMs merged into an existing (cluster, sequence, assay) entry",
		}),
		missingAssays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMissingAssays,
			Help: "Total number of PSMs whose assay metadata is missing",
		}),
		malformedMods: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMalformedMods,
			Help: "Total number of PSMs with at least one malformed modification descriptor",
		}),
		wrongAnnotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricWrongAnnotations,
			Help: "Total number of PSMs flagged with a wrong modification annotation",
		}),
		clustersRanked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricClustersRanked,
			Help: "Total number of clusters ranked",
		}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRowsWritten,
			Help: "Total number of report rows written by mode",
		}, []string{"mode"}),
		entriesSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEntriesSuppressed,
			Help: "Total number of report entries suppressed by filters, by reason",
		}, []string{"reason"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricStageDuration,
			Help:    "Duration of export pipeline stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"stage"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastSuccessSeconds,
			Help: "Unix time of the last successful export run",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.pagesFetched,
		m.psmsRead,
		m.duplicatePSMs,
		m.missingAssays,
		m.malformedMods,
		m.wrongAnnotations,
		m.clustersRanked,
		m.rowsWritten,
		m.entriesSuppressed,
		m.stageDuration,
		m.lastSuccess,
	}
}

// IncPagesFetched counts a fetched page and the PSMs it carried.
func (m *Metrics) IncPagesFetched(rows int) {
	if m == nil {
		return
	}
	m.pagesFetched.Inc()
	m.psmsRead.Add(float64(rows))
}

// IncDuplicatePSMs increments the duplicate PSM counter.
func (m *Metrics) IncDuplicatePSMs() {
	if m == nil {
		return
	}
	m.duplicatePSMs.Inc()
}

// IncMissingAssays increments the missing assay counter.
func (m *Metrics) IncMissingAssays() {
	if m == nil {
		return
	}
	m.missingAssays.Inc()
}

// IncMalformedMods increments the malformed modification counter.
func (m *Metrics) IncMalformedMods() {
	if m == nil {
		return
	}
	m.malformedMods.Inc()
}

// IncWrongAnnotations increments the wrong annotation counter.
func (m *Metrics) IncWrongAnnotations() {
	if m == nil {
		return
	}
	m.wrongAnnotations.Inc()
}

// AddClustersRanked adds n ranked clusters.
func (m *Metrics) AddClustersRanked(n int) {
	if m == nil {
		return
	}
	m.clustersRanked.Add(float64(n))
}

// AddRowsWritten adds n report rows for a mode ("peptide", "cluster_peptide", "pogo").
func (m *Metrics) AddRowsWritten(mode string, n int) {
	if m == nil {
		return
	}
	m.rowsWritten.WithLabelValues(mode).Add(float64(n))
}

// IncSuppressed counts an entry suppressed for the given reason.
func (m *Metrics) IncSuppressed(reason string) {
	if m == nil {
		return
	}
	m.entriesSuppressed.WithLabelValues(reason).Inc()
}

// ObserveStage records a stage duration sample.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// MarkSuccess sets the last success gauge to the current time.
func (m *Metrics) MarkSuccess() {
	if m == nil {
		return
	}
	m.lastSuccess.SetToCurrentTime()
}

// WriteTextfile registers the metrics on a fresh registry and writes them in the
// node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
