package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Row outcomes.
const (
	RowImported  = "imported"
	RowDuplicate = "duplicate"
	RowError     = "error"
)

// File outcomes.
const (
	FileImported     = "imported"
	FileFailed       = "failed"
	FileUnrecognized = "unrecognized"
	FileArchiveError = "archive_error"
)

// Metrics counts import activity. A nil *Metrics records nothing.
type Metrics struct {
	rows         *prometheus.CounterVec
	files        *prometheus.CounterVec
	commits      prometheus.Counter
	fileDuration prometheus.Histogram
}

// NewMetrics registers the import metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvas_etl",
			Name:      "rows_total",
			Help:      "Total number of source rows processed, by outcome.",
		}, []string{"outcome"}),
		files: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvas_etl",
			Name:      "files_total",
			Help:      "Total number of intake files handled, by outcome.",
		}, []string{"outcome"}),
		commits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "canvas_etl",
			Name:      "commits_total",
			Help:      "Total number of committed transactions.",
		}),
		fileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "canvas_etl",
			Name:      "file_duration_seconds",
			Help:      "Time spent importing one file.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}),
	}
}

func (m *Metrics) row(outcome string) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(outcome).Inc()
}

func (m *Metrics) file(outcome string) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(outcome).Inc()
}

func (m *Metrics) commit() {
	if m == nil {
		return
	}
	m.commits.Inc()
}

func (m *Metrics) fileDone(d time.Duration) {
	if m == nil {
		return
	}
	m.fileDuration.Observe(d.Seconds())
}
