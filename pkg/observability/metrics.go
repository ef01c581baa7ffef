// Package observability exposes the pipeline's Prometheus metrics.
// The process is a batch job, so instead of serving /metrics it dumps
// the registry to a textfile the node exporter can pick up.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesProcessed counts inbound ledger files by outcome.
	FilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletledger_files_processed_total",
			Help: "Inbound ledger files seen by the pipeline",
		},
		[]string{"status"},
	)

	// RecordsIngested counts rows parsed out of inbound files.
	RecordsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletledger_records_ingested_total",
			Help: "Ledger rows parsed from inbound files",
		},
	)

	// LedgerSize reports the row count of the merged snapshot.
	LedgerSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletledger_snapshot_rows",
			Help: "Rows in the merged ledger snapshot",
		},
	)

	// RunDuration tracks how long each pipeline stage took.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletledger_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// TablesWritten counts dashboard files emitted per run.
	TablesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletledger_tables_written_total",
			Help: "Dashboard CSV files written",
		},
	)
)

// Dump writes the default registry to path in the textfile collector
// format. A no-op when path is empty.
func Dump(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
