// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Extraction results used as the "result" label.
const (
	ResultOK      = "ok"
	ResultClamped = "clamped"
	ResultAbsent  = "absent"
	ResultFailed  = "failed"
)

var (
	// ExtractionsTotal counts extraction calls by outcome
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktsnap_extractions_total",
			Help: "Total number of buffer extractions by result",
		},
		[]string{"result"},
	)

	// SnapshotBytes tracks the size distribution of captured snapshots
	SnapshotBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pktsnap_snapshot_bytes",
			Help:    "Size of captured snapshots in bytes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16), // 1 to 32KiB
		},
	)

	// InterceptionsTotal counts hook callbacks by source and whether they were handled
	InterceptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktsnap_interceptions_total",
			Help: "Total number of intercepted invocations",
		},
		[]string{"source", "state"},
	)

	// PublishDropsTotal counts snapshots dropped because the bus refused them
	PublishDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktsnap_publish_drops_total",
			Help: "Total number of snapshots dropped on publish",
		},
		[]string{"source", "reason"},
	)

	// RecordsDecodedTotal counts dispatched records by matched layout
	RecordsDecodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktsnap_records_decoded_total",
			Help: "Total number of dispatched records by layout",
		},
		[]string{"layout"},
	)

	// ReporterErrorsTotal counts reporter errors by name
	ReporterErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktsnap_reporter_errors_total",
			Help: "Total number of reporter errors",
		},
		[]string{"reporter"},
	)
)
