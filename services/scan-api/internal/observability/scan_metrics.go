package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qr_scan",
			Name:      "scans_total",
			Help:      "Completed scans by terminal state and verdict",
		},
		[]string{"state", "verdict"},
	)

	ScanLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qr_scan",
			Name:      "scan_duration_seconds",
			Help:      "Time from upload to rendered verdict",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"state"},
	)

	HistoryWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qr_scan",
			Name:      "history_write_failures_total",
			Help:      "Scans that could not be recorded in the history store",
		},
	)

	InflightScans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "qr_scan",
			Name:      "inflight_scans",
			Help:      "Scans currently waiting on the analysis backend",
		},
	)
)
