package condor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal tracks scan runs by outcome.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condor_screener_scans_total",
			Help: "Total number of screening runs",
		},
		[]string{"status"},
	)

	// ScanDurationSeconds tracks end-to-end scan latency.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "condor_screener_scan_duration_seconds",
		Help:    "Duration of a full screening run",
		Buckets: prometheus.DefBuckets,
	})

	// ExpirationsScannedTotal tracks expirations processed by the worker pool.
	ExpirationsScannedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condor_screener_expirations_scanned_total",
			Help: "Total number of expirations processed",
		},
		[]string{"status"},
	)

	// CombinationsTotal tracks 4-leg combinations examined.
	CombinationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "condor_screener_combinations_total",
		Help: "Total number of leg combinations examined",
	})

	// CandidatesRejectedTotal tracks discarded combinations by reason.
	CandidatesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condor_screener_candidates_rejected_total",
			Help: "Total number of combinations rejected during enumeration",
		},
		[]string{"reason"},
	)

	// CandidatesEmittedTotal tracks priced condors emitted by the builder.
	CandidatesEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "condor_screener_candidates_emitted_total",
		Help: "Total number of condors emitted before ranking",
	})

	// BuildsCappedTotal tracks builds that stopped at the candidate cap.
	BuildsCappedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "condor_screener_builds_capped_total",
		Help: "Total number of builds truncated by the candidate cap",
	})
)

func observeBuild(stats BuildStats) {
	CombinationsTotal.Add(float64(stats.Combinations))
	CandidatesRejectedTotal.WithLabelValues("zone").Add(float64(stats.RejectedZone))
	CandidatesRejectedTotal.WithLabelValues("credit").Add(float64(stats.RejectedCredit))
	CandidatesRejectedTotal.WithLabelValues("loss").Add(float64(stats.RejectedLoss))
	CandidatesEmittedTotal.Add(float64(stats.Emitted))
	if stats.Capped {
		BuildsCappedTotal.Inc()
	}
}
