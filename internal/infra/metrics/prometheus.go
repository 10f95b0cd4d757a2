package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "truthscan_analyses_total",
		Help: "Total number of media analyses, by media kind and outcome",
	}, []string{"kind", "outcome"})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "truthscan_jobs_processed_total",
		Help: "Total number of queued jobs processed, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "truthscan_stage_duration_seconds",
		Help:    "Duration of analysis stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesScoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "truthscan_frames_scored_total",
		Help: "Total number of sampled frames scored for complexity",
	})

	TruthScanRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "truthscan_requests_total",
		Help: "Outbound TruthScan requests, by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	TruthScanRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "truthscan_request_retries_total",
		Help: "TruthScan requests repeated after a failed attempt, by endpoint",
	}, []string{"endpoint"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "truthscan_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "truthscan_retry_total",
		Help: "Total number of job retries",
	}, []string{"attempt"})
)
