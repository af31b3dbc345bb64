package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ReportGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_report_generations_total",
			Help: "Report generation attempts by terminal status",
		},
		[]string{"status"},
	)

	ReportGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "health_report_generation_duration_seconds",
			Help:    "End-to-end duration of a report generation attempt",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
		[]string{"status"},
	)

	NarrativeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "health_report_narrative_duration_seconds",
			Help:    "Duration of narrative generator calls",
			Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
		},
	)

	RecommendationsExtracted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "health_report_recommendations_extracted",
			Help:    "Number of recommendations extracted per completed report",
			Buckets: prometheus.LinearBuckets(0, 1, 9),
		},
	)

	ReportCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_report_cache_lookups_total",
			Help: "Report cache lookups by result",
		},
		[]string{"result"},
	)
)
