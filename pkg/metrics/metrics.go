// Package metrics provides Prometheus metrics for the demand pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRunsTotal tracks pipeline runs by status
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demand",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	// StageDuration tracks stage duration in seconds
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "demand",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"stage", "status"},
	)

	// IngestRowsTotal tracks transaction rows through the quality gate
	IngestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demand",
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "Transaction rows seen by the ingest gate by outcome",
		},
		[]string{"outcome"},
	)

	// IdentityFallbacksTotal tracks raw IDs kept as their own master
	IdentityFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "demand",
			Subsystem: "identity",
			Name:      "fallbacks_total",
			Help:      "Customer IDs that could not be resolved to a master",
		},
	)

	// FeatureRows tracks the size of the last weekly_features build
	FeatureRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "demand",
			Subsystem: "features",
			Name:      "rows",
			Help:      "Weekly feature rows produced by the last run",
		},
		[]string{"level"},
	)

	// PatternEntities tracks entities per pattern in the last run
	PatternEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "demand",
			Subsystem: "classifier",
			Name:      "entities",
			Help:      "Entities per demand pattern in the last run",
		},
		[]string{"level", "pattern"},
	)

	// PredictionsTotal tracks predictor calls by outcome
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demand",
			Subsystem: "predictor",
			Name:      "predictions_total",
			Help:      "Predictor calls by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	// LevelWMAPE tracks the last evaluated WMAPE per level and model
	LevelWMAPE = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "demand",
			Subsystem: "evaluation",
			Name:      "wmape_percent",
			Help:      "WMAPE of the last evaluation per level and model",
		},
		[]string{"level", "model"},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demand",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "demand",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// APIRequestsTotal tracks read API requests
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demand",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Read API requests by route and status",
		},
		[]string{"route", "status_code"},
	)
)

// RecordStage records a pipeline stage duration
func RecordStage(stage, status string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage, status).Observe(durationSeconds)
}

// RecordRun records a finished pipeline run
func RecordRun(status string) {
	PipelineRunsTotal.WithLabelValues(status).Inc()
}

// RecordIngest records gate outcomes
func RecordIngest(accepted, rejected int) {
	IngestRowsTotal.WithLabelValues("accepted").Add(float64(accepted))
	IngestRowsTotal.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordPrediction records one predictor call
func RecordPrediction(model, outcome string) {
	PredictionsTotal.WithLabelValues(model, outcome).Inc()
}

// RecordHTTPRequest records an outbound HTTP request metric
func RecordHTTPRequest(method, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}
