package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Verification outcomes
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_verifications_total",
			Help: "Total number of completed verifications by verdict",
		},
		[]string{"verdict"},
	)

	VerificationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_verification_errors_total",
			Help: "Total number of verifications that ended in an error",
		},
		[]string{"kind"}, // kind: input, persistence, other
	)

	VerificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "claimcheck_verification_duration_seconds",
			Help:    "End-to-end verification latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// Evidence gathering
	SourceFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_source_fetch_failures_total",
			Help: "Trusted-source fetches that failed and contributed no candidates",
		},
		[]string{"source"},
	)

	CandidatesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_candidates_extracted_total",
			Help: "Candidate items extracted from trusted sources by grammar",
		},
		[]string{"grammar"},
	)

	SnippetFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimcheck_snippet_fetch_failures_total",
			Help: "Evidence snippet fetches that failed",
		},
	)

	// Collaborators
	AnalyticsFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_analytics_failures_total",
			Help: "Text analytics calls that failed and fell back to truncation",
		},
		[]string{"op"},
	)

	ClassifierParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimcheck_classifier_parse_failures_total",
			Help: "Model outputs without a parseable JSON object",
		},
	)

	ModelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claimcheck_model_latency_seconds",
			Help:    "Inference call latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "status"},
	)

	IndexFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimcheck_index_failures_total",
			Help: "Best-effort search index writes that failed",
		},
	)
)
