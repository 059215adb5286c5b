package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// Receptionist stage
	RecordLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_lookups_total",
			Help: "Patient record lookups by outcome",
		},
		[]string{"outcome"}, // "not_found", "resolved", "ambiguous", "error"
	)

	DisambiguationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_disambiguations_total",
			Help: "Clarification attempts by outcome",
		},
		[]string{"outcome"}, // "resolved", "ambiguous", "no_match"
	)

	// Clinical stage
	RetrievalFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reference_retrieval_failures_total",
			Help: "Reference lookups that failed and were replaced by a placeholder",
		},
	)

	ModelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "language_model_request_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"purpose", "result"},
	)

	AnswerPolicyViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answer_policy_violations_total",
			Help: "Generated answers missing the disclaimer or source citations",
		},
		[]string{"kind"}, // "disclaimer", "citation"
	)

	EmbeddingCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_cache_requests_total",
			Help: "Query embedding cache lookups",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)
)

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)

	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

func RecordLookup(outcome string) {
	RecordLookupsTotal.WithLabelValues(outcome).Inc()
}

func RecordDisambiguation(outcome string) {
	DisambiguationsTotal.WithLabelValues(outcome).Inc()
}

func RecordRetrievalFailure() {
	RetrievalFailuresTotal.Inc()
}

// ObserveModelCall records how long a language model call took.
func ObserveModelCall(purpose string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ModelRequestDuration.WithLabelValues(purpose, result).Observe(duration.Seconds())
}

func RecordPolicyViolation(kind string) {
	AnswerPolicyViolationsTotal.WithLabelValues(kind).Inc()
}

func RecordEmbeddingCache(result string) {
	EmbeddingCacheTotal.WithLabelValues(result).Inc()
}
