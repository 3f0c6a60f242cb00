package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Jobs
	JobsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devgen_jobs_created_total",
			Help: "Total number of generation jobs created",
		},
	)
	JobStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devgen_job_status_changes_total",
			Help: "Number of job status transitions",
		},
		[]string{"to"},
	)
	JobDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devgen_job_duration_seconds",
			Help:    "Histogram of job durations in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s..128s
		},
	)

	// Generation pipeline
	GenerationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devgen_generation_attempts_total",
			Help: "Generation attempts by outcome",
		},
		[]string{"outcome"}, // outcome: accepted|validation_failed|invocation_failed
	)
	ValidationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devgen_validation_runs_total",
			Help: "Schema validation runs by result",
		},
		[]string{"result"}, // result: pass|fail
	)
	ContextTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devgen_context_tokens",
			Help:    "Token count of repository context after truncation",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256..~4M
		},
	)

	// LLM
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devgen_llm_requests_total",
			Help: "Number of LLM requests by provider and model",
		},
		[]string{"provider", "model"},
	)

	// DB / file storage ops
	DBOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devgen_db_ops_total",
			Help: "Database operations performed",
		},
		[]string{"op"}, // op: get|put|delete|list
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devgen_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		JobsCreated,
		JobStatusChanges,
		JobDurationSeconds,

		GenerationAttempts,
		ValidationRuns,
		ContextTokens,

		LLMRequests,
		DBOps,
		Errors,
	)
}

// Jobs
func IncJobsCreated() {
	JobsCreated.Inc()
}

func IncJobStatusChange(to string) {
	JobStatusChanges.WithLabelValues(to).Inc()
}

func ObserveJobDuration(d time.Duration) {
	JobDurationSeconds.Observe(d.Seconds())
}

// Generation
func IncGenerationAttempt(outcome string) {
	GenerationAttempts.WithLabelValues(outcome).Inc()
}

func IncValidationRun(result string) {
	ValidationRuns.WithLabelValues(result).Inc()
}

func ObserveContextTokens(n int) {
	ContextTokens.Observe(float64(n))
}

// LLM
func IncLLMRequest(provider, model string) {
	LLMRequests.WithLabelValues(provider, model).Inc()
}

// DB / file ops
func IncDBOp(op string) {
	DBOps.WithLabelValues(op).Inc()
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
