// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "procurement_query_pipeline"

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Model call metrics
	ModelCallsTotal  *prometheus.CounterVec
	ModelCallErrors  *prometheus.CounterVec
	ModelCallLatency *prometheus.HistogramVec

	// Question generation metrics
	QuestionsGenerated prometheus.Counter

	// Query generation metrics
	QueriesGenerated prometheus.Counter
	QueriesFailed    prometheus.Counter

	// Validation metrics
	ValidationPassed prometheus.Counter
	ValidationFailed prometheus.Counter
	ClausesRejected  *prometheus.CounterVec
	FieldsNormalized prometheus.Counter

	// Execution metrics
	ExecutionsTotal   prometheus.Counter
	ExecutionFailures *prometheus.CounterVec
	ExecutionLatency  prometheus.Histogram
	ResultCounts      prometheus.Histogram

	// Evaluation metrics
	EvaluationsTotal prometheus.Counter
	JudgeScores      prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal  *prometheus.CounterVec
	KafkaPublishErrors *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ModelCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Total number of model API calls",
		}, []string{"provider", "purpose"}),
		ModelCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_call_errors_total",
			Help:      "Total number of failed model API calls",
		}, []string{"provider", "purpose"}),
		ModelCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_latency_seconds",
			Help:      "Model API call latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),

		QuestionsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_generated_total",
			Help:      "Total number of natural language questions generated",
		}),

		QueriesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_generated_total",
			Help:      "Total number of MongoDB queries generated",
		}),
		QueriesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_failed_total",
			Help:      "Total number of questions that produced no usable query",
		}),

		ValidationPassed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_passed_total",
			Help:      "Total number of queries that passed validation",
		}),
		ValidationFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failed_total",
			Help:      "Total number of queries with at least one rejected clause",
		}),
		ClausesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clauses_rejected_total",
			Help:      "Total number of rejected clauses",
		}, []string{"reason"}),
		FieldsNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_normalized_total",
			Help:      "Total number of field name substitutions applied",
		}),

		ExecutionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Total number of queries executed against MongoDB",
		}),
		ExecutionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execution_failures_total",
			Help:      "Total number of failed query executions",
		}, []string{"reason"}),
		ExecutionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_latency_seconds",
			Help:      "Query execution latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		ResultCounts: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_result_count",
			Help:      "Number of documents returned per executed query",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),

		EvaluationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of model evaluations completed",
		}),
		JudgeScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judge_total_score",
			Help:      "Total evaluation score (execution + semantic, out of 10)",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
	}
}

// RecordModelCall records a model API call outcome.
func (m *Metrics) RecordModelCall(provider, purpose string, err error, latencySeconds float64) {
	m.ModelCallsTotal.WithLabelValues(provider, purpose).Inc()
	m.ModelCallLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.ModelCallErrors.WithLabelValues(provider, purpose).Inc()
	}
}

// RecordQuestionGenerated records one generated question.
func (m *Metrics) RecordQuestionGenerated() {
	m.QuestionsGenerated.Inc()
}

// RecordQueryGenerated records a query generation outcome.
func (m *Metrics) RecordQueryGenerated(success bool) {
	if success {
		m.QueriesGenerated.Inc()
	} else {
		m.QueriesFailed.Inc()
	}
}

// RecordValidation records a validation outcome.
func (m *Metrics) RecordValidation(pass bool, rejectionReasons []string, substitutions int) {
	if pass {
		m.ValidationPassed.Inc()
	} else {
		m.ValidationFailed.Inc()
	}
	for _, reason := range rejectionReasons {
		m.ClausesRejected.WithLabelValues(reason).Inc()
	}
	m.FieldsNormalized.Add(float64(substitutions))
}

// RecordExecution records a query execution outcome.
func (m *Metrics) RecordExecution(failureReason string, resultCount int, latencySeconds float64) {
	m.ExecutionsTotal.Inc()
	m.ExecutionLatency.Observe(latencySeconds)
	if failureReason != "" {
		m.ExecutionFailures.WithLabelValues(failureReason).Inc()
		return
	}
	m.ResultCounts.Observe(float64(resultCount))
}

// RecordEvaluation records one completed evaluation with its total score.
func (m *Metrics) RecordEvaluation(totalScore float64) {
	m.EvaluationsTotal.Inc()
	m.JudgeScores.Observe(totalScore)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
