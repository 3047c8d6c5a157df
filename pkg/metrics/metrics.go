package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mnp_assistant"

// Metrics groups the collectors the assistant reports. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RetrievalSearches  *prometheus.CounterVec
	EmbeddingDegraded  prometheus.Counter
	RetrievalRelevance prometheus.Histogram
	WorkflowAdvances   *prometheus.CounterVec
	WorkflowCompleted  *prometheus.CounterVec
	Escalations        *prometheus.CounterVec
	CompletionRetries  prometheus.Counter
	CompletionFallback *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RetrievalSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_searches_total",
			Help:      "Knowledge searches by outcome (fused, vector_only, lexical_only, empty).",
		}, []string{"outcome"}),
		EmbeddingDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_embedding_degraded_total",
			Help:      "Searches that fell back to lexical-only because the query embedding failed.",
		}),
		RetrievalRelevance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_context_relevance",
			Help:      "Context relevance of returned knowledge sets.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		WorkflowAdvances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_advances_total",
			Help:      "Workflow step transitions by workflow and kind (advance, skip).",
		}, []string{"workflow", "kind"}),
		WorkflowCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_completed_total",
			Help:      "Completed workflows.",
		}, []string{"workflow"}),
		Escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Escalation tickets created by trigger.",
		}, []string{"trigger", "priority"}),
		CompletionRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_retries_total",
			Help:      "Retried completion calls.",
		}),
		CompletionFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_fallback_total",
			Help:      "Turns answered with a fallback reply, by reason (malformed, unavailable).",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.RetrievalSearches,
		m.EmbeddingDegraded,
		m.RetrievalRelevance,
		m.WorkflowAdvances,
		m.WorkflowCompleted,
		m.Escalations,
		m.CompletionRetries,
		m.CompletionFallback,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveSearch(outcome string, relevance float64) {
	if m == nil {
		return
	}
	m.RetrievalSearches.WithLabelValues(outcome).Inc()
	m.RetrievalRelevance.Observe(relevance)
}

func (m *Metrics) ObserveEmbeddingDegraded() {
	if m == nil {
		return
	}
	m.EmbeddingDegraded.Inc()
}

func (m *Metrics) ObserveWorkflowStep(workflowID, kind string) {
	if m == nil {
		return
	}
	m.WorkflowAdvances.WithLabelValues(workflowID, kind).Inc()
}

func (m *Metrics) ObserveWorkflowCompleted(workflowID string) {
	if m == nil {
		return
	}
	m.WorkflowCompleted.WithLabelValues(workflowID).Inc()
}

func (m *Metrics) ObserveEscalation(trigger, priority string) {
	if m == nil {
		return
	}
	m.Escalations.WithLabelValues(trigger, priority).Inc()
}

func (m *Metrics) ObserveCompletionRetry() {
	if m == nil {
		return
	}
	m.CompletionRetries.Inc()
}

func (m *Metrics) ObserveCompletionFallback(reason string) {
	if m == nil {
		return
	}
	m.CompletionFallback.WithLabelValues(reason).Inc()
}
