package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

// PipelineMetrics implements ports.PipelineObserver.
type PipelineMetrics struct {
	service string

	questionsTotal     *prometheus.CounterVec
	queriesTotal       *prometheus.CounterVec
	retrievedObjects   *prometheus.HistogramVec
	knowledgeContexts  *prometheus.HistogramVec
	candidates         *prometheus.HistogramVec
	extractionFailures *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		service: service,
		questionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "questions_total",
			Help:      "Classified questions by type.",
		}, []string{"service", "type"}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "queries_total",
			Help:      "Generated search queries by kind.",
		}, []string{"service", "kind"}),
		retrievedObjects: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "retrieved_objects",
			Help:      "Objects kept after retrieval filtering per question.",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 20, 30},
		}, []string{"service"}),
		knowledgeContexts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "knowledge_contexts",
			Help:      "Knowledge graph descriptions per question.",
			Buckets:   []float64{0, 1, 2, 5, 10, 30},
		}, []string{"service"}),
		candidates: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "candidate_paragraphs",
			Help:      "Shortlisted candidate paragraphs per question.",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 20},
		}, []string{"service"}),
		extractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "extraction_failures_total",
			Help:      "Passages whose answer extraction failed.",
		}, []string{"service"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "stage"}),
	}
	registerer.MustRegister(
		m.questionsTotal,
		m.queriesTotal,
		m.retrievedObjects,
		m.knowledgeContexts,
		m.candidates,
		m.extractionFailures,
		m.stageDuration,
	)
	return m
}

func (m *PipelineMetrics) ObserveQuestion(questionType domain.QuestionType) {
	m.questionsTotal.WithLabelValues(m.service, string(questionType)).Inc()
}

func (m *PipelineMetrics) ObserveQueries(queries []domain.SearchQuery) {
	for _, q := range queries {
		m.queriesTotal.WithLabelValues(m.service, string(q.Kind)).Inc()
	}
}

func (m *PipelineMetrics) ObserveRetrieval(objects int, knowledgeContexts int) {
	m.retrievedObjects.WithLabelValues(m.service).Observe(float64(objects))
	m.knowledgeContexts.WithLabelValues(m.service).Observe(float64(knowledgeContexts))
}

func (m *PipelineMetrics) ObserveCandidates(count int) {
	m.candidates.WithLabelValues(m.service).Observe(float64(count))
}

func (m *PipelineMetrics) ObserveExtractionFailure() {
	m.extractionFailures.WithLabelValues(m.service).Inc()
}

func (m *PipelineMetrics) ObserveStage(stage string, seconds float64) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(seconds)
}
