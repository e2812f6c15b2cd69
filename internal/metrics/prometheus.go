package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JourneyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_journey_total",
			Help: "Total patient journeys by terminal status",
		},
		[]string{"status"},
	)

	JourneyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_journey_duration_seconds",
			Help:    "End-to-end journey duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_stage_duration_seconds",
			Help:    "Per-stage processing duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"stage"},
	)

	UrgencyLevelTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_urgency_level_total",
			Help: "Triage verdicts by urgency level",
		},
		[]string{"level"},
	)

	EmergencyEscalations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_emergency_escalations_total",
			Help: "Journeys that short-circuited to emergency escalation",
		},
	)

	RetrievalFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_retrieval_fallback_total",
			Help: "Knowledge retrievals served by the keyword fallback table",
		},
		[]string{"reason"},
	)

	ReasoningFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_reasoning_fallback_total",
			Help: "Triage verdicts that used the fixed fallback reasoning",
		},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_confidence_score",
			Help:    "Verdict confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	CandidatesMatched = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_candidates_matched",
			Help:    "Physician candidates returned per journey",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	GuidelinesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_guidelines_ingested_total",
			Help: "Guideline documents ingested into the knowledge index",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(JourneyTotal)
	prometheus.MustRegister(JourneyDuration)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(UrgencyLevelTotal)
	prometheus.MustRegister(EmergencyEscalations)
	prometheus.MustRegister(RetrievalFallbackTotal)
	prometheus.MustRegister(ReasoningFallbackTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(CandidatesMatched)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(GuidelinesIngested)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
