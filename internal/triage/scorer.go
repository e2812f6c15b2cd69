package triage

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/metrics"
	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
)

// Reasoner is the free-text reasoning backend. Failure never aborts
// scoring; the verdict carries the fixed fallback assessment instead.
type Reasoner interface {
	GenerateClinicalReasoning(ctx context.Context, prompt string) (string, error)
}

const (
	fallbackReasoning   = "Fallback assessment based on symptoms and risk factors"
	maxReasoningLength  = 200
	defaultSpecialty    = "general_medicine"
	reasoningTimeoutDef = 20 * time.Second
)

var redFlagSymptoms = []string{"chest pain", "difficulty breathing", "severe headache", "loss of consciousness"}

// specialtyKeywords is scanned in order; the first entry with any keyword
// match wins.
var specialtyKeywords = []struct {
	specialty string
	keywords  []string
}{
	{"cardiology", []string{"chest pain", "heart", "palpitations", "shortness of breath"}},
	{"neurology", []string{"headache", "dizziness", "numbness", "seizure", "stroke"}},
	{"gastroenterology", []string{"abdominal pain", "nausea", "vomiting", "diarrhea"}},
	{"dermatology", []string{"rash", "skin", "itching", "lesion"}},
	{"orthopedics", []string{"joint pain", "back pain", "fracture", "injury"}},
	{"pulmonology", []string{"cough", "breathing", "chest", "asthma"}},
	{"endocrinology", []string{"diabetes", "thyroid", "hormone"}},
	{"psychiatry", []string{"anxiety", "depression", "mood", "mental health"}},
}

var waitTimes = map[model.UrgencyLevel]string{
	model.Critical:   "Immediate",
	model.Urgent:     "Within 2 hours",
	model.SemiUrgent: "Within 24 hours",
	model.Standard:   "Within 1-2 weeks",
	model.NonUrgent:  "Within 1 month",
}

// Scorer combines the context bundle and retrieved snippets into a
// deterministic urgency verdict and specialty recommendation.
type Scorer struct {
	reasoner Reasoner
	timeout  time.Duration
}

type Option func(*Scorer)

func WithTimeout(timeout time.Duration) Option {
	return func(s *Scorer) {
		s.timeout = timeout
	}
}

// NewScorer accepts a nil reasoner; the verdict then always carries the
// fallback reasoning text.
func NewScorer(reasoner Reasoner, opts ...Option) *Scorer {
	s := &Scorer{
		reasoner: reasoner,
		timeout:  reasoningTimeoutDef,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scorer) Score(ctx context.Context, report model.SymptomReport, bundle model.ContextBundle, snippets []model.KnowledgeSnippet) model.TriageVerdict {
	urgencyScore := calculateUrgencyScore(report, bundle, snippets)
	level := mapUrgencyLevel(urgencyScore)

	specialty := recommendSpecialty(report, snippets)
	confidence := calculateConfidence(bundle, snippets)
	reasoning := s.clinicalReasoning(ctx, report, bundle, snippets)

	logger.Info("Triage verdict computed",
		zap.String("report_id", report.ID),
		zap.Int("urgency_score", urgencyScore),
		zap.String("urgency_level", level.String()),
		zap.String("specialty", specialty),
		zap.Float64("confidence", confidence),
	)

	metrics.UrgencyLevelTotal.WithLabelValues(level.String()).Inc()
	metrics.ConfidenceScore.Observe(confidence)

	return model.TriageVerdict{
		ReportID:             report.ID,
		UrgencyLevel:         level,
		UrgencyScore:         urgencyScore,
		RecommendedSpecialty: specialty,
		RiskFactors:          bundle.Risk.RiskFactors,
		ClinicalReasoning:    truncateReasoning(reasoning),
		ConfidenceScore:      confidence,
		RequiresEmergency:    level == model.Critical,
		EstimatedWaitTime:    waitTimes[level],
	}
}

func calculateUrgencyScore(report model.SymptomReport, bundle model.ContextBundle, snippets []model.KnowledgeSnippet) int {
	score := report.Severity * 10

	score += len(bundle.Risk.RiskFactors) * 15

	if bundle.Demographic.Age < 2 || bundle.Demographic.Age > 80 {
		score += 20
	}

	for _, symptom := range report.Symptoms {
		symptomLower := strings.ToLower(symptom)
		for _, flag := range redFlagSymptoms {
			if strings.Contains(symptomLower, flag) {
				score += 30
				break
			}
		}
	}

	for _, snippet := range snippets {
		switch snippet.Urgency {
		case "high":
			score += 25
		case "medium":
			score += 15
		}
	}

	durationLower := strings.ToLower(report.Duration)
	if strings.Contains(durationLower, "sudden") || strings.Contains(durationLower, "acute") {
		score += 20
	}

	return score
}

func mapUrgencyLevel(score int) model.UrgencyLevel {
	switch {
	case score >= 100:
		return model.Critical
	case score >= 70:
		return model.Urgent
	case score >= 50:
		return model.SemiUrgent
	case score >= 30:
		return model.Standard
	default:
		return model.NonUrgent
	}
}

func recommendSpecialty(report model.SymptomReport, snippets []model.KnowledgeSnippet) string {
	// Plurality vote over snippet tags; ties break toward the specialty
	// encountered first in snippet order.
	counts := map[string]int{}
	best := ""
	bestCount := 0
	for _, snippet := range snippets {
		if snippet.Specialty == "" {
			continue
		}
		counts[snippet.Specialty]++
		if counts[snippet.Specialty] > bestCount {
			best = snippet.Specialty
			bestCount = counts[snippet.Specialty]
		}
	}
	if best != "" {
		return best
	}

	symptomText := strings.ToLower(report.PrimaryComplaint + " " + strings.Join(report.Symptoms, " "))
	for _, entry := range specialtyKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(symptomText, kw) {
				return entry.specialty
			}
		}
	}

	return defaultSpecialty
}

func calculateConfidence(bundle model.ContextBundle, snippets []model.KnowledgeSnippet) float64 {
	confidence := 0.5

	if len(snippets) > 0 {
		var total float64
		for _, snippet := range snippets {
			total += snippet.Score
		}
		confidence += total / float64(len(snippets)) * 0.3
	}

	checks := []bool{
		len(bundle.Medical.ChronicConditions) > 0,
		len(bundle.Medical.CurrentMedications) > 0,
		bundle.Symptom.Severity > 0,
		bundle.Risk.RiskScore >= 0,
	}
	satisfied := 0
	for _, ok := range checks {
		if ok {
			satisfied++
		}
	}
	confidence += float64(satisfied) / float64(len(checks)) * 0.2

	if confidence > 1.0 {
		confidence = 1.0
	}

	return confidence
}

func (s *Scorer) clinicalReasoning(ctx context.Context, report model.SymptomReport, bundle model.ContextBundle, snippets []model.KnowledgeSnippet) string {
	if s.reasoner == nil {
		metrics.ReasoningFallbackTotal.Inc()
		return fallbackReasoning
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reasoning, err := s.reasoner.GenerateClinicalReasoning(ctx, buildTriagePrompt(report, bundle, snippets))
	if err != nil {
		logger.Warn("Clinical reasoning backend failed, using fallback", zap.Error(err))
		metrics.ReasoningFallbackTotal.Inc()
		return fallbackReasoning
	}

	return reasoning
}

func truncateReasoning(reasoning string) string {
	if len(reasoning) > maxReasoningLength {
		return reasoning[:maxReasoningLength] + "..."
	}
	return reasoning
}
