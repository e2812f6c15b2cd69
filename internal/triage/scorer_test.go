package triage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-agent/backend/internal/model"
)

type stubReasoner struct {
	reasoning string
	err       error
}

func (s *stubReasoner) GenerateClinicalReasoning(ctx context.Context, prompt string) (string, error) {
	return s.reasoning, s.err
}

func plainBundle(age int) model.ContextBundle {
	return model.ContextBundle{
		Demographic: model.DemographicContext{Age: age},
	}
}

func TestUrgencyLevelBoundaries(t *testing.T) {
	// With a 30-year-old, no risk factors and no snippets the urgency
	// score is severity*10, which walks the level thresholds directly.
	cases := []struct {
		severity int
		level    model.UrgencyLevel
	}{
		{2, model.NonUrgent},
		{3, model.Standard},
		{4, model.Standard},
		{5, model.SemiUrgent},
		{6, model.SemiUrgent},
		{7, model.Urgent},
		{9, model.Urgent},
		{10, model.Critical},
	}

	scorer := NewScorer(nil)

	for _, tc := range cases {
		report := model.SymptomReport{ID: "rep_001", Symptoms: []string{"fatigue"}, Severity: tc.severity}
		verdict := scorer.Score(context.Background(), report, plainBundle(30), nil)

		assert.Equal(t, tc.level, verdict.UrgencyLevel, "severity %d", tc.severity)
		assert.Equal(t, tc.severity*10, verdict.UrgencyScore, "severity %d", tc.severity)
	}
}

func TestRequiresEmergencyOnlyWhenCritical(t *testing.T) {
	scorer := NewScorer(nil)

	urgent := scorer.Score(context.Background(),
		model.SymptomReport{ID: "rep_002", Symptoms: []string{"fatigue"}, Severity: 9},
		plainBundle(30), nil)
	critical := scorer.Score(context.Background(),
		model.SymptomReport{ID: "rep_003", Symptoms: []string{"fatigue"}, Severity: 10},
		plainBundle(30), nil)

	assert.False(t, urgent.RequiresEmergency)
	assert.True(t, critical.RequiresEmergency)
	assert.Equal(t, model.Critical, critical.UrgencyLevel)
}

func TestUrgencyScoreContributions(t *testing.T) {
	scorer := NewScorer(nil)

	t.Run("red flag symptom adds 30", func(t *testing.T) {
		base := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4},
			plainBundle(30), nil)
		flagged := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"chest pain"}, Severity: 4},
			plainBundle(30), nil)

		assert.Equal(t, base.UrgencyScore+30, flagged.UrgencyScore)
	})

	t.Run("age extremes add 20", func(t *testing.T) {
		elderly := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4},
			plainBundle(85), nil)

		assert.Equal(t, 60, elderly.UrgencyScore)
	})

	t.Run("risk factors add 15 each", func(t *testing.T) {
		bundle := plainBundle(30)
		bundle.Risk.RiskFactors = []string{"Advanced age", "History of diabetes"}

		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4},
			bundle, nil)

		assert.Equal(t, 70, verdict.UrgencyScore)
	})

	t.Run("snippet urgency contributes", func(t *testing.T) {
		snippets := []model.KnowledgeSnippet{
			{Specialty: "cardiology", Urgency: "high"},
			{Specialty: "cardiology", Urgency: "medium"},
		}

		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4},
			plainBundle(30), snippets)

		assert.Equal(t, 80, verdict.UrgencyScore)
	})

	t.Run("sudden onset adds 20", func(t *testing.T) {
		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4, Duration: "sudden onset this morning"},
			plainBundle(30), nil)

		assert.Equal(t, 60, verdict.UrgencyScore)
	})
}

func TestRecommendSpecialty(t *testing.T) {
	scorer := NewScorer(nil)

	t.Run("plurality over snippet tags", func(t *testing.T) {
		snippets := []model.KnowledgeSnippet{
			{Specialty: "cardiology"},
			{Specialty: "neurology"},
			{Specialty: "cardiology"},
		}

		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4},
			plainBundle(30), snippets)

		assert.Equal(t, "cardiology", verdict.RecommendedSpecialty)
	})

	t.Run("tie breaks toward first encountered", func(t *testing.T) {
		snippets := []model.KnowledgeSnippet{
			{Specialty: "neurology"},
			{Specialty: "cardiology"},
		}

		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4},
			plainBundle(30), snippets)

		assert.Equal(t, "neurology", verdict.RecommendedSpecialty)
	})

	t.Run("keyword scan when snippets carry no specialty", func(t *testing.T) {
		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", PrimaryComplaint: "crushing chest pain", Symptoms: []string{"sweating"}, Severity: 4},
			plainBundle(30), nil)

		assert.Equal(t, "cardiology", verdict.RecommendedSpecialty)
	})

	t.Run("defaults to general medicine", func(t *testing.T) {
		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", PrimaryComplaint: "feeling off", Symptoms: []string{"malaise"}, Severity: 4},
			plainBundle(30), nil)

		assert.Equal(t, "general_medicine", verdict.RecommendedSpecialty)
	})
}

func TestConfidenceScore(t *testing.T) {
	scorer := NewScorer(nil)

	t.Run("sparse context yields baseline confidence", func(t *testing.T) {
		bundle := plainBundle(30)
		bundle.Symptom.Severity = 4

		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4},
			bundle, nil)

		// severity and risk-score checks pass, history and medications fail.
		assert.InDelta(t, 0.6, verdict.ConfidenceScore, 1e-9)
	})

	t.Run("rich context and relevant snippets raise confidence", func(t *testing.T) {
		bundle := plainBundle(30)
		bundle.Symptom.Severity = 4
		bundle.Medical.ChronicConditions = []string{"hypertension"}
		bundle.Medical.CurrentMedications = []string{"lisinopril"}

		snippets := []model.KnowledgeSnippet{{Specialty: "cardiology", Score: 1.0}}

		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4},
			bundle, snippets)

		assert.Equal(t, 1.0, verdict.ConfidenceScore)
	})
}

func TestEstimatedWaitTimes(t *testing.T) {
	scorer := NewScorer(nil)

	cases := []struct {
		severity int
		wait     string
	}{
		{10, "Immediate"},
		{7, "Within 2 hours"},
		{5, "Within 24 hours"},
		{3, "Within 1-2 weeks"},
		{2, "Within 1 month"},
	}

	for _, tc := range cases {
		verdict := scorer.Score(context.Background(),
			model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: tc.severity},
			plainBundle(30), nil)

		assert.Equal(t, tc.wait, verdict.EstimatedWaitTime, "severity %d", tc.severity)
	}
}

func TestClinicalReasoning(t *testing.T) {
	report := model.SymptomReport{ID: "r", Symptoms: []string{"fatigue"}, Severity: 4}

	t.Run("nil reasoner uses fallback", func(t *testing.T) {
		verdict := NewScorer(nil).Score(context.Background(), report, plainBundle(30), nil)

		assert.Equal(t, fallbackReasoning, verdict.ClinicalReasoning)
	})

	t.Run("reasoner failure uses fallback", func(t *testing.T) {
		scorer := NewScorer(&stubReasoner{err: errors.New("backend down")})

		verdict := scorer.Score(context.Background(), report, plainBundle(30), nil)

		assert.Equal(t, fallbackReasoning, verdict.ClinicalReasoning)
	})

	t.Run("long reasoning is truncated", func(t *testing.T) {
		long := strings.Repeat("a", 250)
		scorer := NewScorer(&stubReasoner{reasoning: long})

		verdict := scorer.Score(context.Background(), report, plainBundle(30), nil)

		require.Len(t, verdict.ClinicalReasoning, maxReasoningLength+3)
		assert.True(t, strings.HasSuffix(verdict.ClinicalReasoning, "..."))
	})

	t.Run("short reasoning passes through", func(t *testing.T) {
		scorer := NewScorer(&stubReasoner{reasoning: "Likely viral syndrome, standard follow-up."})

		verdict := scorer.Score(context.Background(), report, plainBundle(30), nil)

		assert.Equal(t, "Likely viral syndrome, standard follow-up.", verdict.ClinicalReasoning)
	})
}
