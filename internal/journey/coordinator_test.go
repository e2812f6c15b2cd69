package journey

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-agent/backend/internal/careplan"
	"github.com/triage-agent/backend/internal/contexteng"
	"github.com/triage-agent/backend/internal/knowledge"
	"github.com/triage-agent/backend/internal/matching"
	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/internal/scheduling"
	"github.com/triage-agent/backend/internal/triage"
)

type stubMatcher struct {
	calls      int
	candidates []model.PhysicianCandidate
}

func (s *stubMatcher) Match(verdict model.TriageVerdict, patient model.PatientProfile, bundle model.ContextBundle) []model.PhysicianCandidate {
	s.calls++
	return s.candidates
}

type stubPlanner struct {
	calls   int
	offer   *model.ScheduleOffer
	failure *model.SchedulingFailure
}

func (s *stubPlanner) Schedule(patient model.PatientProfile, verdict model.TriageVerdict, candidates []model.PhysicianCandidate) (*model.ScheduleOffer, *model.SchedulingFailure) {
	s.calls++
	return s.offer, s.failure
}

type stubGenerator struct {
	calls int
}

func (s *stubGenerator) Generate(patient model.PatientProfile, verdict model.TriageVerdict, offer model.ScheduleOffer) model.CarePlan {
	s.calls++
	return model.CarePlan{ID: "plan0001", PatientID: patient.ID}
}

var directoryProviders = []model.Provider{
	{
		ID:               "card_001",
		Name:             "Dr. Sarah Johnson",
		Specialty:        "Cardiology",
		Location:         "New York, NY",
		Rating:           4.8,
		AcceptsInsurance: []string{"Aetna", "Blue Cross"},
	},
	{
		ID:               "general_001",
		Name:             "Dr. Robert Wilson",
		Specialty:        "General Medicine",
		Location:         "Miami, FL",
		Rating:           4.5,
		AcceptsInsurance: []string{"Aetna", "Medicaid"},
	},
}

func fullPipelineCoordinator(opts ...Option) *Coordinator {
	return NewCoordinator(
		contexteng.NewEngineer(),
		knowledge.NewRetriever(nil, nil),
		triage.NewScorer(nil),
		matching.NewMatcher(directoryProviders, matching.NewHashDistance()),
		scheduling.NewPlanner(),
		careplan.NewGenerator(),
		opts...,
	)
}

func TestJourneyCompletes(t *testing.T) {
	sink := NewChannelSink(32)
	coordinator := fullPipelineCoordinator(WithEventSink(sink))

	patient := model.PatientProfile{
		ID:        "pat_001",
		Name:      "James Carter",
		Age:       52,
		Location:  "New York, NY",
		Insurance: "Aetna",
	}
	report := model.SymptomReport{
		ID:               "rep_001",
		PatientID:        "pat_001",
		PrimaryComplaint: "chest pain",
		Symptoms:         []string{"chest pain", "shortness of breath"},
		Severity:         2,
		Duration:         "2 hours",
	}

	result, err := coordinator.Run(context.Background(), patient, report)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, result.Status)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "pat_001", result.PatientID)

	// Red-flag complaint with modest severity ranks urgent, not critical.
	assert.Equal(t, model.Urgent, result.Verdict.UrgencyLevel)
	assert.False(t, result.Verdict.RequiresEmergency)
	assert.Equal(t, "cardiology", result.Verdict.RecommendedSpecialty)

	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, "card_001", result.Candidates[0].PhysicianID)

	require.NotNil(t, result.Offer)
	assert.Equal(t, "Dr. Sarah Johnson", result.Offer.Physician.Name)

	require.NotNil(t, result.Plan)
	assert.Nil(t, result.Emergency)
	assert.Nil(t, result.Failure)

	sink.Close()
	stages := []Stage{}
	for event := range sink.Events() {
		assert.Equal(t, result.ID, event.JourneyID)
		stages = append(stages, event.Stage)
	}
	assert.Equal(t, []Stage{
		StageContextBuilding,
		StageRetrieval,
		StageTriage,
		StagePhysicianMatching,
		StageScheduling,
		StageWorkflowGeneration,
		StageCompleted,
	}, stages)
}

func TestJourneyEmergencyShortCircuit(t *testing.T) {
	matcher := &stubMatcher{}
	planner := &stubPlanner{}
	generator := &stubGenerator{}
	sink := NewChannelSink(32)

	coordinator := NewCoordinator(
		contexteng.NewEngineer(),
		knowledge.NewRetriever(nil, nil),
		triage.NewScorer(nil),
		matcher,
		planner,
		generator,
		WithEventSink(sink),
	)

	patient := model.PatientProfile{
		ID:                 "pat_002",
		Age:                85,
		MedicalHistory:     []string{"heart disease"},
		CurrentMedications: []string{"warfarin"},
		Allergies:          []string{"penicillin"},
		EmergencyContact:   "555-0100",
	}
	report := model.SymptomReport{
		ID:               "rep_002",
		PatientID:        "pat_002",
		PrimaryComplaint: "chest pain",
		Symptoms:         []string{"chest pain", "difficulty breathing"},
		Severity:         9,
		Duration:         "sudden onset",
	}

	result, err := coordinator.Run(context.Background(), patient, report)
	require.NoError(t, err)

	assert.Equal(t, model.StatusEmergencyEscalation, result.Status)
	assert.True(t, result.Verdict.RequiresEmergency)

	require.NotNil(t, result.Emergency)
	assert.Equal(t, "CRITICAL", result.Emergency.EmergencyLevel)
	assert.Equal(t, report.Symptoms, result.Emergency.PrimarySymptoms)
	assert.Equal(t, []string{"penicillin"}, result.Emergency.Allergies)
	assert.Equal(t, "555-0100", result.Emergency.EmergencyContact)
	assert.Equal(t, "Immediate transport recommended", result.Emergency.EstimatedArrival)
	assert.Contains(t, result.Emergency.RecommendedActions, "Call 911 immediately")

	// Downstream stages never run on escalation.
	assert.Zero(t, matcher.calls)
	assert.Zero(t, planner.calls)
	assert.Zero(t, generator.calls)
	assert.Nil(t, result.Candidates)
	assert.Nil(t, result.Offer)
	assert.Nil(t, result.Plan)

	sink.Close()
	stages := []Stage{}
	for event := range sink.Events() {
		stages = append(stages, event.Stage)
	}
	assert.Equal(t, []Stage{
		StageContextBuilding,
		StageRetrieval,
		StageTriage,
		StageEmergencyEscalation,
	}, stages)
}

func TestJourneySchedulingFailure(t *testing.T) {
	generator := &stubGenerator{}
	coordinator := NewCoordinator(
		contexteng.NewEngineer(),
		knowledge.NewRetriever(nil, nil),
		triage.NewScorer(nil),
		&stubMatcher{},
		&stubPlanner{failure: &model.SchedulingFailure{Reason: "No physicians available"}},
		generator,
	)

	patient := model.PatientProfile{ID: "pat_003", Age: 40, Insurance: "Kaiser"}
	report := model.SymptomReport{
		ID:               "rep_003",
		PatientID:        "pat_003",
		PrimaryComplaint: "knee pain",
		Symptoms:         []string{"joint pain"},
		Severity:         4,
	}

	result, err := coordinator.Run(context.Background(), patient, report)
	require.NoError(t, err)

	assert.Equal(t, model.StatusSchedulingFailed, result.Status)
	require.NotNil(t, result.Failure)
	assert.Equal(t, "No physicians available", result.Failure.Reason)
	assert.Nil(t, result.Offer)
	assert.Nil(t, result.Plan)
	assert.Zero(t, generator.calls)
}

func TestJourneyInputValidation(t *testing.T) {
	coordinator := fullPipelineCoordinator()

	validPatient := model.PatientProfile{ID: "pat_004", Age: 40}
	validReport := model.SymptomReport{
		ID:               "rep_004",
		PrimaryComplaint: "cough",
		Symptoms:         []string{"cough"},
		Severity:         3,
	}

	t.Run("missing patient identifier", func(t *testing.T) {
		_, err := coordinator.Run(context.Background(), model.PatientProfile{}, validReport)
		assert.ErrorIs(t, err, ErrEmptyIdentifier)
	})

	t.Run("missing report identifier", func(t *testing.T) {
		report := validReport
		report.ID = "  "
		_, err := coordinator.Run(context.Background(), validPatient, report)
		assert.ErrorIs(t, err, ErrEmptyIdentifier)
	})

	t.Run("missing complaint", func(t *testing.T) {
		report := validReport
		report.PrimaryComplaint = ""
		_, err := coordinator.Run(context.Background(), validPatient, report)
		assert.ErrorIs(t, err, ErrInvalidReport)
	})

	t.Run("no symptoms", func(t *testing.T) {
		report := validReport
		report.Symptoms = nil
		_, err := coordinator.Run(context.Background(), validPatient, report)
		assert.ErrorIs(t, err, ErrInvalidReport)
	})

	t.Run("severity out of range", func(t *testing.T) {
		for _, severity := range []int{0, 11} {
			report := validReport
			report.Severity = severity
			_, err := coordinator.Run(context.Background(), validPatient, report)
			assert.ErrorIs(t, err, ErrInvalidReport, "severity %d", severity)
		}
	})
}

func TestChannelSinkNeverBlocks(t *testing.T) {
	sink := NewChannelSink(1)

	sink.Publish(Event{JourneyID: "j1", Stage: StageTriage})
	sink.Publish(Event{JourneyID: "j2", Stage: StageTriage})

	sink.Close()

	events := []Event{}
	for event := range sink.Events() {
		events = append(events, event)
	}
	require.Len(t, events, 1)
	assert.Equal(t, "j1", events[0].JourneyID)

	// Publishing after close is a no-op.
	sink.Publish(Event{JourneyID: "j3"})
}
