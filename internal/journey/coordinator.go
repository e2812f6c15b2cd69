package journey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/metrics"
	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
)

var (
	// ErrEmptyIdentifier rejects malformed patient/report identifiers
	// before any stage executes.
	ErrEmptyIdentifier = errors.New("patient and report identifiers are required")

	// ErrInvalidReport rejects reports missing required complaint fields;
	// the journey is never started.
	ErrInvalidReport = errors.New("symptom report is incomplete")
)

// Stage collaborators, injected at construction so the external-service-
// calling stages can be substituted with test doubles.
type ContextBuilder interface {
	Build(patient model.PatientProfile, report model.SymptomReport) model.ContextBundle
}

type Retriever interface {
	Retrieve(ctx context.Context, queryText string, hint model.DemographicContext) []model.KnowledgeSnippet
}

type Scorer interface {
	Score(ctx context.Context, report model.SymptomReport, bundle model.ContextBundle, snippets []model.KnowledgeSnippet) model.TriageVerdict
}

type Matcher interface {
	Match(verdict model.TriageVerdict, patient model.PatientProfile, bundle model.ContextBundle) []model.PhysicianCandidate
}

type Planner interface {
	Schedule(patient model.PatientProfile, verdict model.TriageVerdict, candidates []model.PhysicianCandidate) (*model.ScheduleOffer, *model.SchedulingFailure)
}

type Generator interface {
	Generate(patient model.PatientProfile, verdict model.TriageVerdict, offer model.ScheduleOffer) model.CarePlan
}

var emergencyActions = []string{
	"Call 911 immediately",
	"Do not drive yourself",
	"Have someone stay with you",
	"Bring medication list and ID",
}

// Coordinator sequences the decision pipeline:
//
//	ContextBuilding -> Retrieval -> Triage -> PhysicianMatching ->
//	Scheduling -> WorkflowGeneration -> Completed
//
// A Critical verdict short-circuits after Triage to EmergencyEscalation;
// the downstream stages are never invoked. Each journey is an independent
// unit of work with no shared mutable state.
type Coordinator struct {
	contextBuilder ContextBuilder
	retriever      Retriever
	scorer         Scorer
	matcher        Matcher
	planner        Planner
	generator      Generator
	sinks          []EventSink
	now            func() time.Time
}

type Option func(*Coordinator)

func WithEventSink(sink EventSink) Option {
	return func(c *Coordinator) {
		c.sinks = append(c.sinks, sink)
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(
	contextBuilder ContextBuilder,
	retriever Retriever,
	scorer Scorer,
	matcher Matcher,
	planner Planner,
	generator Generator,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		contextBuilder: contextBuilder,
		retriever:      retriever,
		scorer:         scorer,
		matcher:        matcher,
		planner:        planner,
		generator:      generator,
		sinks:          []EventSink{LogSink{}},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one complete patient journey. It returns an error only for
// inputs rejected before the pipeline starts; a started journey always
// reaches one of its terminal states.
func (c *Coordinator) Run(ctx context.Context, patient model.PatientProfile, report model.SymptomReport) (*model.JourneyResult, error) {
	if err := validateInputs(patient, report); err != nil {
		return nil, err
	}

	journeyID := uuid.New().String()
	startedAt := c.now()

	logger.Info("Starting patient journey",
		zap.String("journey_id", journeyID),
		zap.String("patient_id", patient.ID),
	)

	result := &model.JourneyResult{
		ID:        journeyID,
		PatientID: patient.ID,
		ReportID:  report.ID,
		StartedAt: startedAt,
	}

	bundle := c.runContextStage(journeyID, patient, report)
	result.Context = bundle

	snippets := c.runRetrievalStage(ctx, journeyID, report, bundle)
	result.Snippets = snippets

	verdict := c.runTriageStage(ctx, journeyID, report, bundle, snippets)
	result.Verdict = verdict

	if verdict.RequiresEmergency {
		c.escalate(journeyID, patient, report, result)
		return c.finish(result), nil
	}

	candidates := c.runMatchingStage(journeyID, verdict, patient, bundle)
	result.Candidates = candidates

	offer, failure := c.runSchedulingStage(journeyID, patient, verdict, candidates)
	if failure != nil {
		result.Failure = failure
		result.Status = model.StatusSchedulingFailed
		c.publish(Event{JourneyID: journeyID, Stage: StageScheduling, Outcome: "failed", Detail: failure.Reason, Timestamp: c.now()})
		return c.finish(result), nil
	}
	result.Offer = offer

	plan := c.runWorkflowStage(journeyID, patient, verdict, *offer)
	result.Plan = &plan
	result.Status = model.StatusCompleted

	c.publish(Event{JourneyID: journeyID, Stage: StageCompleted, Outcome: "completed", Timestamp: c.now()})

	return c.finish(result), nil
}

func validateInputs(patient model.PatientProfile, report model.SymptomReport) error {
	if strings.TrimSpace(patient.ID) == "" || strings.TrimSpace(report.ID) == "" {
		return ErrEmptyIdentifier
	}
	if strings.TrimSpace(report.PrimaryComplaint) == "" {
		return fmt.Errorf("%w: primary complaint is required", ErrInvalidReport)
	}
	if len(report.Symptoms) == 0 {
		return fmt.Errorf("%w: at least one symptom is required", ErrInvalidReport)
	}
	if report.Severity < 1 || report.Severity > 10 {
		return fmt.Errorf("%w: severity must be between 1 and 10", ErrInvalidReport)
	}
	return nil
}

func (c *Coordinator) runContextStage(journeyID string, patient model.PatientProfile, report model.SymptomReport) model.ContextBundle {
	start := time.Now()
	bundle := c.contextBuilder.Build(patient, report)
	metrics.StageDuration.WithLabelValues(string(StageContextBuilding)).Observe(time.Since(start).Seconds())

	c.publish(Event{
		JourneyID: journeyID,
		Stage:     StageContextBuilding,
		Outcome:   bundle.Validation.Status,
		Detail:    fmt.Sprintf("risk_score=%d high_risk=%t", bundle.Risk.RiskScore, bundle.Risk.HighRisk),
		Timestamp: c.now(),
	})

	return bundle
}

func (c *Coordinator) runRetrievalStage(ctx context.Context, journeyID string, report model.SymptomReport, bundle model.ContextBundle) []model.KnowledgeSnippet {
	queryText := report.PrimaryComplaint + " " + strings.Join(report.Symptoms, " ")

	start := time.Now()
	snippets := c.retriever.Retrieve(ctx, queryText, bundle.Demographic)
	metrics.StageDuration.WithLabelValues(string(StageRetrieval)).Observe(time.Since(start).Seconds())

	c.publish(Event{
		JourneyID: journeyID,
		Stage:     StageRetrieval,
		Outcome:   "retrieved",
		Detail:    fmt.Sprintf("snippets=%d", len(snippets)),
		Timestamp: c.now(),
	})

	return snippets
}

func (c *Coordinator) runTriageStage(ctx context.Context, journeyID string, report model.SymptomReport, bundle model.ContextBundle, snippets []model.KnowledgeSnippet) model.TriageVerdict {
	start := time.Now()
	verdict := c.scorer.Score(ctx, report, bundle, snippets)
	metrics.StageDuration.WithLabelValues(string(StageTriage)).Observe(time.Since(start).Seconds())

	c.publish(Event{
		JourneyID: journeyID,
		Stage:     StageTriage,
		Outcome:   verdict.UrgencyLevel.String(),
		Detail:    fmt.Sprintf("score=%d specialty=%s", verdict.UrgencyScore, verdict.RecommendedSpecialty),
		Timestamp: c.now(),
	})

	return verdict
}

func (c *Coordinator) escalate(journeyID string, patient model.PatientProfile, report model.SymptomReport, result *model.JourneyResult) {
	logger.Warn("Emergency escalation triggered",
		zap.String("journey_id", journeyID),
		zap.String("patient_id", patient.ID),
	)

	result.Emergency = &model.EmergencyBundle{
		PatientID:          patient.ID,
		EmergencyLevel:     "CRITICAL",
		PrimarySymptoms:    report.Symptoms,
		MedicalHistory:     patient.MedicalHistory,
		CurrentMedications: patient.CurrentMedications,
		Allergies:          patient.Allergies,
		EmergencyContact:   patient.EmergencyContact,
		EstimatedArrival:   "Immediate transport recommended",
		RecommendedActions: emergencyActions,
	}
	result.Status = model.StatusEmergencyEscalation

	metrics.EmergencyEscalations.Inc()

	c.publish(Event{
		JourneyID: journeyID,
		Stage:     StageEmergencyEscalation,
		Outcome:   "escalated",
		Timestamp: c.now(),
	})
}

func (c *Coordinator) runMatchingStage(journeyID string, verdict model.TriageVerdict, patient model.PatientProfile, bundle model.ContextBundle) []model.PhysicianCandidate {
	start := time.Now()
	candidates := c.matcher.Match(verdict, patient, bundle)
	metrics.StageDuration.WithLabelValues(string(StagePhysicianMatching)).Observe(time.Since(start).Seconds())

	c.publish(Event{
		JourneyID: journeyID,
		Stage:     StagePhysicianMatching,
		Outcome:   "matched",
		Detail:    fmt.Sprintf("candidates=%d", len(candidates)),
		Timestamp: c.now(),
	})

	return candidates
}

func (c *Coordinator) runSchedulingStage(journeyID string, patient model.PatientProfile, verdict model.TriageVerdict, candidates []model.PhysicianCandidate) (*model.ScheduleOffer, *model.SchedulingFailure) {
	start := time.Now()
	offer, failure := c.planner.Schedule(patient, verdict, candidates)
	metrics.StageDuration.WithLabelValues(string(StageScheduling)).Observe(time.Since(start).Seconds())

	if offer != nil {
		c.publish(Event{
			JourneyID: journeyID,
			Stage:     StageScheduling,
			Outcome:   "confirmed",
			Detail:    fmt.Sprintf("appointment_id=%s physician=%s", offer.AppointmentID, offer.Physician.Name),
			Timestamp: c.now(),
		})
	}

	return offer, failure
}

func (c *Coordinator) runWorkflowStage(journeyID string, patient model.PatientProfile, verdict model.TriageVerdict, offer model.ScheduleOffer) model.CarePlan {
	start := time.Now()
	plan := c.generator.Generate(patient, verdict, offer)
	metrics.StageDuration.WithLabelValues(string(StageWorkflowGeneration)).Observe(time.Since(start).Seconds())

	c.publish(Event{
		JourneyID: journeyID,
		Stage:     StageWorkflowGeneration,
		Outcome:   "created",
		Detail:    fmt.Sprintf("plan_id=%s", plan.ID),
		Timestamp: c.now(),
	})

	return plan
}

func (c *Coordinator) finish(result *model.JourneyResult) *model.JourneyResult {
	result.FinishedAt = c.now()
	result.LatencyMS = int(result.FinishedAt.Sub(result.StartedAt).Milliseconds())

	metrics.JourneyTotal.WithLabelValues(string(result.Status)).Inc()
	metrics.JourneyDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())

	logger.Info("Patient journey finished",
		zap.String("journey_id", result.ID),
		zap.String("status", string(result.Status)),
		zap.Int("latency_ms", result.LatencyMS),
	)

	return result
}

func (c *Coordinator) publish(event Event) {
	for _, sink := range c.sinks {
		sink.Publish(event)
	}
}
