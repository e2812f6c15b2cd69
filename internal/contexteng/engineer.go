package contexteng

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
)

var (
	highRiskConditions = []string{"diabetes", "heart disease", "hypertension", "cancer"}
	highRiskMeds       = []string{"warfarin", "insulin", "chemotherapy"}
	redFlagSymptoms    = []string{"chest pain", "severe headache", "difficulty breathing"}
	adultOnlyMeds      = []string{"warfarin", "metformin"}

	// Urban areas with high specialty access.
	urbanAreas = []string{"New York", "Los Angeles", "Chicago", "Boston"}
)

// Engineer fuses a patient profile and symptom report into the structured
// context bundle consumed by the downstream stages. Build is a pure function
// of its inputs and the injected clock.
type Engineer struct {
	now func() time.Time
}

type Option func(*Engineer)

func WithClock(now func() time.Time) Option {
	return func(e *Engineer) {
		e.now = now
	}
}

func NewEngineer(opts ...Option) *Engineer {
	e := &Engineer{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engineer) Build(patient model.PatientProfile, report model.SymptomReport) model.ContextBundle {
	bundle := model.ContextBundle{
		Demographic: model.DemographicContext{
			Age:      patient.Age,
			Gender:   patient.Gender,
			Location: patient.Location,
		},
		Medical: model.MedicalContext{
			ChronicConditions:  patient.MedicalHistory,
			CurrentMedications: patient.CurrentMedications,
			Allergies:          patient.Allergies,
			FamilyHistory:      patient.FamilyHistory,
		},
		Symptom: model.SymptomContext{
			PrimaryComplaint:   report.PrimaryComplaint,
			Symptoms:           report.Symptoms,
			Severity:           report.Severity,
			Duration:           report.Duration,
			AssociatedSymptoms: report.AssociatedSymptoms,
		},
		Risk:     calculateRiskProfile(patient, report),
		Temporal: e.temporalContext(),
		Social: model.SocialContext{
			InsuranceStatus:  patient.Insurance,
			LocationAccess:   assessLocationAccess(patient.Location),
			EmergencySupport: patient.EmergencyContact != "",
		},
	}

	bundle.Validation = validateConsistency(bundle)

	logger.Debug("Context bundle built",
		zap.String("patient_id", patient.ID),
		zap.Int("risk_score", bundle.Risk.RiskScore),
		zap.Bool("high_risk", bundle.Risk.HighRisk),
		zap.String("validation", bundle.Validation.Status),
	)

	return bundle
}

func calculateRiskProfile(patient model.PatientProfile, report model.SymptomReport) model.RiskProfile {
	riskFactors := []string{}

	if patient.Age > 65 {
		riskFactors = append(riskFactors, "Advanced age")
	} else if patient.Age < 2 {
		riskFactors = append(riskFactors, "Pediatric patient")
	}

	for _, condition := range patient.MedicalHistory {
		if containsAny(condition, highRiskConditions) {
			riskFactors = append(riskFactors, fmt.Sprintf("History of %s", condition))
		}
	}

	for _, med := range patient.CurrentMedications {
		if containsAny(med, highRiskMeds) {
			riskFactors = append(riskFactors, fmt.Sprintf("High-risk medication: %s", med))
		}
	}

	if report.Severity >= 8 {
		riskFactors = append(riskFactors, "High severity symptoms")
	}

	for _, symptom := range report.Symptoms {
		if containsAny(symptom, redFlagSymptoms) {
			riskFactors = append(riskFactors, fmt.Sprintf("Red flag symptom: %s", symptom))
		}
	}

	return model.RiskProfile{
		RiskFactors: riskFactors,
		RiskScore:   len(riskFactors),
		HighRisk:    len(riskFactors) >= 3,
	}
}

func (e *Engineer) temporalContext() model.TemporalContext {
	now := e.now()
	return model.TemporalContext{
		TimeOfDay: now.Format("15:04"),
		DayOfWeek: now.Weekday().String(),
		Season:    season(now.Month()),
	}
}

func season(month time.Month) string {
	switch month {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Fall"
	}
}

func assessLocationAccess(location string) model.LocationAccess {
	for _, city := range urbanAreas {
		if strings.Contains(location, city) {
			return model.LocationAccess{AccessLevel: "High", SpecialtyAvailable: true}
		}
	}
	return model.LocationAccess{AccessLevel: "Medium", SpecialtyAvailable: false}
}

func validateConsistency(bundle model.ContextBundle) model.ConsistencyResult {
	issues := []string{}

	if bundle.Demographic.Age < 18 {
		for _, med := range bundle.Medical.CurrentMedications {
			if containsAny(med, adultOnlyMeds) {
				issues = append(issues, fmt.Sprintf("Pediatric patient on adult medication: %s", med))
			}
		}
	}

	if bundle.Symptom.Severity >= 9 && strings.Contains(strings.ToLower(bundle.Symptom.Duration), "months") {
		issues = append(issues, "Severe symptoms persisting for months - needs review")
	}

	status := "Valid"
	if len(issues) > 0 {
		status = "Needs Review"
	}

	score := 1.0 - float64(len(issues))*0.2
	if score < 0 {
		score = 0
	}

	return model.ConsistencyResult{
		Status:           status,
		Issues:           issues,
		ConsistencyScore: score,
	}
}

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
