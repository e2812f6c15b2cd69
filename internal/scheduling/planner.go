package scheduling

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
)

const (
	appointmentDuration = "30 minutes"
	noPhysiciansReason  = "No physicians available"
)

var standardPrepTasks = []string{
	"Bring photo ID and insurance card",
	"Arrive 15 minutes early for check-in",
	"Bring current medication list",
	"Prepare list of questions for doctor",
}

var specialtyPrepTasks = map[string][]string{
	"cardiology": {
		"Avoid caffeine 4 hours before appointment",
		"Bring any previous EKG or cardiac test results",
	},
	"dermatology": {
		"Avoid makeup on affected areas",
		"Bring photos of skin changes over time",
	},
	"gastroenterology": {
		"Fast for 8 hours if blood work needed",
		"Keep symptom diary until appointment",
	},
}

var urgencyPrepTasks = []string{
	"Arrange transportation (do not drive if feeling unwell)",
	"Notify emergency contact of appointment",
}

// Planner books the top-ranked candidate. An empty candidate list is an
// expected input and yields a typed failure, never an error.
type Planner struct{}

func NewPlanner() *Planner {
	return &Planner{}
}

func (p *Planner) Schedule(patient model.PatientProfile, verdict model.TriageVerdict, candidates []model.PhysicianCandidate) (*model.ScheduleOffer, *model.SchedulingFailure) {
	if len(candidates) == 0 {
		logger.Warn("No physicians available for scheduling",
			zap.String("patient_id", patient.ID),
			zap.String("specialty", verdict.RecommendedSpecialty),
		)
		return nil, &model.SchedulingFailure{Reason: noPhysiciansReason}
	}

	selected := candidates[0]
	appointmentID := uuid.New().String()[:8]

	offer := &model.ScheduleOffer{
		AppointmentID:     appointmentID,
		Physician:         selected,
		AppointmentTime:   selected.NextAvailable,
		Location:          selected.Location,
		EstimatedDuration: appointmentDuration,
		PrepTasks:         prepTasks(verdict),
		ConfirmationSent:  true,
		CalendarUpdated:   true,
	}

	logger.Info("Appointment scheduled",
		zap.String("appointment_id", appointmentID),
		zap.String("physician", selected.Name),
		zap.Time("appointment_time", offer.AppointmentTime),
	)

	return offer, nil
}

func prepTasks(verdict model.TriageVerdict) []string {
	tasks := make([]string, 0, len(standardPrepTasks)+4)
	tasks = append(tasks, standardPrepTasks...)

	if specialty, ok := specialtyPrepTasks[strings.ToLower(verdict.RecommendedSpecialty)]; ok {
		tasks = append(tasks, specialty...)
	}

	if verdict.UrgencyLevel == model.Urgent || verdict.UrgencyLevel == model.Critical {
		tasks = append(tasks, urgencyPrepTasks...)
	}

	return tasks
}
