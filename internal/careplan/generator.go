package careplan

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
)

const (
	taskCompleted = "completed"
	taskPending   = "pending"
)

// Generator expands a confirmed appointment into the four-phase care plan.
// Each phase is built independently and deterministically from the verdict
// and offer.
type Generator struct {
	now func() time.Time
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate(patient model.PatientProfile, verdict model.TriageVerdict, offer model.ScheduleOffer) model.CarePlan {
	now := g.now()

	plan := model.CarePlan{
		ID:              uuid.New().String()[:8],
		PatientID:       patient.ID,
		CreatedAt:       now,
		Status:          "active",
		PreAppointment:  preAppointmentPhase(verdict, offer, now),
		Appointment:     appointmentPhase(verdict),
		PostAppointment: postAppointmentPhase(verdict),
		FollowUp:        followUpPhase(verdict, now),
	}

	logger.Info("Care plan created",
		zap.String("plan_id", plan.ID),
		zap.String("patient_id", patient.ID),
		zap.Int("pre_appointment_tasks", len(plan.PreAppointment.Tasks)),
		zap.Int("appointment_steps", len(plan.Appointment.Steps)),
		zap.Int("follow_up_milestones", len(plan.FollowUp.Milestones)),
	)

	return plan
}

func preAppointmentPhase(verdict model.TriageVerdict, offer model.ScheduleOffer, now time.Time) model.PreAppointmentPhase {
	tasks := []model.PlanTask{
		{Task: "Send appointment confirmation", Status: taskCompleted, DueDate: now},
		{Task: "Update patient portal", Status: taskCompleted, DueDate: now},
		{Task: "Send pre-appointment instructions", Status: taskPending, DueDate: now.Add(time.Hour)},
	}

	if verdict.UrgencyLevel == model.Urgent || verdict.UrgencyLevel == model.Critical {
		tasks = append(tasks, model.PlanTask{
			Task:    "Contact patient to confirm appointment understanding",
			Status:  taskPending,
			DueDate: now.Add(2 * time.Hour),
		})
	}

	if strings.EqualFold(verdict.RecommendedSpecialty, "cardiology") {
		tasks = append(tasks, model.PlanTask{
			Task:    "Order pre-visit EKG if indicated",
			Status:  taskPending,
			DueDate: offer.AppointmentTime.Add(-24 * time.Hour),
		})
	}

	completed := 0
	for _, t := range tasks {
		if t.Status == taskCompleted {
			completed++
		}
	}

	return model.PreAppointmentPhase{
		Tasks:    tasks,
		Progress: model.PhaseProgress{Completed: completed, Total: len(tasks)},
	}
}

func appointmentPhase(verdict model.TriageVerdict) model.AppointmentPhase {
	steps := []model.PlanStep{
		{Step: "Patient check-in", Duration: "5 min", Responsible: "reception"},
		{Step: "Vital signs collection", Duration: "10 min", Responsible: "nurse"},
		{Step: "Medical history review", Duration: "5 min", Responsible: "nurse"},
		{Step: "Physician consultation", Duration: "20-30 min", Responsible: "physician"},
		{Step: "Treatment plan discussion", Duration: "10 min", Responsible: "physician"},
		{Step: "Schedule follow-up if needed", Duration: "5 min", Responsible: "reception"},
	}

	if verdict.UrgencyLevel == model.Urgent {
		rapid := model.PlanStep{Step: "Rapid assessment protocol", Duration: "10 min", Responsible: "nurse"}
		steps = append(steps[:2], append([]model.PlanStep{rapid}, steps[2:]...)...)
	}

	total := 0
	for _, s := range steps {
		total += lowerBoundMinutes(s.Duration)
	}

	return model.AppointmentPhase{
		Steps:                steps,
		TotalDurationMinutes: total,
	}
}

// lowerBoundMinutes parses the lower bound of duration labels like
// "10 min" or "20-30 min".
func lowerBoundMinutes(duration string) int {
	fields := strings.Fields(duration)
	if len(fields) == 0 {
		return 0
	}
	lower := strings.SplitN(fields[0], "-", 2)[0]
	minutes, err := strconv.Atoi(lower)
	if err != nil {
		return 0
	}
	return minutes
}

func postAppointmentPhase(verdict model.TriageVerdict) model.PostAppointmentPhase {
	tasks := []model.PlanTask{
		{Task: "Upload visit notes to EHR", Responsible: "physician", Due: "Within 24 hours"},
		{Task: "Send visit summary to patient", Responsible: "system", Due: "Within 2 hours"},
		{Task: "Process any lab/imaging orders", Responsible: "lab_coordinator", Due: "Same day"},
	}

	if strings.EqualFold(verdict.RecommendedSpecialty, "cardiology") {
		tasks = append(tasks, model.PlanTask{
			Task:        "Review EKG results with patient",
			Responsible: "physician",
			Due:         "Within 48 hours",
		})
	}

	return model.PostAppointmentPhase{Tasks: tasks}
}

func followUpPhase(verdict model.TriageVerdict, now time.Time) model.FollowUpPhase {
	milestones := []model.PlanMilestone{}

	if verdict.UrgencyLevel == model.Urgent || verdict.UrgencyLevel == model.SemiUrgent {
		milestones = append(milestones,
			model.PlanMilestone{
				Milestone:   "24-hour check-in call",
				DueDate:     now.Add(24 * time.Hour),
				Responsible: "nurse",
			},
			model.PlanMilestone{
				Milestone:   "1-week follow-up appointment",
				DueDate:     now.Add(7 * 24 * time.Hour),
				Responsible: "scheduler",
			},
		)
	}

	milestones = append(milestones, model.PlanMilestone{
		Milestone:   "Treatment response evaluation",
		DueDate:     now.Add(14 * 24 * time.Hour),
		Responsible: "physician",
	})

	return model.FollowUpPhase{Milestones: milestones}
}
