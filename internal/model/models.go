package model

import "time"

// PatientProfile is immutable once registered.
type PatientProfile struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Age                int       `json:"age"`
	Gender             string    `json:"gender"`
	Location           string    `json:"location"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email"`
	Insurance          string    `json:"insurance"`
	EmergencyContact   string    `json:"emergency_contact"`
	MedicalHistory     []string  `json:"medical_history"`
	CurrentMedications []string  `json:"current_medications"`
	Allergies          []string  `json:"allergies"`
	FamilyHistory      []string  `json:"family_history"`
	CreatedAt          time.Time `json:"created_at"`
}

// SymptomReport is immutable once submitted. One report per journey.
type SymptomReport struct {
	ID                 string    `json:"id"`
	PatientID          string    `json:"patient_id"`
	PrimaryComplaint   string    `json:"primary_complaint"`
	Symptoms           []string  `json:"symptoms"`
	Duration           string    `json:"duration"`
	Severity           int       `json:"severity"`
	AssociatedSymptoms []string  `json:"associated_symptoms"`
	AggravatingFactors []string  `json:"aggravating_factors"`
	RelievingFactors   []string  `json:"relieving_factors"`
	PreviousEpisodes   bool      `json:"previous_episodes"`
	CreatedAt          time.Time `json:"created_at"`
}

type DemographicContext struct {
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Location string `json:"location"`
}

type MedicalContext struct {
	ChronicConditions  []string `json:"chronic_conditions"`
	CurrentMedications []string `json:"current_medications"`
	Allergies          []string `json:"allergies"`
	FamilyHistory      []string `json:"family_history"`
}

type SymptomContext struct {
	PrimaryComplaint   string   `json:"primary_complaint"`
	Symptoms           []string `json:"symptoms"`
	Severity           int      `json:"severity"`
	Duration           string   `json:"duration"`
	AssociatedSymptoms []string `json:"associated_symptoms"`
}

type RiskProfile struct {
	RiskFactors []string `json:"risk_factors"`
	RiskScore   int      `json:"risk_score"`
	HighRisk    bool     `json:"high_risk"`
}

type TemporalContext struct {
	TimeOfDay string `json:"time_of_day"`
	DayOfWeek string `json:"day_of_week"`
	Season    string `json:"season"`
}

type LocationAccess struct {
	AccessLevel        string `json:"access_level"`
	SpecialtyAvailable bool   `json:"specialty_available"`
}

type SocialContext struct {
	InsuranceStatus  string         `json:"insurance_status"`
	LocationAccess   LocationAccess `json:"location_access"`
	EmergencySupport bool           `json:"emergency_support"`
}

type ConsistencyResult struct {
	Status           string   `json:"status"`
	Issues           []string `json:"issues"`
	ConsistencyScore float64  `json:"consistency_score"`
}

// ContextBundle is built exactly once per journey and never mutated afterward.
type ContextBundle struct {
	Demographic DemographicContext `json:"demographic"`
	Medical     MedicalContext     `json:"medical"`
	Symptom     SymptomContext     `json:"symptom"`
	Risk        RiskProfile        `json:"risk"`
	Temporal    TemporalContext    `json:"temporal"`
	Social      SocialContext      `json:"social"`
	Validation  ConsistencyResult  `json:"validation"`
}

type KnowledgeSnippet struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Specialty string  `json:"specialty"`
	Urgency   string  `json:"urgency"`
	Score     float64 `json:"score"`
}

// UrgencyLevel is ordered: Critical > Urgent > SemiUrgent > Standard > NonUrgent.
type UrgencyLevel int

const (
	NonUrgent UrgencyLevel = iota
	Standard
	SemiUrgent
	Urgent
	Critical
)

func (u UrgencyLevel) String() string {
	switch u {
	case Critical:
		return "Critical Emergency"
	case Urgent:
		return "Urgent"
	case SemiUrgent:
		return "Semi-Urgent"
	case Standard:
		return "Standard"
	default:
		return "Non-Urgent"
	}
}

func (u UrgencyLevel) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *UrgencyLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Critical Emergency":
		*u = Critical
	case "Urgent":
		*u = Urgent
	case "Semi-Urgent":
		*u = SemiUrgent
	case "Standard":
		*u = Standard
	default:
		*u = NonUrgent
	}
	return nil
}

// TriageVerdict invariant: RequiresEmergency is true iff UrgencyLevel is Critical.
type TriageVerdict struct {
	ReportID             string       `json:"report_id"`
	UrgencyLevel         UrgencyLevel `json:"urgency_level"`
	UrgencyScore         int          `json:"urgency_score"`
	RecommendedSpecialty string       `json:"recommended_specialty"`
	RiskFactors          []string     `json:"risk_factors"`
	ClinicalReasoning    string       `json:"clinical_reasoning"`
	ConfidenceScore      float64      `json:"confidence_score"`
	RequiresEmergency    bool         `json:"requires_emergency"`
	EstimatedWaitTime    string       `json:"estimated_wait_time"`
}

// Provider is a read-only directory entry loaded once at process scope.
type Provider struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Specialty        string   `json:"specialty"`
	Location         string   `json:"location"`
	Availability     string   `json:"availability"`
	Rating           float64  `json:"rating"`
	AcceptsInsurance []string `json:"accepts_insurance"`
}

type PhysicianCandidate struct {
	PhysicianID      string    `json:"physician_id"`
	Name             string    `json:"name"`
	Specialty        string    `json:"specialty"`
	Location         string    `json:"location"`
	Availability     string    `json:"availability"`
	Rating           float64   `json:"rating"`
	DistanceKM       float64   `json:"distance_km"`
	AcceptsInsurance bool      `json:"accepts_insurance"`
	NextAvailable    time.Time `json:"next_available"`
	CompositeScore   float64   `json:"composite_score"`
}

type ScheduleOffer struct {
	AppointmentID     string             `json:"appointment_id"`
	Physician         PhysicianCandidate `json:"physician"`
	AppointmentTime   time.Time          `json:"appointment_time"`
	Location          string             `json:"location"`
	EstimatedDuration string             `json:"estimated_duration"`
	PrepTasks         []string           `json:"prep_tasks"`
	ConfirmationSent  bool               `json:"confirmation_sent"`
	CalendarUpdated   bool               `json:"calendar_updated"`
}

// SchedulingFailure is an expected, typed outcome, not an error.
type SchedulingFailure struct {
	Reason string `json:"reason"`
}

type PlanTask struct {
	Task        string    `json:"task"`
	Status      string    `json:"status"`
	Responsible string    `json:"responsible,omitempty"`
	Due         string    `json:"due,omitempty"`
	DueDate     time.Time `json:"due_date,omitempty"`
}

type PlanStep struct {
	Step        string `json:"step"`
	Duration    string `json:"duration"`
	Responsible string `json:"responsible"`
}

type PlanMilestone struct {
	Milestone   string    `json:"milestone"`
	DueDate     time.Time `json:"due_date"`
	Responsible string    `json:"responsible"`
}

type PhaseProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type PreAppointmentPhase struct {
	Tasks    []PlanTask    `json:"tasks"`
	Progress PhaseProgress `json:"progress"`
}

type AppointmentPhase struct {
	Steps                []PlanStep `json:"steps"`
	TotalDurationMinutes int        `json:"total_duration_minutes"`
}

type PostAppointmentPhase struct {
	Tasks []PlanTask `json:"tasks"`
}

type FollowUpPhase struct {
	Milestones []PlanMilestone `json:"milestones"`
}

type CarePlan struct {
	ID              string               `json:"id"`
	PatientID       string               `json:"patient_id"`
	CreatedAt       time.Time            `json:"created_at"`
	Status          string               `json:"status"`
	PreAppointment  PreAppointmentPhase  `json:"pre_appointment"`
	Appointment     AppointmentPhase     `json:"appointment"`
	PostAppointment PostAppointmentPhase `json:"post_appointment"`
	FollowUp        FollowUpPhase        `json:"follow_up"`
}

// EmergencyBundle is the terminal artifact produced instead of a care plan
// when the triage verdict demands escalation.
type EmergencyBundle struct {
	PatientID          string   `json:"patient_id"`
	EmergencyLevel     string   `json:"emergency_level"`
	PrimarySymptoms    []string `json:"primary_symptoms"`
	MedicalHistory     []string `json:"medical_history"`
	CurrentMedications []string `json:"current_medications"`
	Allergies          []string `json:"allergies"`
	EmergencyContact   string   `json:"emergency_contact"`
	EstimatedArrival   string   `json:"estimated_arrival"`
	RecommendedActions []string `json:"recommended_actions"`
}

type JourneyStatus string

const (
	StatusCompleted           JourneyStatus = "Completed"
	StatusEmergencyEscalation JourneyStatus = "Emergency Escalation"
	StatusSchedulingFailed    JourneyStatus = "Scheduling Failed"
)

// JourneyResult is the coordinator's sole externally observable output.
type JourneyResult struct {
	ID         string               `json:"id"`
	PatientID  string               `json:"patient_id"`
	ReportID   string               `json:"report_id"`
	Status     JourneyStatus        `json:"status"`
	Context    ContextBundle        `json:"context"`
	Snippets   []KnowledgeSnippet   `json:"snippets"`
	Verdict    TriageVerdict        `json:"verdict"`
	Candidates []PhysicianCandidate `json:"candidates,omitempty"`
	Offer      *ScheduleOffer       `json:"offer,omitempty"`
	Failure    *SchedulingFailure   `json:"failure,omitempty"`
	Plan       *CarePlan            `json:"plan,omitempty"`
	Emergency  *EmergencyBundle     `json:"emergency,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	LatencyMS  int                  `json:"latency_ms"`
}
