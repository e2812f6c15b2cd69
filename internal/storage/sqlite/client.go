package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER NOT NULL,
		gender TEXT,
		location TEXT,
		phone TEXT,
		email TEXT,
		insurance TEXT,
		emergency_contact TEXT,
		medical_history TEXT,
		current_medications TEXT,
		allergies TEXT,
		family_history TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_patients_insurance ON patients(insurance);

	CREATE TABLE IF NOT EXISTS symptom_reports (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		primary_complaint TEXT NOT NULL,
		symptoms TEXT NOT NULL,
		duration TEXT,
		severity INTEGER NOT NULL,
		associated_symptoms TEXT,
		aggravating_factors TEXT,
		relieving_factors TEXT,
		previous_episodes INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (patient_id) REFERENCES patients(id)
	);
	CREATE INDEX IF NOT EXISTS idx_reports_patient ON symptom_reports(patient_id);

	CREATE TABLE IF NOT EXISTS journeys (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		report_id TEXT NOT NULL,
		status TEXT NOT NULL,
		urgency_level TEXT,
		specialty TEXT,
		result TEXT NOT NULL,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (patient_id) REFERENCES patients(id),
		FOREIGN KEY (report_id) REFERENCES symptom_reports(id)
	);
	CREATE INDEX IF NOT EXISTS idx_journeys_patient ON journeys(patient_id);
	CREATE INDEX IF NOT EXISTS idx_journeys_status ON journeys(status);
	CREATE INDEX IF NOT EXISTS idx_journeys_created ON journeys(created_at);

	CREATE TABLE IF NOT EXISTS providers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		specialty TEXT NOT NULL,
		location TEXT NOT NULL,
		availability TEXT,
		rating REAL,
		accepts_insurance TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_providers_specialty ON providers(specialty);

	CREATE TABLE IF NOT EXISTS guidelines (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		specialty TEXT,
		urgency TEXT,
		source_url TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_guidelines_specialty ON guidelines(specialty);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertPatient(patient *model.PatientProfile) error {
	history, _ := json.Marshal(patient.MedicalHistory)
	medications, _ := json.Marshal(patient.CurrentMedications)
	allergies, _ := json.Marshal(patient.Allergies)
	familyHistory, _ := json.Marshal(patient.FamilyHistory)

	query := `
		INSERT INTO patients (id, name, age, gender, location, phone, email, insurance,
			emergency_contact, medical_history, current_medications, allergies, family_history, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			insurance = excluded.insurance,
			medical_history = excluded.medical_history,
			current_medications = excluded.current_medications,
			allergies = excluded.allergies
	`

	_, err := c.db.Exec(
		query,
		patient.ID,
		patient.Name,
		patient.Age,
		patient.Gender,
		patient.Location,
		patient.Phone,
		patient.Email,
		patient.Insurance,
		patient.EmergencyContact,
		string(history),
		string(medications),
		string(allergies),
		string(familyHistory),
		patient.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert patient: %w", err)
	}

	logger.Debug("Patient inserted", zap.String("patient_id", patient.ID))
	return nil
}

func (c *Client) GetPatient(id string) (*model.PatientProfile, error) {
	query := `
		SELECT id, name, age, gender, location, phone, email, insurance, emergency_contact,
			medical_history, current_medications, allergies, family_history, created_at
		FROM patients WHERE id = ?
	`

	var patient model.PatientProfile
	var history, medications, allergies, familyHistory string
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(
		&patient.ID,
		&patient.Name,
		&patient.Age,
		&patient.Gender,
		&patient.Location,
		&patient.Phone,
		&patient.Email,
		&patient.Insurance,
		&patient.EmergencyContact,
		&history,
		&medications,
		&allergies,
		&familyHistory,
		&createdAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	json.Unmarshal([]byte(history), &patient.MedicalHistory)
	json.Unmarshal([]byte(medications), &patient.CurrentMedications)
	json.Unmarshal([]byte(allergies), &patient.Allergies)
	json.Unmarshal([]byte(familyHistory), &patient.FamilyHistory)
	patient.CreatedAt = time.Unix(createdAt, 0)

	return &patient, nil
}

func (c *Client) InsertReport(report *model.SymptomReport) error {
	symptoms, _ := json.Marshal(report.Symptoms)
	associated, _ := json.Marshal(report.AssociatedSymptoms)
	aggravating, _ := json.Marshal(report.AggravatingFactors)
	relieving, _ := json.Marshal(report.RelievingFactors)

	previousEpisodes := 0
	if report.PreviousEpisodes {
		previousEpisodes = 1
	}

	query := `
		INSERT INTO symptom_reports (id, patient_id, primary_complaint, symptoms, duration, severity,
			associated_symptoms, aggravating_factors, relieving_factors, previous_episodes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		report.ID,
		report.PatientID,
		report.PrimaryComplaint,
		string(symptoms),
		report.Duration,
		report.Severity,
		string(associated),
		string(aggravating),
		string(relieving),
		previousEpisodes,
		report.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert symptom report: %w", err)
	}

	return nil
}

func (c *Client) InsertJourney(result *model.JourneyResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal journey result: %w", err)
	}

	query := `
		INSERT INTO journeys (id, patient_id, report_id, status, urgency_level, specialty, result, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.Exec(
		query,
		result.ID,
		result.PatientID,
		result.ReportID,
		string(result.Status),
		result.Verdict.UrgencyLevel.String(),
		result.Verdict.RecommendedSpecialty,
		string(payload),
		result.LatencyMS,
		result.StartedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert journey: %w", err)
	}

	logger.Info("Journey recorded",
		zap.String("journey_id", result.ID),
		zap.String("status", string(result.Status)),
		zap.Int("latency_ms", result.LatencyMS),
	)

	return nil
}

func (c *Client) GetJourney(id string) (*model.JourneyResult, error) {
	query := `SELECT result FROM journeys WHERE id = ?`

	var payload string
	err := c.db.QueryRow(query, id).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("failed to get journey: %w", err)
	}

	var result model.JourneyResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journey result: %w", err)
	}

	return &result, nil
}

func (c *Client) ListJourneys(patientID string, limit int) ([]model.JourneyResult, error) {
	query := `
		SELECT result FROM journeys
		WHERE patient_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journeys: %w", err)
	}
	defer rows.Close()

	var results []model.JourneyResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var result model.JourneyResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal journey result: %w", err)
		}
		results = append(results, result)
	}

	return results, nil
}

func (c *Client) InsertProvider(provider *model.Provider) error {
	insurance, _ := json.Marshal(provider.AcceptsInsurance)

	query := `
		INSERT OR IGNORE INTO providers (id, name, specialty, location, availability, rating, accepts_insurance)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		provider.ID,
		provider.Name,
		provider.Specialty,
		provider.Location,
		provider.Availability,
		provider.Rating,
		string(insurance),
	)

	if err != nil {
		return fmt.Errorf("failed to insert provider: %w", err)
	}

	return nil
}

func (c *Client) ListProviders() ([]model.Provider, error) {
	query := `SELECT id, name, specialty, location, availability, rating, accepts_insurance FROM providers`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []model.Provider
	for rows.Next() {
		var p model.Provider
		var insurance string

		err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.Location, &p.Availability, &p.Rating, &insurance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(insurance), &p.AcceptsInsurance)
		providers = append(providers, p)
	}

	return providers, nil
}

func (c *Client) CountProviders() (int, error) {
	var count int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM providers`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count providers: %w", err)
	}
	return count, nil
}

// SeedProviders loads the built-in directory when the providers table is
// empty. Re-running is a no-op.
func (c *Client) SeedProviders() error {
	count, err := c.CountProviders()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for i := range seedProviders {
		if err := c.InsertProvider(&seedProviders[i]); err != nil {
			return err
		}
	}

	logger.Info("Provider directory seeded", zap.Int("providers", len(seedProviders)))
	return nil
}

func (c *Client) InsertGuideline(id, title, content, specialty, urgency, sourceURL string) error {
	query := `
		INSERT INTO guidelines (id, title, content, specialty, urgency, source_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			specialty = excluded.specialty,
			urgency = excluded.urgency
	`

	_, err := c.db.Exec(query, id, title, content, specialty, urgency, sourceURL, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert guideline: %w", err)
	}

	return nil
}

var seedProviders = []model.Provider{
	{
		ID:               "card_001",
		Name:             "Dr. Sarah Johnson",
		Specialty:        "Cardiology",
		Location:         "New York, NY",
		Availability:     "Within 24 hours",
		Rating:           4.8,
		AcceptsInsurance: []string{"Aetna", "Blue Cross", "Cigna", "UnitedHealth"},
	},
	{
		ID:               "neuro_001",
		Name:             "Dr. Michael Chen",
		Specialty:        "Neurology",
		Location:         "Boston, MA",
		Availability:     "Within 48 hours",
		Rating:           4.9,
		AcceptsInsurance: []string{"Blue Cross", "Cigna", "Medicare"},
	},
	{
		ID:               "gastro_001",
		Name:             "Dr. Emily Rodriguez",
		Specialty:        "Gastroenterology",
		Location:         "Chicago, IL",
		Availability:     "Within 72 hours",
		Rating:           4.7,
		AcceptsInsurance: []string{"Aetna", "UnitedHealth", "Humana"},
	},
	{
		ID:               "derm_001",
		Name:             "Dr. David Kim",
		Specialty:        "Dermatology",
		Location:         "Los Angeles, CA",
		Availability:     "Within 1 week",
		Rating:           4.6,
		AcceptsInsurance: []string{"Blue Cross", "Aetna", "Kaiser"},
	},
	{
		ID:               "ortho_001",
		Name:             "Dr. Jessica Brown",
		Specialty:        "Orthopedics",
		Location:         "Houston, TX",
		Availability:     "Within 48 hours",
		Rating:           4.8,
		AcceptsInsurance: []string{"UnitedHealth", "Cigna", "Blue Cross"},
	},
	{
		ID:               "general_001",
		Name:             "Dr. Robert Wilson",
		Specialty:        "General Medicine",
		Location:         "Miami, FL",
		Availability:     "Same day",
		Rating:           4.5,
		AcceptsInsurance: []string{"Aetna", "Blue Cross", "Medicaid"},
	},
}
