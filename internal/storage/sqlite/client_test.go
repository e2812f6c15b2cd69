package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-agent/backend/internal/model"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "triage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func TestSeedProviders(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.SeedProviders())

	providers, err := client.ListProviders()
	require.NoError(t, err)
	assert.Len(t, providers, 6)

	byID := map[string]model.Provider{}
	for _, p := range providers {
		byID[p.ID] = p
	}

	cardiologist, ok := byID["card_001"]
	require.True(t, ok)
	assert.Equal(t, "Dr. Sarah Johnson", cardiologist.Name)
	assert.Equal(t, "Cardiology", cardiologist.Specialty)
	assert.Equal(t, []string{"Aetna", "Blue Cross", "Cigna", "UnitedHealth"}, cardiologist.AcceptsInsurance)

	// Re-seeding is a no-op.
	require.NoError(t, client.SeedProviders())
	count, err := client.CountProviders()
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestPatientRoundTrip(t *testing.T) {
	client := newTestClient(t)

	patient := &model.PatientProfile{
		ID:                 "pat_001",
		Name:               "James Carter",
		Age:                52,
		Gender:             "male",
		Location:           "New York, NY",
		Insurance:          "Aetna",
		MedicalHistory:     []string{"hypertension"},
		CurrentMedications: []string{"lisinopril"},
		Allergies:          []string{"penicillin"},
		CreatedAt:          time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, client.InsertPatient(patient))

	loaded, err := client.GetPatient("pat_001")
	require.NoError(t, err)
	assert.Equal(t, patient.Name, loaded.Name)
	assert.Equal(t, patient.MedicalHistory, loaded.MedicalHistory)
	assert.Equal(t, patient.Allergies, loaded.Allergies)
	assert.True(t, patient.CreatedAt.Equal(loaded.CreatedAt))
}

func TestJourneyRoundTrip(t *testing.T) {
	client := newTestClient(t)

	patient := &model.PatientProfile{ID: "pat_002", Name: "Ana Reyes", Age: 34, CreatedAt: time.Now()}
	require.NoError(t, client.InsertPatient(patient))

	report := &model.SymptomReport{
		ID:               "rep_002",
		PatientID:        "pat_002",
		PrimaryComplaint: "headache",
		Symptoms:         []string{"headache", "nausea"},
		Severity:         5,
		CreatedAt:        time.Now(),
	}
	require.NoError(t, client.InsertReport(report))

	result := &model.JourneyResult{
		ID:        "jrn_001",
		PatientID: "pat_002",
		ReportID:  "rep_002",
		Status:    model.StatusCompleted,
		Verdict: model.TriageVerdict{
			ReportID:             "rep_002",
			UrgencyLevel:         model.SemiUrgent,
			RecommendedSpecialty: "neurology",
		},
		StartedAt: time.Now(),
		LatencyMS: 42,
	}
	require.NoError(t, client.InsertJourney(result))

	loaded, err := client.GetJourney("jrn_001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, loaded.Status)
	assert.Equal(t, model.SemiUrgent, loaded.Verdict.UrgencyLevel)
	assert.Equal(t, "neurology", loaded.Verdict.RecommendedSpecialty)

	journeys, err := client.ListJourneys("pat_002", 10)
	require.NoError(t, err)
	require.Len(t, journeys, 1)
	assert.Equal(t, "jrn_001", journeys[0].ID)

	_, err = client.GetJourney("missing")
	assert.Error(t, err)
}
