package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-agent/backend/internal/model"
)

func urgentCardiologyVerdict() model.TriageVerdict {
	return model.TriageVerdict{
		UrgencyLevel:         model.Urgent,
		RecommendedSpecialty: "cardiology",
	}
}

func TestScheduleBooksTopCandidate(t *testing.T) {
	planner := NewPlanner()

	nextAvailable := time.Date(2024, time.June, 1, 11, 0, 0, 0, time.UTC)
	candidates := []model.PhysicianCandidate{
		{PhysicianID: "card_001", Name: "Dr. Sarah Johnson", Location: "New York, NY", NextAvailable: nextAvailable},
		{PhysicianID: "card_002", Name: "Dr. Alan Park", Location: "Boston, MA"},
	}

	offer, failure := planner.Schedule(model.PatientProfile{ID: "pat_001"}, urgentCardiologyVerdict(), candidates)

	require.Nil(t, failure)
	require.NotNil(t, offer)
	assert.Equal(t, "card_001", offer.Physician.PhysicianID)
	assert.Equal(t, nextAvailable, offer.AppointmentTime)
	assert.Equal(t, "New York, NY", offer.Location)
	assert.Equal(t, "30 minutes", offer.EstimatedDuration)
	assert.Len(t, offer.AppointmentID, 8)
	assert.True(t, offer.ConfirmationSent)
	assert.True(t, offer.CalendarUpdated)
}

func TestScheduleWithoutCandidates(t *testing.T) {
	planner := NewPlanner()

	offer, failure := planner.Schedule(model.PatientProfile{ID: "pat_002"}, urgentCardiologyVerdict(), nil)

	assert.Nil(t, offer)
	require.NotNil(t, failure)
	assert.Equal(t, "No physicians available", failure.Reason)
}

func TestPrepTasks(t *testing.T) {
	planner := NewPlanner()
	candidates := []model.PhysicianCandidate{{PhysicianID: "card_001"}}

	t.Run("urgent cardiology gets specialty and urgency tasks", func(t *testing.T) {
		offer, _ := planner.Schedule(model.PatientProfile{ID: "pat_003"}, urgentCardiologyVerdict(), candidates)

		require.NotNil(t, offer)
		assert.Len(t, offer.PrepTasks, 8)
		assert.Contains(t, offer.PrepTasks, "Avoid caffeine 4 hours before appointment")
		assert.Contains(t, offer.PrepTasks, "Arrange transportation (do not drive if feeling unwell)")
	})

	t.Run("standard visit gets only the baseline tasks", func(t *testing.T) {
		verdict := model.TriageVerdict{UrgencyLevel: model.Standard, RecommendedSpecialty: "orthopedics"}

		offer, _ := planner.Schedule(model.PatientProfile{ID: "pat_004"}, verdict, candidates)

		require.NotNil(t, offer)
		assert.Equal(t, standardPrepTasks, offer.PrepTasks)
	})

	t.Run("specialty match is case-insensitive", func(t *testing.T) {
		verdict := model.TriageVerdict{UrgencyLevel: model.Standard, RecommendedSpecialty: "Dermatology"}

		offer, _ := planner.Schedule(model.PatientProfile{ID: "pat_005"}, verdict, candidates)

		require.NotNil(t, offer)
		assert.Contains(t, offer.PrepTasks, "Avoid makeup on affected areas")
	})
}
