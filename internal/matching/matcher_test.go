package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage-agent/backend/internal/model"
)

var testProviders = []model.Provider{
	{
		ID:               "card_001",
		Name:             "Dr. Sarah Johnson",
		Specialty:        "Cardiology",
		Location:         "New York, NY",
		Rating:           4.8,
		AcceptsInsurance: []string{"Aetna", "Blue Cross"},
	},
	{
		ID:               "card_002",
		Name:             "Dr. Alan Park",
		Specialty:        "Cardiology",
		Location:         "Boston, MA",
		Rating:           4.5,
		AcceptsInsurance: []string{"Aetna", "Medicare"},
	},
	{
		ID:               "neuro_001",
		Name:             "Dr. Michael Chen",
		Specialty:        "Neurology",
		Location:         "Boston, MA",
		Rating:           4.9,
		AcceptsInsurance: []string{"Blue Cross"},
	},
}

func cardiologyVerdict(level model.UrgencyLevel) model.TriageVerdict {
	return model.TriageVerdict{
		UrgencyLevel:         level,
		RecommendedSpecialty: "cardiology",
	}
}

func TestMatchFiltersAndRanks(t *testing.T) {
	matcher := NewMatcher(testProviders, NewHashDistance())

	patient := model.PatientProfile{
		ID:        "pat_001",
		Location:  "New York, NY",
		Insurance: "Aetna",
	}

	candidates := matcher.Match(cardiologyVerdict(model.Standard), patient, model.ContextBundle{})

	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Equal(t, "Cardiology", c.Specialty)
		assert.True(t, c.AcceptsInsurance)
	}

	// Ascending composite score, lower is better.
	assert.LessOrEqual(t, candidates[0].CompositeScore, candidates[1].CompositeScore)
}

func TestMatchSpecialtyIsCaseInsensitive(t *testing.T) {
	matcher := NewMatcher(testProviders, NewHashDistance())

	patient := model.PatientProfile{ID: "pat_002", Location: "Boston, MA", Insurance: "Blue Cross"}
	verdict := model.TriageVerdict{UrgencyLevel: model.Standard, RecommendedSpecialty: "NEUROLOGY"}

	candidates := matcher.Match(verdict, patient, model.ContextBundle{})

	require.Len(t, candidates, 1)
	assert.Equal(t, "neuro_001", candidates[0].PhysicianID)
}

func TestMatchNoInsuranceOverlap(t *testing.T) {
	matcher := NewMatcher(testProviders, NewHashDistance())

	patient := model.PatientProfile{ID: "pat_003", Location: "New York, NY", Insurance: "Kaiser"}

	candidates := matcher.Match(cardiologyVerdict(model.Standard), patient, model.ContextBundle{})

	assert.Empty(t, candidates)
}

func TestMatchRespectsMaxCandidates(t *testing.T) {
	matcher := NewMatcher(testProviders, NewHashDistance(), WithMaxCandidates(1))

	patient := model.PatientProfile{ID: "pat_004", Location: "New York, NY", Insurance: "Aetna"}

	candidates := matcher.Match(cardiologyVerdict(model.Standard), patient, model.ContextBundle{})

	assert.Len(t, candidates, 1)
}

func TestMatchAvailabilityByUrgency(t *testing.T) {
	now := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	matcher := NewMatcher(testProviders, NewHashDistance(), WithClock(func() time.Time { return now }))

	patient := model.PatientProfile{ID: "pat_005", Location: "New York, NY", Insurance: "Aetna"}

	cases := []struct {
		level  model.UrgencyLevel
		offset time.Duration
	}{
		{model.Critical, 30 * time.Minute},
		{model.Urgent, 2 * time.Hour},
		{model.SemiUrgent, 24 * time.Hour},
		{model.Standard, 7 * 24 * time.Hour},
		{model.NonUrgent, 30 * 24 * time.Hour},
	}

	for _, tc := range cases {
		candidates := matcher.Match(cardiologyVerdict(tc.level), patient, model.ContextBundle{})

		require.NotEmpty(t, candidates, "level %s", tc.level)
		assert.Equal(t, now.Add(tc.offset), candidates[0].NextAvailable, "level %s", tc.level)
	}
}

func TestHashDistance(t *testing.T) {
	d := NewHashDistance()

	t.Run("deterministic", func(t *testing.T) {
		first := d.Distance("New York, NY", "New York, NY 10001")
		second := d.Distance("New York, NY", "New York, NY 10001")

		assert.Equal(t, first, second)
	})

	t.Run("same city band", func(t *testing.T) {
		km := d.Distance("Boston, MA", "Boston, MA 02115")

		assert.GreaterOrEqual(t, km, 5.0)
		assert.LessOrEqual(t, km, 25.0)
	})

	t.Run("cross city band", func(t *testing.T) {
		km := d.Distance("Boston, MA", "Chicago, IL")

		assert.GreaterOrEqual(t, km, 200.0)
		assert.LessOrEqual(t, km, 1200.0)
	})

	t.Run("unknown locations fall back to the anchor city", func(t *testing.T) {
		km := d.Distance("Springfield, IL", "Shelbyville, IL")

		// Both resolve to the same anchor, so the pair is same-city.
		assert.GreaterOrEqual(t, km, 5.0)
		assert.LessOrEqual(t, km, 25.0)
	})
}
