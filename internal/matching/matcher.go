package matching

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/metrics"
	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
)

// availabilityOffsets maps urgency to how soon the next appointment slot
// opens.
var availabilityOffsets = map[model.UrgencyLevel]time.Duration{
	model.Critical:   30 * time.Minute,
	model.Urgent:     2 * time.Hour,
	model.SemiUrgent: 24 * time.Hour,
	model.Standard:   7 * 24 * time.Hour,
	model.NonUrgent:  30 * 24 * time.Hour,
}

const (
	distanceWeight     = 0.3
	ratingWeight       = 0.3
	availabilityWeight = 0.4
)

// Matcher ranks providers for a triage verdict. The provider directory is
// read-only reference data shared across journeys.
type Matcher struct {
	providers     []model.Provider
	distance      DistanceProvider
	maxCandidates int
	now           func() time.Time
}

type Option func(*Matcher)

func WithMaxCandidates(max int) Option {
	return func(m *Matcher) {
		m.maxCandidates = max
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Matcher) {
		m.now = now
	}
}

func NewMatcher(providers []model.Provider, distance DistanceProvider, opts ...Option) *Matcher {
	m := &Matcher{
		providers:     providers,
		distance:      distance,
		maxCandidates: 5,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns up to maxCandidates providers sorted ascending by composite
// score. An empty result is a valid outcome the scheduler turns into a
// typed failure.
func (m *Matcher) Match(verdict model.TriageVerdict, patient model.PatientProfile, bundle model.ContextBundle) []model.PhysicianCandidate {
	specialtyMatches := filterBySpecialty(m.providers, verdict.RecommendedSpecialty)
	insuranceMatches := filterByInsurance(specialtyMatches, patient.Insurance)

	logger.Debug("Provider directory filtered",
		zap.String("specialty", verdict.RecommendedSpecialty),
		zap.String("insurance", patient.Insurance),
		zap.Int("specialty_matches", len(specialtyMatches)),
		zap.Int("insurance_matches", len(insuranceMatches)),
	)

	if len(insuranceMatches) > m.maxCandidates {
		insuranceMatches = insuranceMatches[:m.maxCandidates]
	}

	now := m.now()
	nextAvailable := now.Add(availabilityOffset(verdict.UrgencyLevel))
	daysUntilAvailable := int(nextAvailable.Sub(now).Hours() / 24)

	candidates := make([]model.PhysicianCandidate, 0, len(insuranceMatches))
	for _, p := range insuranceMatches {
		distance := m.distance.Distance(patient.Location, p.Location)

		candidates = append(candidates, model.PhysicianCandidate{
			PhysicianID:      p.ID,
			Name:             p.Name,
			Specialty:        p.Specialty,
			Location:         p.Location,
			Availability:     p.Availability,
			Rating:           p.Rating,
			DistanceKM:       distance,
			AcceptsInsurance: true,
			NextAvailable:    nextAvailable,
			CompositeScore:   distance*distanceWeight + (5.0-p.Rating)*ratingWeight + float64(daysUntilAvailable)*availabilityWeight,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CompositeScore < candidates[j].CompositeScore
	})

	metrics.CandidatesMatched.Observe(float64(len(candidates)))

	if len(candidates) > 0 {
		logger.Info("Providers matched",
			zap.Int("candidates", len(candidates)),
			zap.String("top_candidate", candidates[0].Name),
		)
	}

	return candidates
}

func availabilityOffset(level model.UrgencyLevel) time.Duration {
	if offset, ok := availabilityOffsets[level]; ok {
		return offset
	}
	return availabilityOffsets[model.NonUrgent]
}

// filterBySpecialty keeps providers whose specialty equals or substring-
// matches the recommendation, case-insensitive in either direction.
func filterBySpecialty(providers []model.Provider, specialty string) []model.Provider {
	specialtyLower := strings.ToLower(specialty)

	matched := []model.Provider{}
	for _, p := range providers {
		providerLower := strings.ToLower(p.Specialty)
		if providerLower == specialtyLower ||
			strings.Contains(providerLower, specialtyLower) ||
			strings.Contains(specialtyLower, providerLower) {
			matched = append(matched, p)
		}
	}
	return matched
}

func filterByInsurance(providers []model.Provider, insurance string) []model.Provider {
	insuranceLower := strings.ToLower(insurance)

	matched := []model.Provider{}
	for _, p := range providers {
		for _, accepted := range p.AcceptsInsurance {
			if strings.ToLower(accepted) == insuranceLower {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched
}
