package matching

import (
	"hash/fnv"
	"math"
	"strings"
)

// DistanceProvider computes a distance in kilometers between a patient and
// provider location. Implementations must be pure functions of the two
// location strings.
type DistanceProvider interface {
	Distance(patientLocation, providerLocation string) float64
}

// knownCities anchors the same-city check; locations that name none of
// them fall back to the first entry.
var knownCities = []string{"New York", "Boston", "Chicago", "Los Angeles", "Houston", "Miami"}

// HashDistance is a deterministic stand-in for a geocoding integration:
// same-city pairs land in the 5-25 km band, cross-city pairs in the
// 200-1200 km band. Repeatable across processes, not a geodesic distance.
type HashDistance struct{}

func NewHashDistance() HashDistance {
	return HashDistance{}
}

func (HashDistance) Distance(patientLocation, providerLocation string) float64 {
	patientCity := extractCity(patientLocation)
	providerCity := extractCity(providerLocation)

	if patientCity == providerCity {
		h := hashPair(patientLocation, providerLocation)
		return round1(5.0 + float64(h%20))
	}

	h := hashPair(patientCity, providerCity)
	return round1(200.0 + float64(h%1000))
}

func extractCity(location string) string {
	for _, city := range knownCities {
		if strings.Contains(location, city) {
			return city
		}
	}
	return knownCities[0]
}

func hashPair(a, b string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(a))
	h.Write([]byte("|"))
	h.Write([]byte(b))
	return h.Sum64()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
