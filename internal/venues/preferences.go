package venues

import (
	"math"
	"sort"
	"strings"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

// Aggregate folds every participant's preferences into the most restrictive
// combination: the highest minimum rating, the smallest maximum distance,
// unions for sets and OR for requirements. Folds are seeded with 0 rating
// and defaultMaxDistance so an empty input yields finite bounds.
func Aggregate(prefs []*meeting.LocationPreferences, defaultMaxDistance float64) meeting.LocationPreferenceAggregate {
	agg := meeting.LocationPreferenceAggregate{
		MinRating:         0,
		MaxDistanceMeters: defaultMaxDistance,
	}
	prices := map[int]bool{}
	cuisines := map[string]bool{}
	amenities := map[string]bool{}

	for _, p := range prefs {
		if p == nil {
			continue
		}
		if p.MinRating > 0 {
			agg.MinRating = math.Max(agg.MinRating, p.MinRating)
		}
		if p.MaxDistanceMeters > 0 {
			agg.MaxDistanceMeters = math.Min(agg.MaxDistanceMeters, p.MaxDistanceMeters)
		}
		for _, lvl := range p.PriceRange {
			prices[lvl] = true
		}
		for _, c := range p.CuisineTypes {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				cuisines[c] = true
			}
		}
		for _, a := range p.Amenities {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				amenities[a] = true
			}
		}
		agg.RequireAccessibility = agg.RequireAccessibility || p.RequireAccessibility
		agg.RequireParking = agg.RequireParking || p.RequireParking
	}

	agg.PriceRange = make([]int, 0, len(prices))
	for lvl := range prices {
		agg.PriceRange = append(agg.PriceRange, lvl)
	}
	sort.Ints(agg.PriceRange)
	agg.CuisineTypes = sortedKeys(cuisines)
	agg.Amenities = sortedKeys(amenities)
	return agg
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Centroid is the arithmetic mean of the coordinates.
func Centroid(points []meeting.Coordinates) meeting.Coordinates {
	var c meeting.Coordinates
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c.Lat += p.Lat
		c.Lng += p.Lng
	}
	n := float64(len(points))
	return meeting.Coordinates{Lat: c.Lat / n, Lng: c.Lng / n}
}

const earthRadiusMeters = 6371000.0

// Distance is the great-circle distance in meters.
func Distance(a, b meeting.Coordinates) float64 {
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLng := (b.Lng - a.Lng) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
