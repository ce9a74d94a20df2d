package venues

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

type fakePlaces struct {
	mu        sync.Mutex
	places    []meeting.PlaceSummary
	details   map[string]meeting.PlaceDetail
	searchErr error
	lastQuery meeting.NearbyQuery
}

func (f *fakePlaces) SearchNearby(ctx context.Context, q meeting.NearbyQuery) ([]meeting.PlaceSummary, error) {
	f.mu.Lock()
	f.lastQuery = q
	f.mu.Unlock()
	return f.places, f.searchErr
}

func (f *fakePlaces) Details(ctx context.Context, id string, fields []string) (meeting.PlaceDetail, error) {
	d, ok := f.details[id]
	if !ok {
		return meeting.PlaceDetail{}, errors.New("details not found")
	}
	return d, nil
}

func ptr[T any](v T) *T { return &v }

// near returns a point north of the test centroid by roughly meters.
func near(meters float64) meeting.Coordinates {
	return meeting.Coordinates{Lat: 40.0 + meters/111195.0, Lng: -74.0}
}

func twoParticipants(p1, p2 *meeting.LocationPreferences) []Participant {
	return []Participant{
		{Coordinates: &meeting.Coordinates{Lat: 40.01, Lng: -74.0}, Preferences: p1},
		{Coordinates: &meeting.Coordinates{Lat: 39.99, Lng: -74.0}, Preferences: p2},
	}
}

func TestRankVenuesScoring(t *testing.T) {
	places := &fakePlaces{
		places: []meeting.PlaceSummary{
			{ID: "b", Name: "Bean", Location: near(100), Rating: ptr(3.0), PriceLevel: ptr(3)},
			{ID: "a", Name: "Aroma", Location: near(1000), Rating: ptr(4.5), PriceLevel: ptr(2), RatingCount: 20},
			{ID: "c", Name: "Far Cafe", Location: near(6000), Rating: ptr(5.0)},
			{ID: "d", Name: "Dive", Location: near(2500)},
		},
		details: map[string]meeting.PlaceDetail{
			"a": {Accessible: ptr(true), Parking: ptr(true), RatingCount: 250},
			"d": {Accessible: ptr(false), Parking: ptr(false)},
		},
	}
	r := NewRanker(places, nil)

	got, err := r.RankVenues(context.Background(), Request{
		Participants: twoParticipants(
			&meeting.LocationPreferences{MinRating: 4, MaxDistanceMeters: 2000, PriceRange: []int{2}, RequireAccessibility: true},
			&meeting.LocationPreferences{MinRating: 3.5, MaxDistanceMeters: 3000, PriceRange: []int{1}, RequireParking: true, CuisineTypes: []string{"Thai"}},
		),
		LocationType:      meeting.LocationCoffee,
		MaxDistanceMeters: 5000,
	})
	require.NoError(t, err)

	q := places.lastQuery
	assert.InDelta(t, 40.0, q.Center.Lat, 1e-9)
	assert.InDelta(t, -74.0, q.Center.Lng, 1e-9)
	assert.Equal(t, 5000.0, q.RadiusMeters)
	assert.Equal(t, "cafe", q.Type)
	assert.Equal(t, []int{1, 2}, q.PriceLevels)
	assert.Equal(t, []string{"thai"}, q.Keywords)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "d"}, []string{got[0].PlaceID, got[1].PlaceID, got[2].PlaceID})

	assert.InDelta(t, 4.5+3*(1-1000.0/5000)+2+2+2+1, got[0].Score, 0.01)
	assert.Equal(t, []string{TagMinRating, TagDistance, TagPrice, TagAccessible, TagParking, TagPopular}, got[0].MatchedPreferences)

	assert.InDelta(t, 3.0+3*(1-100.0/5000), got[1].Score, 0.01)
	assert.Equal(t, []string{TagDistance}, got[1].MatchedPreferences, "3.0 is below the aggregated 4.0 minimum")

	assert.InDelta(t, 1.5, got[2].Score, 0.01)
	assert.Empty(t, got[2].MatchedPreferences, "2500m is beyond the aggregated 2000m preference")

	for _, v := range got {
		assert.LessOrEqual(t, v.DistanceMeters, 5000.0)
	}
}

func TestRankVenuesCapsAndSorts(t *testing.T) {
	places := &fakePlaces{}
	for i := 0; i < 9; i++ {
		places.places = append(places.places, meeting.PlaceSummary{
			ID:       fmt.Sprintf("p%d", i),
			Name:     fmt.Sprintf("Place %d", i),
			Location: near(float64(100 + i*400)),
			Rating:   ptr(float64(i%5) + 0.5),
		})
	}
	places.places = append(places.places, places.places[0])
	r := NewRanker(places, nil)

	got, err := r.RankVenues(context.Background(), Request{
		Participants:      twoParticipants(nil, nil),
		LocationType:      meeting.LocationRestaurant,
		MaxDistanceMeters: 3000,
	})
	require.NoError(t, err)
	require.Len(t, got, MaxVenues)
	ids := map[string]bool{}
	for i, v := range got {
		assert.False(t, ids[v.PlaceID], "duplicate %s", v.PlaceID)
		ids[v.PlaceID] = true
		assert.LessOrEqual(t, v.DistanceMeters, 3000.0)
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, v.Score)
		}
	}
	assert.Equal(t, "restaurant", places.lastQuery.Type)
}

func TestRankVenuesNoLocations(t *testing.T) {
	r := NewRanker(&fakePlaces{}, nil)
	_, err := r.RankVenues(context.Background(), Request{
		Participants: []Participant{{Preferences: &meeting.LocationPreferences{MinRating: 4}}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, meeting.ErrInput))
	assert.Contains(t, err.Error(), "no participant locations found")
}

func TestRankVenuesProviderError(t *testing.T) {
	r := NewRanker(&fakePlaces{searchErr: errors.New("REQUEST_DENIED")}, nil)
	_, err := r.RankVenues(context.Background(), Request{Participants: twoParticipants(nil, nil)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, meeting.ErrProvider))
}

func TestRankVenuesDefaultsDistance(t *testing.T) {
	places := &fakePlaces{places: []meeting.PlaceSummary{{ID: "x", Location: near(4000)}}}
	r := NewRanker(places, nil)
	got, err := r.RankVenues(context.Background(), Request{Participants: twoParticipants(nil, nil)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, DefaultMaxDistanceMeters, places.lastQuery.RadiusMeters)
}

func TestRankVenuesIdempotent(t *testing.T) {
	places := &fakePlaces{places: []meeting.PlaceSummary{
		{ID: "a", Location: near(300), Rating: ptr(4.0)},
		{ID: "b", Location: near(300), Rating: ptr(4.0)},
		{ID: "c", Location: near(900), Rating: ptr(4.2)},
	}}
	r := NewRanker(places, nil)
	req := Request{Participants: twoParticipants(nil, nil), MaxDistanceMeters: 2000}

	a, err := r.RankVenues(context.Background(), req)
	require.NoError(t, err)
	b, err := r.RankVenues(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "a", a[0].PlaceID, "ties break on place id")
}

func TestAggregate(t *testing.T) {
	empty := Aggregate(nil, 1500)
	assert.Equal(t, 0.0, empty.MinRating)
	assert.Equal(t, 1500.0, empty.MaxDistanceMeters)
	assert.NotNil(t, empty.PriceRange)
	assert.Empty(t, empty.CuisineTypes)
	assert.False(t, empty.RequireParking)

	agg := Aggregate([]*meeting.LocationPreferences{
		{MinRating: 3, MaxDistanceMeters: 4000, PriceRange: []int{2, 3}, Amenities: []string{"WiFi"}},
		nil,
		{MinRating: 4.2, MaxDistanceMeters: 800, PriceRange: []int{1}, CuisineTypes: []string{"sushi", "Thai"}, RequireParking: true},
		{Amenities: []string{"wifi", "outdoor seating"}},
	}, 5000)
	assert.Equal(t, 4.2, agg.MinRating)
	assert.Equal(t, 800.0, agg.MaxDistanceMeters)
	assert.Equal(t, []int{1, 2, 3}, agg.PriceRange)
	assert.Equal(t, []string{"sushi", "thai"}, agg.CuisineTypes)
	assert.Equal(t, []string{"outdoor seating", "wifi"}, agg.Amenities)
	assert.True(t, agg.RequireParking)
	assert.False(t, agg.RequireAccessibility)
}

func TestCentroidAndDistance(t *testing.T) {
	c := Centroid([]meeting.Coordinates{{Lat: 10, Lng: 20}, {Lat: 20, Lng: 40}})
	assert.Equal(t, meeting.Coordinates{Lat: 15, Lng: 30}, c)

	assert.InDelta(t, 111195, Distance(meeting.Coordinates{}, meeting.Coordinates{Lat: 1}), 1)
	assert.Equal(t, 0.0, Distance(c, c))
}
