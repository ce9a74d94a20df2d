// Package venues ranks candidate meeting places around the participants.
package venues

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/logging"
)

const (
	MaxVenues                = 5
	DefaultMaxDistanceMeters = 5000.0
	popularRatingCount       = 100
)

const (
	TagMinRating  = "minimum rating met"
	TagDistance   = "within preferred distance"
	TagPrice      = "price range match"
	TagAccessible = "wheelchair accessible"
	TagParking    = "parking available"
	TagPopular    = "popular"
)

// Participant is one attendee's position and preferences. Coordinates may be
// nil when the location is unknown.
type Participant struct {
	Coordinates *meeting.Coordinates         `json:"coordinates,omitempty"`
	Preferences *meeting.LocationPreferences `json:"preferences,omitempty"`
}

type Request struct {
	Participants      []Participant
	LocationType      meeting.LocationType
	MaxDistanceMeters float64
}

type Ranker struct {
	places meeting.PlacesProvider
	log    *slog.Logger

	FetchTimeout time.Duration
	Concurrency  int
	DetailFields []string

	// MaxDistanceMeters applies when a request does not set its own.
	MaxDistanceMeters float64
}

func NewRanker(places meeting.PlacesProvider, log *slog.Logger) *Ranker {
	return &Ranker{
		places:            places,
		log:               logging.OrDiscard(log).With("component", "venues"),
		Concurrency:       6,
		DetailFields:      meeting.DefaultDetailFields,
		MaxDistanceMeters: DefaultMaxDistanceMeters,
	}
}

// RankVenues returns at most MaxVenues candidates within the requested
// distance of the participants' centroid, best score first.
func (r *Ranker) RankVenues(ctx context.Context, req Request) ([]meeting.VenueCandidate, error) {
	var points []meeting.Coordinates
	prefs := make([]*meeting.LocationPreferences, 0, len(req.Participants))
	for _, p := range req.Participants {
		if p.Coordinates != nil {
			points = append(points, *p.Coordinates)
		}
		prefs = append(prefs, p.Preferences)
	}
	if len(points) == 0 {
		return nil, meeting.InputError("venues", "no participant locations found")
	}
	maxDist := req.MaxDistanceMeters
	if maxDist <= 0 {
		maxDist = r.MaxDistanceMeters
	}
	if maxDist <= 0 {
		maxDist = DefaultMaxDistanceMeters
	}

	center := Centroid(points)
	agg := Aggregate(prefs, maxDist)

	keywords := append(append([]string{}, agg.CuisineTypes...), agg.Amenities...)
	places, err := r.places.SearchNearby(ctx, meeting.NearbyQuery{
		Center:       center,
		RadiusMeters: maxDist,
		Type:         req.LocationType.PlaceType(),
		PriceLevels:  agg.PriceRange,
		Keywords:     keywords,
	})
	if err != nil {
		return nil, meeting.ProviderError("venues: nearby search", err)
	}

	type scored struct {
		place meeting.PlaceSummary
		dist  float64
	}
	var inRange []scored
	seen := map[string]bool{}
	for _, p := range places {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		d := Distance(center, p.Location)
		if d > maxDist {
			continue
		}
		inRange = append(inRange, scored{place: p, dist: d})
	}

	ids := make([]string, len(inRange))
	for i, s := range inRange {
		ids[i] = s.place.ID
	}
	details, err := r.fetchDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]meeting.VenueCandidate, 0, len(inRange))
	for i, s := range inRange {
		out = append(out, Score(s.place, details[i], s.dist, maxDist, agg))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].PlaceID < out[j].PlaceID
	})
	if len(out) > MaxVenues {
		out = out[:MaxVenues]
	}
	return out, nil
}

// fetchDetails loads detail fields concurrently. A failed lookup leaves that
// candidate's details nil; only the request deadline fails the call.
func (r *Ranker) fetchDetails(ctx context.Context, ids []string) ([]*meeting.PlaceDetail, error) {
	out := make([]*meeting.PlaceDetail, len(ids))
	var g errgroup.Group
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			fctx := ctx
			if r.FetchTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, r.FetchTimeout)
				defer cancel()
			}
			d, err := r.places.Details(fctx, id, r.DetailFields)
			if err != nil {
				r.log.Warn("place details unavailable", "place_id", id, "err", err)
				return nil
			}
			out[i] = &d
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, meeting.TransientError("venues: place details", err)
	}
	return out, nil
}

// Score sums the rating, distance, price, accessibility, parking and
// popularity contributions and records which preferences matched.
func Score(p meeting.PlaceSummary, d *meeting.PlaceDetail, dist, maxDist float64, agg meeting.LocationPreferenceAggregate) meeting.VenueCandidate {
	v := meeting.VenueCandidate{
		PlaceID:            p.ID,
		Name:               p.Name,
		Address:            p.Address,
		Coordinates:        p.Location,
		Rating:             p.Rating,
		PriceLevel:         p.PriceLevel,
		DistanceMeters:     dist,
		MatchedPreferences: []string{},
	}
	var score float64

	if p.Rating != nil {
		score += *p.Rating
		if *p.Rating >= agg.MinRating {
			v.MatchedPreferences = append(v.MatchedPreferences, TagMinRating)
		}
	}

	if maxDist > 0 {
		score += math.Max(0, 3*(1-dist/maxDist))
	}
	if dist <= agg.MaxDistanceMeters {
		v.MatchedPreferences = append(v.MatchedPreferences, TagDistance)
	}

	if p.PriceLevel != nil && agg.AcceptsPrice(*p.PriceLevel) {
		score += 2
		v.MatchedPreferences = append(v.MatchedPreferences, TagPrice)
	}

	ratingCount := p.RatingCount
	if d != nil {
		if agg.RequireAccessibility && d.Accessible != nil && *d.Accessible {
			score += 2
			v.MatchedPreferences = append(v.MatchedPreferences, TagAccessible)
		}
		if agg.RequireParking && d.Parking != nil && *d.Parking {
			score += 2
			v.MatchedPreferences = append(v.MatchedPreferences, TagParking)
		}
		if d.RatingCount > ratingCount {
			ratingCount = d.RatingCount
		}
	}
	if ratingCount > popularRatingCount {
		score++
		v.MatchedPreferences = append(v.MatchedPreferences, TagPopular)
	}

	v.Score = math.Round(score*1e6) / 1e6
	return v
}
