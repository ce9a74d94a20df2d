// Package places is a nearby-search and place-details client.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"
const defaultUA = "meeting-scheduler/1.0"

var ErrNoAPIKey = errors.New("PLACES_API_KEY is empty")

type Options struct {
	BaseURL       string
	APIKey        string
	RatePerSecond float64
	Timeout       time.Duration
	HTTPClient    *http.Client
}

type Client struct {
	http    *http.Client
	base    string
	key     string
	limiter *rate.Limiter
}

func New(opts Options) *Client {
	base := defaultBaseURL
	if strings.TrimSpace(opts.BaseURL) != "" {
		base = opts.BaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Client{
		http:    hc,
		base:    strings.TrimRight(base, "/"),
		key:     opts.APIKey,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) Ping(ctx context.Context) error {
	if strings.TrimSpace(c.key) == "" {
		return ErrNoAPIKey
	}
	return nil
}

type apiPlace struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Vicinity string `json:"vicinity"`
	Address  string `json:"formatted_address"`
	Geometry struct {
		Location struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Rating           *float64 `json:"rating"`
	PriceLevel       *int     `json:"price_level"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Wheelchair       *bool    `json:"wheelchair_accessible_entrance"`
	Parking          *struct {
		FreeLot    *bool `json:"free_parking_lot"`
		PaidLot    *bool `json:"paid_parking_lot"`
		FreeStreet *bool `json:"free_street_parking"`
		PaidStreet *bool `json:"paid_street_parking"`
		Valet      *bool `json:"valet_parking"`
		Garage     *bool `json:"free_garage_parking"`
		PaidGarage *bool `json:"paid_garage_parking"`
	} `json:"parking_options"`
}

func (c *Client) SearchNearby(ctx context.Context, q meeting.NearbyQuery) ([]meeting.PlaceSummary, error) {
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", q.Center.Lat, q.Center.Lng))
	params.Set("radius", strconv.Itoa(int(q.RadiusMeters)))
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if len(q.PriceLevels) > 0 {
		lo, hi := q.PriceLevels[0], q.PriceLevels[0]
		for _, p := range q.PriceLevels {
			lo, hi = min(lo, p), max(hi, p)
		}
		params.Set("minprice", strconv.Itoa(lo))
		params.Set("maxprice", strconv.Itoa(hi))
	}
	if len(q.Keywords) > 0 {
		params.Set("keyword", strings.Join(q.Keywords, " "))
	}

	var parsed struct {
		Results []apiPlace `json:"results"`
	}
	if err := c.get(ctx, "/nearbysearch/json", params, &parsed); err != nil {
		return nil, err
	}

	out := make([]meeting.PlaceSummary, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		s, ok := summarize(r)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Client) Details(ctx context.Context, placeID string, fields []string) (meeting.PlaceDetail, error) {
	if err := c.Ping(ctx); err != nil {
		return meeting.PlaceDetail{}, err
	}
	if placeID == "" {
		return meeting.PlaceDetail{}, errors.New("place id is required")
	}
	params := url.Values{}
	params.Set("place_id", placeID)
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}

	var parsed struct {
		Result apiPlace `json:"result"`
	}
	if err := c.get(ctx, "/details/json", params, &parsed); err != nil {
		return meeting.PlaceDetail{}, err
	}
	r := parsed.Result
	d := meeting.PlaceDetail{Accessible: r.Wheelchair, RatingCount: max(r.UserRatingsTotal, 0)}
	if po := r.Parking; po != nil {
		has := false
		for _, v := range []*bool{po.FreeLot, po.PaidLot, po.FreeStreet, po.PaidStreet, po.Valet, po.Garage, po.PaidGarage} {
			if v != nil && *v {
				has = true
			}
		}
		d.Parking = &has
	}
	return d, nil
}

// summarize validates one search result; results without an id or with
// impossible coordinates are dropped, out of range optional fields are cleared.
func summarize(r apiPlace) (meeting.PlaceSummary, bool) {
	loc := r.Geometry.Location
	if r.PlaceID == "" || loc.Lat == nil || loc.Lng == nil {
		return meeting.PlaceSummary{}, false
	}
	if *loc.Lat < -90 || *loc.Lat > 90 || *loc.Lng < -180 || *loc.Lng > 180 {
		return meeting.PlaceSummary{}, false
	}
	s := meeting.PlaceSummary{
		ID:          r.PlaceID,
		Name:        r.Name,
		Address:     r.Vicinity,
		Location:    meeting.Coordinates{Lat: *loc.Lat, Lng: *loc.Lng},
		RatingCount: max(r.UserRatingsTotal, 0),
	}
	if s.Address == "" {
		s.Address = r.Address
	}
	if r.Rating != nil && *r.Rating >= 0 && *r.Rating <= 5 {
		s.Rating = r.Rating
	}
	if r.PriceLevel != nil && *r.PriceLevel >= 0 && *r.PriceLevel <= 4 {
		s.PriceLevel = r.PriceLevel
	}
	return s, true
}

func (c *Client) get(ctx context.Context, path string, params url.Values, into any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	params.Set("key", c.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("user-agent", defaultUA)
	req.Header.Set("accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("places %s http %d", path, res.StatusCode)
	}

	var status struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("places parse %s: %w", path, err)
	}
	switch status.Status {
	case "OK", "ZERO_RESULTS":
	default:
		if status.ErrorMessage != "" {
			return fmt.Errorf("places %s: %s: %s", path, status.Status, status.ErrorMessage)
		}
		return fmt.Errorf("places %s: status %q", path, status.Status)
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("places parse %s: %w", path, err)
	}
	return nil
}
