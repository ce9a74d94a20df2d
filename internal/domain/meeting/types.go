package meeting

import (
	"strings"
	"time"
)

type ContactSource string

const (
	SourceHistory   ContactSource = "history"
	SourceDirectory ContactSource = "directory"
)

// Contact is a resolved identity. Uniqueness key is NormalizeEmail(Email).
type Contact struct {
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Confidence    float64       `json:"confidence"`
	Frequency     int           `json:"frequency"`
	LastContactAt *time.Time    `json:"last_contact_at,omitempty"`
	Source        ContactSource `json:"source"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TimeSlot is a free candidate meeting time. End is always after Start.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BusyInterval is a half-open range [Start, End).
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether [start, end) intersects the interval.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	AnyTime   TimeOfDay = "any"
)

// HourRange returns the [start, end) hours of day for the preference.
func (t TimeOfDay) HourRange() (int, int) {
	switch t {
	case Morning:
		return 9, 12
	case Afternoon:
		return 12, 17
	case Evening:
		return 17, 20
	default:
		return 9, 20
	}
}

func ParseTimeOfDay(s string) TimeOfDay {
	switch TimeOfDay(strings.ToLower(strings.TrimSpace(s))) {
	case Morning:
		return Morning
	case Afternoon:
		return Afternoon
	case Evening:
		return Evening
	default:
		return AnyTime
	}
}

// WorkingHours restricts a participant to [StartHour, EndHour) on Days.
// Empty Days means every day. Nil Location reads t in the zone it carries;
// the engine passes t in its own zone.
type WorkingHours struct {
	StartHour int            `json:"start_hour" yaml:"start_hour"`
	EndHour   int            `json:"end_hour" yaml:"end_hour"`
	Days      []time.Weekday `json:"days,omitempty" yaml:"days,omitempty"`
	Location  *time.Location `json:"-" yaml:"-"`
}

// Contains reports whether t starts inside the working window.
func (w WorkingHours) Contains(t time.Time) bool {
	if w.Location != nil {
		t = t.In(w.Location)
	}
	if len(w.Days) > 0 {
		ok := false
		for _, d := range w.Days {
			if d == t.Weekday() {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	h := t.Hour()
	return h >= w.StartHour && h < w.EndHour
}

// ParticipantRef identifies whose calendar to read.
type ParticipantRef struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	WorkingHours *WorkingHours `json:"working_hours,omitempty"`
}

func (p ParticipantRef) Key() string {
	if p.Email != "" {
		return NormalizeEmail(p.Email)
	}
	return p.ID
}

type SchedulingPreferences struct {
	TimeOfDay       TimeOfDay                `json:"time_of_day"`
	DurationMinutes int                      `json:"duration_minutes"`
	WorkingHours    map[string]*WorkingHours `json:"working_hours,omitempty"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationPreferences is one participant's venue preferences. Zero numeric
// fields mean "no preference".
type LocationPreferences struct {
	MinRating            float64  `json:"min_rating,omitempty"`
	MaxDistanceMeters    float64  `json:"max_distance_meters,omitempty"`
	PriceRange           []int    `json:"price_range,omitempty"`
	CuisineTypes         []string `json:"cuisine_types,omitempty"`
	Amenities            []string `json:"amenities,omitempty"`
	RequireAccessibility bool     `json:"require_accessibility,omitempty"`
	RequireParking       bool     `json:"require_parking,omitempty"`
}

// LocationPreferenceAggregate is the most restrictive combination of every
// participant's LocationPreferences. Sets are kept sorted.
type LocationPreferenceAggregate struct {
	MinRating            float64  `json:"min_rating"`
	MaxDistanceMeters    float64  `json:"max_distance_meters"`
	PriceRange           []int    `json:"price_range"`
	CuisineTypes         []string `json:"cuisine_types"`
	Amenities            []string `json:"amenities"`
	RequireAccessibility bool     `json:"require_accessibility"`
	RequireParking       bool     `json:"require_parking"`
}

func (a LocationPreferenceAggregate) AcceptsPrice(level int) bool {
	for _, p := range a.PriceRange {
		if p == level {
			return true
		}
	}
	return false
}

type LocationType string

const (
	LocationCoffee     LocationType = "coffee"
	LocationRestaurant LocationType = "restaurant"
	LocationOffice     LocationType = "office"
	LocationVirtual    LocationType = "virtual"
)

// PlaceType maps the meeting location type onto a places category.
func (l LocationType) PlaceType() string {
	switch l {
	case LocationCoffee:
		return "cafe"
	case LocationRestaurant:
		return "restaurant"
	case LocationOffice:
		return "office"
	default:
		return "establishment"
	}
}

func (l LocationType) IsVirtual() bool { return l == LocationVirtual }

type VenueCandidate struct {
	PlaceID            string      `json:"place_id"`
	Name               string      `json:"name"`
	Address            string      `json:"address"`
	Coordinates        Coordinates `json:"coordinates"`
	Rating             *float64    `json:"rating,omitempty"`
	PriceLevel         *int        `json:"price_level,omitempty"`
	DistanceMeters     float64     `json:"distance_meters"`
	Score              float64     `json:"score"`
	MatchedPreferences []string    `json:"matched_preferences"`
}

// MeetingRequest lives for one resolve, schedule and place pipeline and is then
// handed to persistence and notification.
type MeetingRequest struct {
	ID           string                `json:"id"`
	UserID       string                `json:"user_id"`
	Title        string                `json:"title,omitempty"`
	State        State                 `json:"state"`
	LocationType LocationType          `json:"location_type"`
	Participants []Contact             `json:"participants"`
	Alternatives map[string][]Contact  `json:"alternatives,omitempty"`
	Preferences  SchedulingPreferences `json:"preferences"`
	Slots        []TimeSlot            `json:"slots"`
	Venues       []VenueCandidate      `json:"venues,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}
