package meeting

import (
	"context"
	"strings"
	"time"
)

// HistoryQuery is a disjunction over fragments matched against sender and
// recipient fields.
type HistoryQuery struct {
	Terms []string
}

// String renders the query in mail-search syntax.
func (q HistoryQuery) String() string {
	parts := make([]string, 0, len(q.Terms)*2)
	for _, t := range q.Terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.ContainsAny(t, " \t") {
			t = `"` + t + `"`
		}
		parts = append(parts, "from:"+t, "to:"+t)
	}
	return strings.Join(parts, " OR ")
}

// MessageHeaders are the raw address headers of one message.
type MessageHeaders struct {
	ID   string
	From string
	To   string
	Cc   string
	Date time.Time
}

type HistoryProvider interface {
	// OwnAddress returns the mailbox address of the resolving user.
	OwnAddress(ctx context.Context, userID string) (string, error)
	// Search returns up to maxResults message IDs, newest first.
	Search(ctx context.Context, userID string, q HistoryQuery, maxResults int) ([]string, error)
	Message(ctx context.Context, userID, messageID string) (MessageHeaders, error)
}

type DirectoryEntry struct {
	Email       string
	DisplayName string
}

type DirectoryProvider interface {
	Lookup(ctx context.Context, email string) (DirectoryEntry, bool, error)
}

type CalendarProvider interface {
	BusyIntervals(ctx context.Context, p ParticipantRef, start, end time.Time) ([]BusyInterval, error)
}

type NearbyQuery struct {
	Center       Coordinates
	RadiusMeters float64
	Type         string
	PriceLevels  []int
	Keywords     []string
}

type PlaceSummary struct {
	ID          string
	Name        string
	Address     string
	Location    Coordinates
	Rating      *float64
	PriceLevel  *int
	RatingCount int
}

// PlaceDetail holds optional detail fields; nil means unknown.
type PlaceDetail struct {
	Accessible  *bool
	Parking     *bool
	RatingCount int
}

var DefaultDetailFields = []string{"wheelchair_accessible_entrance", "parking_options", "user_ratings_total"}

type PlacesProvider interface {
	SearchNearby(ctx context.Context, q NearbyQuery) ([]PlaceSummary, error)
	Details(ctx context.Context, placeID string, fields []string) (PlaceDetail, error)
}

// CacheStore is a key-value store with TTL semantics. A miss is ("", false, nil).
type CacheStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// ParticipantProfile is what the organizer's side knows about a participant.
type ParticipantProfile struct {
	Email        string
	Home         *Coordinates
	Preferences  *LocationPreferences
	WorkingHours *WorkingHours
}

type ProfileProvider interface {
	Profile(ctx context.Context, email string) (ParticipantProfile, bool, error)
}

type MeetingSink interface {
	SaveMeeting(ctx context.Context, m MeetingRequest) error
}

type Notifier interface {
	MeetingProposed(ctx context.Context, m MeetingRequest) error
}
