package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/example/meeting-scheduler/internal/availability"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/venues"
)

type ContactResolver interface {
	ResolveContacts(ctx context.Context, userID string, fragments []string) ([]meeting.Contact, error)
}

type SlotFinder interface {
	FindAvailableSlots(ctx context.Context, req availability.Request) (availability.Result, error)
}

type VenueRanker interface {
	RankVenues(ctx context.Context, req venues.Request) ([]meeting.VenueCandidate, error)
}

// Organizers yields the organizer's own address.
type Organizers interface {
	OwnAddress(ctx context.Context, userID string) (string, error)
}

// PlanRequest asks for a meeting. Structured fields override whatever is
// parsed out of Text.
type PlanRequest struct {
	UserID            string
	Text              string
	Title             string
	Fragments         []string
	LocationType      meeting.LocationType
	TimeOfDay         meeting.TimeOfDay
	DurationMinutes   int
	WindowStart       time.Time
	WindowEnd         time.Time
	MaxDistanceMeters float64
	OrganizerLocation *meeting.Coordinates
	WorkingHours      map[string]*meeting.WorkingHours
}

// PlanMeeting drives one request through resolve, schedule and place.
type PlanMeeting struct {
	Contacts     ContactResolver
	Availability SlotFinder
	Venues       VenueRanker
	Organizers   Organizers
	Profiles     meeting.ProfileProvider
	Sink         meeting.MeetingSink
	Notifier     meeting.Notifier
	Log          *slog.Logger

	Timeout time.Duration
	Now     func() time.Time
	NewID   func() string
}

// Execute returns the assembled request. On failure the returned request is
// in StateFailed and the error is a *meeting.StageError.
func (u PlanMeeting) Execute(ctx context.Context, req PlanRequest) (meeting.MeetingRequest, error) {
	log := logging.OrDiscard(u.Log).With("component", "planner", "user_id", req.UserID)
	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	m := meeting.MeetingRequest{
		ID:        u.newID(),
		UserID:    req.UserID,
		Title:     req.Title,
		State:     meeting.StateParsing,
		CreatedAt: u.now().UTC(),
	}
	failAt := func(stage meeting.State, err error) (meeting.MeetingRequest, error) {
		m.State = meeting.StateFailed
		log.Warn("meeting request failed", "request_id", m.ID, "stage", stage, "err", err)
		return m, &meeting.StageError{Stage: stage, Err: err}
	}
	fail := func(err error) (meeting.MeetingRequest, error) { return failAt(m.State, err) }

	parsed := applyOverrides(ParseRequest(req.Text), req)
	if len(parsed.Fragments) == 0 {
		return fail(meeting.InputError("parse", "no participants named in the request"))
	}
	m.LocationType = parsed.LocationType
	m.Preferences = meeting.SchedulingPreferences{
		TimeOfDay:       parsed.TimeOfDay,
		DurationMinutes: parsed.DurationMinutes,
		WorkingHours:    req.WorkingHours,
	}

	if err := m.Advance(meeting.StateResolvingParticipants); err != nil {
		return fail(err)
	}
	own, err := u.Organizers.OwnAddress(ctx, req.UserID)
	if err != nil {
		return fail(meeting.ProviderError("organizer", err))
	}
	participants, alternatives, err := u.resolve(ctx, req.UserID, parsed.Fragments, own)
	if err != nil {
		return fail(err)
	}
	m.Participants = participants
	m.Alternatives = alternatives

	if err := m.Advance(meeting.StateComputingAvailability); err != nil {
		return fail(err)
	}
	emails := make([]string, 0, len(participants)+1)
	emails = append(emails, meeting.NormalizeEmail(own))
	for _, c := range participants {
		emails = append(emails, meeting.NormalizeEmail(c.Email))
	}
	profiles := u.loadProfiles(ctx, emails, log)

	refs := make([]meeting.ParticipantRef, 0, len(emails))
	for i, e := range emails {
		ref := meeting.ParticipantRef{ID: e, Email: e, WorkingHours: profiles[e].WorkingHours}
		if i == 0 {
			ref.ID = req.UserID
		}
		if wh, ok := req.WorkingHours[e]; ok {
			ref.WorkingHours = wh
		}
		refs = append(refs, ref)
	}
	res, err := u.Availability.FindAvailableSlots(ctx, availability.Request{
		Participants:    refs,
		WindowStart:     req.WindowStart,
		WindowEnd:       req.WindowEnd,
		DurationMinutes: parsed.DurationMinutes,
		TimeOfDay:       parsed.TimeOfDay,
	})
	if err != nil {
		return fail(err)
	}
	for _, d := range res.Degraded {
		m.Warnings = append(m.Warnings, fmt.Sprintf("calendar unavailable for %s; treated as busy", d.Participant))
	}
	if len(res.Slots) == 0 {
		return fail(meeting.NotFoundError("availability", "no common free time in the requested window"))
	}
	m.Slots = res.Slots

	if !m.LocationType.IsVirtual() {
		if err := m.Advance(meeting.StateRankingVenues); err != nil {
			return fail(err)
		}
		vps := make([]venues.Participant, 0, len(emails))
		for i, e := range emails {
			p := profiles[e]
			vp := venues.Participant{Coordinates: p.Home, Preferences: p.Preferences}
			if i == 0 {
				if req.OrganizerLocation != nil {
					vp.Coordinates = req.OrganizerLocation
				}
				vp.Preferences = withCuisines(vp.Preferences, parsed.Cuisines)
			}
			vps = append(vps, vp)
		}
		vs, err := u.Venues.RankVenues(ctx, venues.Request{
			Participants:      vps,
			LocationType:      m.LocationType,
			MaxDistanceMeters: req.MaxDistanceMeters,
		})
		if err != nil {
			return fail(err)
		}
		if len(vs) == 0 {
			return fail(meeting.NotFoundError("venues", "no venues match the participants' preferences"))
		}
		m.Venues = vs
	}

	if err := ctx.Err(); err != nil {
		return fail(meeting.TransientError("plan", err))
	}

	ready := m
	if err := ready.Advance(meeting.StateReady); err != nil {
		return fail(err)
	}
	if u.Sink != nil {
		if err := u.Sink.SaveMeeting(ctx, ready); err != nil {
			return failAt(meeting.StateReady, meeting.ProviderError("save meeting", err))
		}
	}
	m = ready
	if u.Notifier != nil {
		if err := u.Notifier.MeetingProposed(ctx, m); err != nil {
			log.Warn("notification failed", "request_id", m.ID, "err", err)
		}
	}
	log.Info("meeting request ready", "request_id", m.ID, "participants", len(m.Participants), "slots", len(m.Slots), "venues", len(m.Venues))
	return m, nil
}

func applyOverrides(p ParsedRequest, req PlanRequest) ParsedRequest {
	if len(req.Fragments) > 0 {
		p.Fragments = req.Fragments
	}
	if req.LocationType != "" {
		p.LocationType = req.LocationType
	}
	if p.LocationType == "" {
		p.LocationType = meeting.LocationVirtual
	}
	if req.TimeOfDay != "" {
		p.TimeOfDay = meeting.ParseTimeOfDay(string(req.TimeOfDay))
	}
	if p.TimeOfDay == "" {
		p.TimeOfDay = meeting.AnyTime
	}
	if req.DurationMinutes > 0 {
		p.DurationMinutes = req.DurationMinutes
	}
	if p.DurationMinutes <= 0 {
		p.DurationMinutes = DefaultDurationMinutes
	}
	return p
}

// resolve resolves every fragment on its own. The best match per fragment
// becomes a participant; a fragment without any match fails the request.
func (u PlanMeeting) resolve(ctx context.Context, userID string, fragments []string, own string) ([]meeting.Contact, map[string][]meeting.Contact, error) {
	results := make([][]meeting.Contact, len(fragments))
	errs := make([]error, len(fragments))

	var g errgroup.Group
	g.SetLimit(4)
	for i, f := range fragments {
		g.Go(func() error {
			results[i], errs[i] = u.Contacts.ResolveContacts(ctx, userID, []string{f})
			return nil
		})
	}
	_ = g.Wait()

	seen := map[string]bool{meeting.NormalizeEmail(own): true}
	var participants []meeting.Contact
	alternatives := map[string][]meeting.Contact{}
	for i, f := range fragments {
		if errs[i] != nil {
			return nil, nil, errs[i]
		}
		if len(results[i]) == 0 {
			return nil, nil, meeting.InputError("resolve", "no contact found for %q", f)
		}
		best := results[i][0]
		if key := meeting.NormalizeEmail(best.Email); !seen[key] {
			seen[key] = true
			participants = append(participants, best)
		}
		if len(results[i]) > 1 {
			alternatives[f] = results[i][1:]
		}
	}
	if len(participants) == 0 {
		return nil, nil, meeting.InputError("resolve", "no participants other than the organizer")
	}
	return participants, alternatives, nil
}

// loadProfiles fetches what is known about each participant. Missing or
// failing profiles are treated as empty.
func (u PlanMeeting) loadProfiles(ctx context.Context, emails []string, log *slog.Logger) map[string]meeting.ParticipantProfile {
	out := make(map[string]meeting.ParticipantProfile, len(emails))
	if u.Profiles == nil {
		return out
	}
	found := make([]meeting.ParticipantProfile, len(emails))
	var g errgroup.Group
	g.SetLimit(4)
	for i, e := range emails {
		g.Go(func() error {
			p, ok, err := u.Profiles.Profile(ctx, e)
			if err != nil {
				log.Warn("profile unavailable", "email", e, "err", err)
				return nil
			}
			if ok {
				found[i] = p
			}
			return nil
		})
	}
	_ = g.Wait()
	for i, e := range emails {
		out[e] = found[i]
	}
	return out
}

func withCuisines(p *meeting.LocationPreferences, cuisines []string) *meeting.LocationPreferences {
	if len(cuisines) == 0 {
		return p
	}
	merged := meeting.LocationPreferences{}
	if p != nil {
		merged = *p
	}
	merged.CuisineTypes = append(append([]string{}, merged.CuisineTypes...), cuisines...)
	return &merged
}

func (u PlanMeeting) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

func (u PlanMeeting) newID() string {
	if u.NewID != nil {
		return u.NewID()
	}
	return uuid.NewString()
}
