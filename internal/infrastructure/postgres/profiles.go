package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
)

type ProfileStore struct{ q db.Querier }

func NewProfileStore(q db.Querier) *ProfileStore { return &ProfileStore{q: q} }

func (s *ProfileStore) Profile(ctx context.Context, email string) (meeting.ParticipantProfile, bool, error) {
	normalized := meeting.NormalizeEmail(email)
	var (
		lat, lng   *float64
		prefs, hrs []byte
		tz         string
	)
	err := s.q.QueryRow(ctx, `
		SELECT home_lat, home_lng, preferences, working_hours, timezone
		FROM participant_profiles WHERE email=$1
	`, normalized).Scan(&lat, &lng, &prefs, &hrs, &tz)
	if err != nil {
		if db.IsNotFound(err) {
			return meeting.ParticipantProfile{}, false, nil
		}
		return meeting.ParticipantProfile{}, false, err
	}
	p, err := decodeProfile(normalized, lat, lng, prefs, hrs, tz)
	if err != nil {
		return meeting.ParticipantProfile{}, false, err
	}
	return p, true, nil
}

func decodeProfile(email string, lat, lng *float64, prefs, hrs []byte, tz string) (meeting.ParticipantProfile, error) {
	p := meeting.ParticipantProfile{Email: email}
	if lat != nil && lng != nil {
		p.Home = &meeting.Coordinates{Lat: *lat, Lng: *lng}
	}
	if len(prefs) > 0 {
		p.Preferences = &meeting.LocationPreferences{}
		if err := json.Unmarshal(prefs, p.Preferences); err != nil {
			return p, fmt.Errorf("profile %s: preferences: %w", email, err)
		}
	}
	if len(hrs) > 0 {
		p.WorkingHours = &meeting.WorkingHours{}
		if err := json.Unmarshal(hrs, p.WorkingHours); err != nil {
			return p, fmt.Errorf("profile %s: working hours: %w", email, err)
		}
		if tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return p, fmt.Errorf("profile %s: %w", email, err)
			}
			p.WorkingHours.Location = loc
		}
	}
	return p, nil
}

func (s *ProfileStore) Upsert(ctx context.Context, p meeting.ParticipantProfile) error {
	var lat, lng *float64
	if p.Home != nil {
		lat, lng = &p.Home.Lat, &p.Home.Lng
	}
	var prefs, hrs []byte
	var tz string
	var err error
	if p.Preferences != nil {
		if prefs, err = json.Marshal(p.Preferences); err != nil {
			return err
		}
	}
	if p.WorkingHours != nil {
		if hrs, err = json.Marshal(p.WorkingHours); err != nil {
			return err
		}
		if p.WorkingHours.Location != nil {
			tz = p.WorkingHours.Location.String()
		}
	}
	return s.q.Exec(ctx, `
		INSERT INTO participant_profiles (email, home_lat, home_lng, preferences, working_hours, timezone)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (email) DO UPDATE SET
			home_lat=EXCLUDED.home_lat, home_lng=EXCLUDED.home_lng,
			preferences=EXCLUDED.preferences, working_hours=EXCLUDED.working_hours,
			timezone=EXCLUDED.timezone
	`, meeting.NormalizeEmail(p.Email), lat, lng, prefs, hrs, tz)
}
