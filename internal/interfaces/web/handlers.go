package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/meeting-scheduler/internal/application/usecases"
	"github.com/example/meeting-scheduler/internal/availability"
	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/venues"
)

type resolveRequest struct {
	Fragments []string `json:"fragments"`
}

func (s *Server) handleResolveContacts(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	contacts, err := s.svc.Contacts.ResolveContacts(r.Context(), userIDFromCtx(r), req.Fragments)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

type availabilityRequest struct {
	Participants    []meeting.ParticipantRef `json:"participants"`
	WindowStart     time.Time                `json:"window_start"`
	WindowEnd       time.Time                `json:"window_end"`
	DurationMinutes int                      `json:"duration_minutes"`
	TimeOfDay       string                   `json:"time_of_day"`
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Availability.FindAvailableSlots(r.Context(), availability.Request{
		Participants:    req.Participants,
		WindowStart:     req.WindowStart,
		WindowEnd:       req.WindowEnd,
		DurationMinutes: req.DurationMinutes,
		TimeOfDay:       meeting.ParseTimeOfDay(req.TimeOfDay),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type venuesRequest struct {
	Participants      []venues.Participant `json:"participants"`
	LocationType      meeting.LocationType `json:"location_type"`
	MaxDistanceMeters float64              `json:"max_distance_meters"`
}

func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	var req venuesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	vs, err := s.svc.Venues.RankVenues(r.Context(), venues.Request{
		Participants:      req.Participants,
		LocationType:      req.LocationType,
		MaxDistanceMeters: req.MaxDistanceMeters,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": vs})
}

type planRequest struct {
	Text              string                           `json:"text"`
	Title             string                           `json:"title"`
	Fragments         []string                         `json:"fragments"`
	LocationType      meeting.LocationType             `json:"location_type"`
	TimeOfDay         meeting.TimeOfDay                `json:"time_of_day"`
	DurationMinutes   int                              `json:"duration_minutes"`
	WindowStart       time.Time                        `json:"window_start"`
	WindowEnd         time.Time                        `json:"window_end"`
	MaxDistanceMeters float64                          `json:"max_distance_meters"`
	OrganizerLocation *meeting.Coordinates             `json:"organizer_location"`
	WorkingHours      map[string]*meeting.WorkingHours `json:"working_hours"`
}

func (s *Server) handlePlanMeeting(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	hours := make(map[string]*meeting.WorkingHours, len(req.WorkingHours))
	for k, v := range req.WorkingHours {
		hours[meeting.NormalizeEmail(k)] = v
	}
	m, err := s.svc.Planner.Execute(r.Context(), usecases.PlanRequest{
		UserID:            userIDFromCtx(r),
		Text:              req.Text,
		Title:             req.Title,
		Fragments:         req.Fragments,
		LocationType:      req.LocationType,
		TimeOfDay:         req.TimeOfDay,
		DurationMinutes:   req.DurationMinutes,
		WindowStart:       req.WindowStart,
		WindowEnd:         req.WindowEnd,
		MaxDistanceMeters: req.MaxDistanceMeters,
		OrganizerLocation: req.OrganizerLocation,
		WorkingHours:      hours,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	if s.svc.Meetings == nil {
		s.writeError(w, r, meeting.NotFoundError("meetings", "meeting history is not stored"))
		return
	}
	m, err := s.svc.Meetings.Get(r.Context(), userIDFromCtx(r), mux.Vars(r)["id"])
	if err != nil {
		if db.IsNotFound(err) {
			err = meeting.NotFoundError("meetings", "no meeting %s", mux.Vars(r)["id"])
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
