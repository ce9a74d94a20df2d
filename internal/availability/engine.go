// Package availability finds slots that are free for every participant.
package availability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/logging"
)

const (
	MaxSlots      = 5
	Step          = 30 * time.Minute
	DefaultWindow = 14 * 24 * time.Hour

	// MaxDurationMinutes caps a single meeting at one day.
	MaxDurationMinutes = 24 * 60
)

// FailurePolicy decides what a single participant's calendar failure means.
type FailurePolicy string

const (
	// DegradeToBusy treats the failed participant as busy for the whole
	// window and only fails the call when every participant fails.
	DegradeToBusy FailurePolicy = "degrade"
	// AbortOnFailure fails the call on the first participant failure.
	AbortOnFailure FailurePolicy = "abort"
)

func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", DegradeToBusy:
		return DegradeToBusy, nil
	case AbortOnFailure:
		return AbortOnFailure, nil
	}
	return "", fmt.Errorf("unknown availability policy %q (want degrade or abort)", s)
}

type Request struct {
	Participants    []meeting.ParticipantRef
	WindowStart     time.Time
	WindowEnd       time.Time
	DurationMinutes int
	TimeOfDay       meeting.TimeOfDay
}

// Result holds the slots plus participants whose calendars could not be read.
type Result struct {
	Slots    []meeting.TimeSlot `json:"slots"`
	Degraded []Degraded         `json:"degraded,omitempty"`
}

type Degraded struct {
	Participant string `json:"participant"`
	Reason      string `json:"reason"`
}

type Engine struct {
	calendar meeting.CalendarProvider
	log      *slog.Logger

	Policy       FailurePolicy
	FetchTimeout time.Duration
	Concurrency  int
	// Location is the zone used for time-of-day checks.
	Location *time.Location
	Now      func() time.Time
}

func NewEngine(calendar meeting.CalendarProvider, log *slog.Logger) *Engine {
	return &Engine{
		calendar:    calendar,
		log:         logging.OrDiscard(log).With("component", "availability"),
		Policy:      DegradeToBusy,
		Concurrency: 8,
		Location:    time.UTC,
		Now:         time.Now,
	}
}

type fetchResult struct {
	busy []meeting.BusyInterval
	err  error
}

// FindAvailableSlots scans the window in 30 minute steps and returns at most
// MaxSlots slots in chronological order.
func (e *Engine) FindAvailableSlots(ctx context.Context, req Request) (Result, error) {
	start, end, aligned := req.WindowStart, req.WindowEnd, false
	if start.IsZero() {
		start = e.now()
		aligned = true
	}
	if end.IsZero() {
		end = start.Add(DefaultWindow)
	}
	if err := validate(req, start, end); err != nil {
		return Result{}, err
	}
	if aligned {
		start = ceilStep(start)
	}

	fetched, err := e.fetchAll(ctx, req.Participants, start, end)
	if err != nil {
		return Result{}, err
	}

	var busy []meeting.BusyInterval
	res := Result{Slots: []meeting.TimeSlot{}}
	failed := 0
	for i, f := range fetched {
		p := req.Participants[i]
		if f.err == nil {
			busy = append(busy, f.busy...)
			continue
		}
		if e.Policy == AbortOnFailure {
			return Result{}, meeting.ProviderError("availability: calendar for "+p.Key(), f.err)
		}
		failed++
		e.log.Warn("calendar unavailable; treating participant as busy", "participant", p.Key(), "err", f.err)
		res.Degraded = append(res.Degraded, Degraded{Participant: p.Key(), Reason: "calendar unavailable"})
		busy = append(busy, meeting.BusyInterval{Start: start, End: end})
	}
	if failed == len(fetched) {
		return Result{}, meeting.ProviderError("availability", fmt.Errorf("calendars unavailable for all %d participants", failed))
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	res.Slots = scan(start, end, req, busy, e.location())
	return res, nil
}

func validate(req Request, start, end time.Time) error {
	if len(req.Participants) == 0 {
		return meeting.InputError("availability", "no participants")
	}
	if req.DurationMinutes <= 0 {
		return meeting.InputError("availability", "duration must be positive, got %d minutes", req.DurationMinutes)
	}
	if req.DurationMinutes > MaxDurationMinutes {
		return meeting.InputError("availability", "duration must be at most %d minutes, got %d", MaxDurationMinutes, req.DurationMinutes)
	}
	if !end.After(start) {
		return meeting.InputError("availability", "window end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if time.Duration(req.DurationMinutes)*time.Minute > end.Sub(start) {
		return meeting.InputError("availability", "duration of %d minutes does not fit the window", req.DurationMinutes)
	}
	return nil
}

// fetchAll reads every calendar concurrently. Individual failures are kept
// per participant; only the request deadline aborts.
func (e *Engine) fetchAll(ctx context.Context, ps []meeting.ParticipantRef, start, end time.Time) ([]fetchResult, error) {
	out := make([]fetchResult, len(ps))
	var g errgroup.Group
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for i, p := range ps {
		g.Go(func() error {
			fctx := ctx
			if e.FetchTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, e.FetchTimeout)
				defer cancel()
			}
			busy, err := e.calendar.BusyIntervals(fctx, p, start, end)
			if err == nil {
				err = checkIntervals(busy)
			}
			out[i] = fetchResult{busy: busy, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, meeting.TransientError("availability: fetch calendars", err)
	}
	return out, nil
}

func checkIntervals(busy []meeting.BusyInterval) error {
	for _, b := range busy {
		if !b.End.After(b.Start) {
			return fmt.Errorf("malformed busy interval %s..%s", b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339))
		}
	}
	return nil
}

func scan(start, end time.Time, req Request, busy []meeting.BusyInterval, loc *time.Location) []meeting.TimeSlot {
	fromHour, toHour := req.TimeOfDay.HourRange()
	dur := time.Duration(req.DurationMinutes) * time.Minute
	slots := make([]meeting.TimeSlot, 0, MaxSlots)

	for t := start; t.Before(end) && len(slots) < MaxSlots; t = t.Add(Step) {
		slotEnd := t.Add(dur)
		if !slotEnd.After(t) || slotEnd.After(end) {
			break
		}
		h := t.In(loc).Hour()
		if h < fromHour || h >= toHour {
			continue
		}
		if !withinWorkingHours(t, req.Participants, loc) {
			continue
		}
		if overlapsAny(t, slotEnd, busy) {
			continue
		}
		slots = append(slots, meeting.TimeSlot{Start: t, End: slotEnd})
	}
	return slots
}

// withinWorkingHours reads t in loc unless the participant carries a zone.
func withinWorkingHours(t time.Time, ps []meeting.ParticipantRef, loc *time.Location) bool {
	t = t.In(loc)
	for _, p := range ps {
		if p.WorkingHours != nil && !p.WorkingHours.Contains(t) {
			return false
		}
	}
	return true
}

// overlapsAny expects busy sorted by start.
func overlapsAny(start, end time.Time, busy []meeting.BusyInterval) bool {
	for _, b := range busy {
		if !b.Start.Before(end) {
			return false
		}
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func ceilStep(t time.Time) time.Time {
	c := t.Truncate(Step)
	if c.Before(t) {
		c = c.Add(Step)
	}
	return c
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) location() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}
