package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/meeting-scheduler/internal/application/usecases"
	"github.com/example/meeting-scheduler/internal/availability"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/venues"
)

// withApp runs fn against a wired app bounded by the request timeout.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Tuning.RequestTimeout)
	defer cancel()
	a, err := openApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newContactsCmd() *cobra.Command {
	var userID string
	c := &cobra.Command{
		Use:   "contacts FRAGMENT...",
		Short: "Resolve name fragments against the user's correspondence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				cs, err := a.resolver.ResolveContacts(ctx, userID, args)
				if err != nil {
					return err
				}
				for _, ct := range cs {
					fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-32s confidence=%.2f frequency=%d source=%s\n",
						ct.Name, ct.Email, ct.Confidence, ct.Frequency, ct.Source)
				}
				return nil
			})
		},
	}
	c.Flags().StringVar(&userID, "user-id", "", "user id (from DB)")
	_ = c.MarkFlagRequired("user-id")
	return c
}

func newSlotsCmd() *cobra.Command {
	var (
		emails    []string
		from, to  string
		duration  int
		timeOfDay string
	)
	c := &cobra.Command{
		Use:   "slots",
		Short: "Find common free slots for participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseTimeFlag("from", from)
			if err != nil {
				return err
			}
			end, err := parseTimeFlag("to", to)
			if err != nil {
				return err
			}
			refs := make([]meeting.ParticipantRef, 0, len(emails))
			for _, e := range emails {
				refs = append(refs, meeting.ParticipantRef{ID: e, Email: e})
			}
			return withApp(func(ctx context.Context, a *app) error {
				res, err := a.engine.FindAvailableSlots(ctx, availability.Request{
					Participants:    refs,
					WindowStart:     start,
					WindowEnd:       end,
					DurationMinutes: duration,
					TimeOfDay:       meeting.ParseTimeOfDay(timeOfDay),
				})
				if err != nil {
					return err
				}
				for _, d := range res.Degraded {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s treated as busy: %s\n", d.Participant, d.Reason)
				}
				for _, s := range res.Slots {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
	c.Flags().StringSliceVar(&emails, "email", nil, "participant email (repeatable)")
	c.Flags().StringVar(&from, "from", "", "window start (RFC3339, default now)")
	c.Flags().StringVar(&to, "to", "", "window end (RFC3339, default 14 days after start)")
	c.Flags().IntVar(&duration, "duration", usecases.DefaultDurationMinutes, "meeting length in minutes")
	c.Flags().StringVar(&timeOfDay, "time-of-day", "any", "morning, afternoon, evening or any")
	_ = c.MarkFlagRequired("email")
	return c
}

func newVenuesCmd() *cobra.Command {
	var (
		points      []string
		locType     string
		maxDistance float64
		minRating   float64
	)
	c := &cobra.Command{
		Use:   "venues",
		Short: "Rank venues around participant locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ps := make([]venues.Participant, 0, len(points))
			for _, p := range points {
				coords, err := parseCoordinates(p)
				if err != nil {
					return err
				}
				vp := venues.Participant{Coordinates: &coords}
				if minRating > 0 {
					vp.Preferences = &meeting.LocationPreferences{MinRating: minRating}
				}
				ps = append(ps, vp)
			}
			return withApp(func(ctx context.Context, a *app) error {
				vs, err := a.ranker.RankVenues(ctx, venues.Request{
					Participants:      ps,
					LocationType:      meeting.LocationType(locType),
					MaxDistanceMeters: maxDistance,
				})
				if err != nil {
					return err
				}
				for _, v := range vs {
					fmt.Fprintf(cmd.OutOrStdout(), "%6.2f  %-32s %6.0fm  %s\n", v.Score, v.Name, v.DistanceMeters, strings.Join(v.MatchedPreferences, ", "))
				}
				return nil
			})
		},
	}
	c.Flags().StringSliceVar(&points, "at", nil, "participant location as lat,lng (repeatable)")
	c.Flags().StringVar(&locType, "type", string(meeting.LocationCoffee), "coffee, restaurant or office")
	c.Flags().Float64Var(&maxDistance, "max-distance", 0, "search radius in meters (default from config)")
	c.Flags().Float64Var(&minRating, "min-rating", 0, "minimum rating applied to every participant")
	_ = c.MarkFlagRequired("at")
	return c
}

func newPlanCmd() *cobra.Command {
	var (
		userID string
		at     string
	)
	c := &cobra.Command{
		Use:   "plan REQUEST",
		Short: `Plan a meeting from text like "lunch with Jane and Bob next week"`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := usecases.PlanRequest{UserID: userID, Text: strings.Join(args, " ")}
			if at != "" {
				coords, err := parseCoordinates(at)
				if err != nil {
					return err
				}
				req.OrganizerLocation = &coords
			}
			return withApp(func(ctx context.Context, a *app) error {
				m, err := a.planner.Execute(ctx, req)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), meeting.UserMessage(err))
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			})
		},
	}
	c.Flags().StringVar(&userID, "user-id", "", "organizer user id (from DB)")
	c.Flags().StringVar(&at, "at", "", "organizer location as lat,lng")
	_ = c.MarkFlagRequired("user-id")
	return c
}

func parseCoordinates(s string) (meeting.Coordinates, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return meeting.Coordinates{}, fmt.Errorf("invalid location %q (want lat,lng)", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return meeting.Coordinates{}, fmt.Errorf("invalid latitude in %q", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return meeting.Coordinates{}, fmt.Errorf("invalid longitude in %q", s)
	}
	return meeting.Coordinates{Lat: lat, Lng: lng}, nil
}

func parseTimeFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s (want RFC3339): %w", name, err)
	}
	return t, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
