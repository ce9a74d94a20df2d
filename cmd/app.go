package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/meeting-scheduler/internal/application/usecases"
	"github.com/example/meeting-scheduler/internal/availability"
	"github.com/example/meeting-scheduler/internal/config"
	"github.com/example/meeting-scheduler/internal/contacts"
	"github.com/example/meeting-scheduler/internal/db"
	"github.com/example/meeting-scheduler/internal/domain/meeting"
	"github.com/example/meeting-scheduler/internal/infrastructure/cache"
	"github.com/example/meeting-scheduler/internal/infrastructure/calendar"
	"github.com/example/meeting-scheduler/internal/infrastructure/crypto"
	"github.com/example/meeting-scheduler/internal/infrastructure/notify"
	"github.com/example/meeting-scheduler/internal/infrastructure/places"
	"github.com/example/meeting-scheduler/internal/infrastructure/postgres"
	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/migrate"
	"github.com/example/meeting-scheduler/internal/venues"
)

// app holds every wired component for one process.
type app struct {
	cfg config.Config
	log *slog.Logger
	db  *db.DB

	users    *postgres.UserRepo
	meetings *postgres.MeetingRepo
	auth     usecases.AuthService
	creds    usecases.CredentialsService

	resolver *contacts.Resolver
	engine   *availability.Engine
	ranker   *venues.Ranker
	planner  usecases.PlanMeeting

	closers []func() error
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(os.Stderr, logging.LevelFromString(cfg.LogLevel)), nil
}

func openApp(ctx context.Context, cfg config.Config, log *slog.Logger, migrateUp bool) (*app, error) {
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: d}
	a.closers = append(a.closers, func() error { d.Close(); return nil })

	if err := d.Ping(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		if err := migrate.Up(ctx, d); err != nil {
			a.Close()
			return nil, err
		}
	}

	var store meeting.CacheStore = cache.NewMemory()
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, rc.Close)
		store = rc
	}

	a.users = postgres.NewUserRepo(d)
	a.meetings = postgres.NewMeetingRepo(d)
	a.auth = usecases.AuthService{Users: a.users}
	a.creds = usecases.CredentialsService{Store: postgres.NewCredentialRepo(d)}
	if cfg.CredEncKey != nil {
		aead, err := crypto.New(cfg.CredEncKey)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.creds.Sealer = aead
	}

	a.resolver = contacts.NewResolver(postgres.NewHistoryStore(d), postgres.NewDirectoryStore(d), store, log)
	a.resolver.MaxMessages = cfg.Tuning.HistoryMaxResults
	a.resolver.CacheTTL = cfg.Tuning.CacheTTL
	a.resolver.FetchTimeout = cfg.Tuning.FetchTimeout

	var cal meeting.CalendarProvider = postgres.NewCalendarStore(d)
	if cfg.CalendarSource == config.CalendarSourceHTTP {
		cal = calendar.New(cfg.CalendarBaseURL, a.creds, nil)
	}
	policy, err := availability.ParsePolicy(cfg.Tuning.AvailabilityPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = availability.NewEngine(cal, log)
	a.engine.Policy = policy
	a.engine.FetchTimeout = cfg.Tuning.FetchTimeout
	a.engine.Location = cfg.Location

	a.ranker = venues.NewRanker(places.New(places.Options{
		BaseURL:       cfg.PlacesBaseURL,
		APIKey:        cfg.PlacesAPIKey,
		RatePerSecond: cfg.PlacesRateLimit,
	}), log)
	a.ranker.FetchTimeout = cfg.Tuning.FetchTimeout
	a.ranker.MaxDistanceMeters = cfg.Tuning.VenueRadiusMeters

	a.planner = usecases.PlanMeeting{
		Contacts:     a.resolver,
		Availability: a.engine,
		Venues:       a.ranker,
		Organizers:   a.users,
		Profiles:     postgres.NewProfileStore(d),
		Sink:         a.meetings,
		Notifier:     notify.NewLogNotifier(log),
		Log:          log,
		Timeout:      cfg.Tuning.RequestTimeout,
	}
	return a, nil
}

func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("shutdown", "err", err)
	}
}
