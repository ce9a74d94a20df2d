package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/meeting-scheduler/internal/interfaces/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireServerKeys(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := openApp(ctx, cfg, log, migrateUp)
			if err != nil {
				return err
			}
			defer a.Close()

			s := web.New(cfg.ListenAddr, web.NewSessionManager(cfg.CookieHashKey, cfg.CookieBlockKey), a.auth, web.Services{
				Contacts:     a.resolver,
				Availability: a.engine,
				Venues:       a.ranker,
				Planner:      a.planner,
				Meetings:     a.meetings,
				Ping:         a.db.Ping,
			}, log)
			s.RequestTimeout = cfg.Tuning.RequestTimeout
			return s.ListenAndServe(ctx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
