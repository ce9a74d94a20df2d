package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/meeting-scheduler/internal/domain/user"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users and calendar credentials",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newCalendarTokenCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var username, email, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a local user (username/password plus mailbox address)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := openApp(ctx, cfg, log, true)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.auth.Register(ctx, username, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %q id=%s\n", u.Username, u.ID)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&email, "email", "", "the user's own mailbox address")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}

func newCalendarTokenCmd() *cobra.Command {
	var email, token string

	c := &cobra.Command{
		Use:   "calendar-token",
		Short: "Store a participant's free/busy API token (sealed with CRED_ENC_KEY)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := openApp(ctx, cfg, log, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.creds.Put(ctx, user.CalendarCredentials{Email: email, Token: token}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored calendar token for %s\n", email)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "participant email")
	c.Flags().StringVar(&token, "token", "", "bearer token")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("token")
	return c
}
