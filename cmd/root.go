package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/meeting-scheduler/internal/config"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "meetsched",
		Short:         "Resolve participants, find common free time and rank venues for meetings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newServerCmd())
	root.AddCommand(newUserCmd())
	root.AddCommand(newContactsCmd())
	root.AddCommand(newSlotsCmd())
	root.AddCommand(newVenuesCmd())
	root.AddCommand(newPlanCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
