package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sessionsClientID string
	sessionsLimit    int
	sessionsDays     int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and maintain stored sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		summaries, err := store.ListRecent(sessionsClientID, sessionsLimit)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
			return nil
		}

		for _, s := range summaries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s/%s  %d messages  updated %s\n",
				s.SessionID, s.Provider, s.Model, s.MessageCount,
				s.LastUpdated.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete sessions older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}

		days := sessionsDays
		if days <= 0 {
			days = cfg.Sessions.ExpireAfterDays
		}
		removed, err := store.ExpireOlderThan(days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d sessions older than %d days.\n", removed, days)
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().StringVar(&sessionsClientID, "client", "cli", "Client id to list sessions for")
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 10, "Maximum sessions to show")
	sessionsClearCmd.Flags().IntVar(&sessionsDays, "days", 0, "Retention in days (configured default when 0)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}
