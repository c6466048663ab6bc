package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"hashharvest/internal/config"
	"hashharvest/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past collection runs",
		Long: `History lists past collection runs recorded in the local database,
most recent first, along with the cumulative number of distinct hashes
seen across all runs.

Examples:
  # Show the last 20 runs
  hashharvest history

  # Show the last 5 runs against one server
  hashharvest history --server https://east.example.com --limit 5`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("server", "s", "", "Only show runs against this server URL")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no run history yet (run a collection first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	runs, err := db.RecentRuns(ctx, server, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSERVER\tHASHES\tBATCHES\tERRORS\tSTOP REASON\tDURATION")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			run.StartedAt.Format("2006-01-02 15:04"),
			run.Server,
			run.UniqueHashes,
			run.Batches,
			run.Errors,
			run.StopReason,
			run.Duration.Round(time.Second),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	total, err := db.KnownHashCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d distinct hashes seen across all runs.\n", total)

	return nil
}
