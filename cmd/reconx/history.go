package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hakim/reconx/internal/models"
	"github.com/hakim/reconx/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past runs",
	Long: `Display a table of past runs, newest first.

Each row shows the run ID (truncated), start time, final status, elapsed time
and the number of subdomains and live hosts found. Use -d to only show runs
that included a given target and --limit to cap the number of rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Step 1: Get flags
		domain, _ := cmd.Flags().GetString("domain")
		limit, _ := cmd.Flags().GetInt("limit")
		out := cmd.OutOrStdout()

		// Step 2: Open bbolt store
		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		// Step 3: List runs, newest first
		runs, err := store.ListRuns(domain)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		title := "all targets"
		if domain != "" {
			title = domain
		}
		if len(runs) == 0 {
			fmt.Fprintf(out, "No run history found for %s\n", title)
			return nil
		}

		// Step 4: Apply limit
		total := len(runs)
		if limit > 0 && len(runs) > limit {
			runs = runs[:limit]
		}

		// Step 5: Print formatted table
		const separator = "────────────────────────────────────────────────────────────────────────────────"

		fmt.Fprintf(out, "\nRun History for %s\n", title)
		fmt.Fprintln(out, separator)
		fmt.Fprintf(out, "  %-3s  %-12s  %-17s  %-12s  %8s  %6s  %5s  %s\n",
			"#", "Run ID", "Started", "Status", "Elapsed", "Subs", "Live", "Targets")
		fmt.Fprintln(out, separator)

		for i, run := range runs {
			fmt.Fprintf(out, "  %-3d  %-12s  %-17s  %-12s  %7.0fs  %6d  %5d  %s\n",
				i+1,
				shortRunID(run.ID),
				run.StartedAt.Local().Format("2006-01-02 15:04"),
				formatStatus(run.Status),
				run.ElapsedSeconds,
				run.Subdomains,
				run.LiveHosts,
				formatTargets(run.Targets))
		}

		fmt.Fprintln(out, separator)
		fmt.Fprintf(out, "Showing %d of %d run(s)\n\n", len(runs), total)

		return nil
	},
}

// shortRunID returns the first 8 characters of a UUID followed by "...".
func shortRunID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

// formatStatus pads before colouring so the table columns line up.
func formatStatus(s models.RunStatus) string {
	padded := fmt.Sprintf("%-12s", s)
	switch s {
	case models.StatusComplete:
		return success(padded)
	case models.StatusPartial:
		return warn(padded)
	case models.StatusInterrupted:
		return fail(padded)
	default:
		return padded
	}
}

func formatTargets(targets []string) string {
	const shown = 3
	if len(targets) == 0 {
		return "-"
	}
	if len(targets) <= shown {
		return strings.Join(targets, ", ")
	}
	return fmt.Sprintf("%s (+%d)", strings.Join(targets[:shown], ", "), len(targets)-shown)
}

func init() {
	historyCmd.Flags().StringP("domain", "d", "", "only show runs that included this target")
	historyCmd.Flags().Int("limit", 10, "maximum number of runs to display")
	rootCmd.AddCommand(historyCmd)
}
