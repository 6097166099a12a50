package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/report"
	"github.com/pable/fgc-elo/internal/storage"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about the stored feeds and runs: match and
roster counts, date range, players seen, the latest run's participation by
tier and its top-rated players.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	ov, err := db.GetOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Matches == 0 && ov.Roster == 0 {
		fmt.Fprintln(os.Stdout, "No feeds stored yet. Run 'fgcelo load --matches <file>' to add some.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Matches stored : %d\n", ov.Matches)
	fmt.Fprintf(os.Stdout, "  Roster rows    : %d\n", ov.Roster)
	fmt.Fprintf(os.Stdout, "  Date range     : %s → %s\n", ov.FirstDay, ov.LastDay)
	fmt.Fprintf(os.Stdout, "  Events         : %d\n", ov.Events)
	fmt.Fprintf(os.Stdout, "  Players seen   : %d\n", ov.Players)
	fmt.Fprintf(os.Stdout, "  Rating runs    : %d\n", ov.Runs)

	run, err := db.GetRun("")
	if err != nil {
		return fmt.Errorf("get latest run: %w", err)
	}
	if run == nil {
		fmt.Fprintln(os.Stdout, "\nNo runs yet. Run 'fgcelo rate' to compute ratings.")
		return nil
	}
	report.PrintRunSummary(os.Stdout, *run)

	parts, err := db.GetParticipation(run.RunID)
	if err != nil {
		return fmt.Errorf("get participation: %w", err)
	}
	fmt.Fprintf(os.Stdout, "--- Participation by Tier ---\n\n")
	report.PrintParticipationTable(os.Stdout, parts)

	top, err := db.GetRatings(run.RunID, 10, true)
	if err != nil {
		return fmt.Errorf("get ratings: %w", err)
	}
	if len(top) > 0 {
		fmt.Fprintf(os.Stdout, "\n--- Top Established Players ---\n\n")
		report.PrintRatingsTable(os.Stdout, top)
	}
	return nil
}
