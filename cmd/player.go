package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgc-elo/internal/report"
	"github.com/pable/fgc-elo/internal/storage"
)

var playerLast int

var playerCmd = &cobra.Command{
	Use:   "player <player_id>",
	Short: "Show a player's rating trajectory and pre-event snapshots",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlayer,
}

func init() {
	addRunFlag(playerCmd)
	playerCmd.Flags().IntVar(&playerLast, "last", 0, "only show the last N matches (0 = all)")
}

func runPlayer(cmd *cobra.Command, args []string) error {
	playerID := args[0]

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	run, err := resolveRun(db)
	if err != nil {
		return err
	}
	hist, err := db.GetPlayerHistory(run.RunID, playerID)
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}
	snaps, err := db.GetSnapshots(run.RunID, storage.SnapshotFilter{PlayerIDs: []string{playerID}})
	if err != nil {
		return fmt.Errorf("get snapshots: %w", err)
	}
	if len(hist) == 0 && len(snaps) == 0 {
		fmt.Fprintf(os.Stderr, "No data for player %q in run %s\n", playerID, run.RunID)
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== %s ===\n", playerID)
	report.PrintTrajectorySummary(os.Stdout, hist)

	if len(snaps) > 0 {
		fmt.Fprintf(os.Stdout, "\n--- Events (%d) ---\n\n", len(snaps))
		report.PrintSnapshotTable(os.Stdout, snaps, "")
	}
	if len(hist) > 0 {
		shown := hist
		if playerLast > 0 && len(shown) > playerLast {
			shown = shown[len(shown)-playerLast:]
		}
		fmt.Fprintf(os.Stdout, "\n--- Matches (%d of %d) ---\n\n", len(shown), len(hist))
		report.PrintHistoryTable(os.Stdout, shown)
	}
	return nil
}
